package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	minPartsForTelegramChannelSlugStartingWithS = 2

	telegramHost = "t.me"
)

var telegramSlugRe = regexp.MustCompile(`^\w{5,32}$`)

// TelegramChannelCanonicalURL is the public web preview of a channel.
func TelegramChannelCanonicalURL(slug string) string {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ""
	}

	return fmt.Sprintf("https://%s/s/%s", telegramHost, slug)
}

// TelegramMessageCanonicalURL strips the query and fragment from a post URL.
func TelegramMessageCanonicalURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}

	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}

func isTelegramChannelURL(raw string) (bool, string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false, ""
	}

	if u.Host != telegramHost {
		return false, ""
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return false, ""
	}

	parts := strings.Split(path, "/")

	var slug string

	switch parts[0] {
	case "s":
		if len(parts) < minPartsForTelegramChannelSlugStartingWithS {
			return false, ""
		}
		slug = parts[1]
	default:
		slug = parts[0]
	}

	slug = strings.TrimSpace(slug)

	if !telegramSlugRe.MatchString(slug) {
		return false, ""
	}

	return true, slug
}

// telegramChannelLinks lists the post URLs shown on a channel's preview page,
// oldest first as Telegram renders them.
func (d *Discoverer) telegramChannelLinks(ctx context.Context, slug string) ([]string, error) {
	canonicalURL := TelegramChannelCanonicalURL(slug)
	if canonicalURL == "" {
		return nil, errors.New("slug is empty")
	}

	res, err := d.fetcher.Fetch(ctx, canonicalURL)
	if err != nil {
		return nil, fmt.Errorf("fetch channel page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Data))
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}

	var links []string
	doc.Find("a.tgme_widget_message_date").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			d.log.WarnContext(ctx, "Skipping channel post without href",
				"canonicalURL", canonicalURL,
				"slug", slug)
			return
		}

		links = append(links, TelegramMessageCanonicalURL(href))
	})

	return dedupe(links), nil
}
