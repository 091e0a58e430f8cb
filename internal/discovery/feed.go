package discovery

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// FeedLinks returns the item links of an RSS, Atom or JSON feed in feed
// order. Public Telegram channel URLs are read from their web preview
// instead.
func (d *Discoverer) FeedLinks(ctx context.Context, feedURL string) ([]string, error) {
	feedURL = strings.TrimSpace(feedURL)

	if ok, slug := isTelegramChannelURL(feedURL); ok {
		return d.telegramChannelLinks(ctx, slug)
	}

	res, err := d.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := d.feedParser.Parse(bytes.NewReader(res.Data))
	if err != nil {
		return nil, fmt.Errorf("parse feed (URL = %s): %w", feedURL, err)
	}

	links := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" && len(item.Links) > 0 {
			link = strings.TrimSpace(item.Links[0])
		}
		if link == "" {
			d.log.WarnContext(ctx, "Skipping feed item without link",
				"feedURL", feedURL,
				"title", strings.TrimSpace(item.Title))
			continue
		}

		links = append(links, link)
	}

	return dedupe(links), nil
}
