package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSitemapDepth = 3

// SitemapURLs returns the page locations listed by a sitemap. Sitemap index
// files are followed up to maxSitemapDepth levels; a failing child sitemap is
// logged and skipped.
func (d *Discoverer) SitemapURLs(ctx context.Context, sitemapURL string) ([]string, error) {
	visited := make(map[string]struct{})

	urls, err := d.sitemapURLs(ctx, sitemapURL, 0, visited)
	if err != nil {
		return nil, err
	}

	return dedupe(urls), nil
}

func (d *Discoverer) sitemapURLs(
	ctx context.Context,
	sitemapURL string,
	depth int,
	visited map[string]struct{},
) ([]string, error) {
	sitemapURL = strings.TrimSpace(sitemapURL)
	if _, ok := visited[sitemapURL]; ok {
		return nil, nil
	}
	visited[sitemapURL] = struct{}{}

	res, err := d.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Data))
	if err != nil {
		return nil, fmt.Errorf("create document from reader: %w", err)
	}

	if doc.Find("sitemapindex").Length() == 0 {
		var pages []string
		doc.Find("url > loc").Each(func(_ int, s *goquery.Selection) {
			pages = append(pages, strings.TrimSpace(s.Text()))
		})

		return pages, nil
	}

	if depth >= maxSitemapDepth {
		return nil, errors.New("sitemap index nesting is too deep")
	}

	var pages []string
	doc.Find("sitemap > loc").Each(func(_ int, s *goquery.Selection) {
		child := strings.TrimSpace(s.Text())

		childPages, childErr := d.sitemapURLs(ctx, child, depth+1, visited)
		if childErr != nil {
			d.log.WarnContext(ctx, "Failed to read child sitemap",
				"error", childErr,
				"sitemapURL", child,
				"parentURL", sitemapURL)
			return
		}

		pages = append(pages, childPages...)
	})

	return pages, nil
}
