package pipeline

import (
	"context"
	"errors"
	"fmt"

	"kbbuilder/internal/domain"
	"kbbuilder/internal/sources"
)

// pass is one source category. Passes run in declaration order and each
// keeps the order of its own sources.
type pass struct {
	name    string
	collect func(ctx context.Context) ([]domain.Source, error)
}

func (o *Orchestrator) passes(src sources.Sources) []pass {
	return []pass{
		{name: "files", collect: func(context.Context) ([]domain.Source, error) {
			batch := typed(src.Files, "")
			batch = append(batch, typed(src.PDFURLs, domain.KindPDF)...)
			batch = append(batch, typed(src.DocumentURLs, domain.KindDocument)...)
			batch = append(batch, typed(src.SpreadsheetURLs, domain.KindSpreadsheet)...)
			batch = append(batch, typed(src.WebContentURLs, domain.KindWebContent)...)
			return batch, nil
		}},
		{name: "web pages", collect: func(context.Context) ([]domain.Source, error) {
			return typed(src.WebURLs, domain.KindWebPage), nil
		}},
		{name: "sitemaps", collect: func(ctx context.Context) ([]domain.Source, error) {
			if len(src.SitemapURLs) == 0 {
				return nil, nil
			}
			return o.discoverEach(ctx, src.SitemapURLs, o.discoverer.SitemapURLs, domain.KindWebPage)
		}},
		{name: "feeds", collect: func(ctx context.Context) ([]domain.Source, error) {
			if len(src.FeedURLs) == 0 {
				return nil, nil
			}
			return o.discoverEach(ctx, src.FeedURLs, o.discoverer.FeedLinks, domain.KindWebPage)
		}},
		{name: "repositories", collect: func(ctx context.Context) ([]domain.Source, error) {
			if src.GitHubUser == "" {
				return nil, nil
			}
			return o.discoverEach(ctx, []string{src.GitHubUser}, o.discoverer.RepositoryMarkdown,
				domain.KindRepositoryMarkdown)
		}},
	}
}

func typed(locations []string, kind domain.Kind) []domain.Source {
	batch := make([]domain.Source, 0, len(locations))
	for _, location := range locations {
		batch = append(batch, domain.Source{Location: location, Kind: kind})
	}

	return batch
}

// discoverEach expands every root in order. A failing root is skipped so the
// others still contribute; the joined error is returned only when nothing
// was found at all.
func (o *Orchestrator) discoverEach(
	ctx context.Context,
	roots []string,
	discover func(ctx context.Context, root string) ([]string, error),
	kind domain.Kind,
) ([]domain.Source, error) {
	var (
		batch []domain.Source
		errs  []error
	)

	for _, root := range roots {
		found, err := discover(ctx, root)
		if err != nil {
			errs = append(errs, fmt.Errorf("discover %s: %w", root, err))
			continue
		}

		o.log.InfoContext(ctx, "Sources discovered",
			"root", root,
			"found", len(found))

		batch = append(batch, typed(found, kind)...)
	}

	if len(batch) == 0 {
		return nil, errors.Join(errs...)
	}

	for _, err := range errs {
		o.log.ErrorContext(ctx, "Failed to discover sources",
			"error", err)
	}

	return batch, nil
}
