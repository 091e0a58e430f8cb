// Package extract turns fetched sources into plain text. Each source kind is
// handled by its own strategy, selected by the kind tag.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"kbbuilder/internal/domain"
	"kbbuilder/internal/fetch"
)

type Fetcher interface {
	Fetch(ctx context.Context, location string) (fetch.Resource, error)
}

type strategy struct {
	// extensions are the file types the strategy understands; the first one
	// is assumed when a download carries no recognizable extension.
	extensions []string
	extract    func(ctx context.Context, data []byte, ext string) (string, error)
}

type Extractor struct {
	fetcher    Fetcher
	strategies map[domain.Kind]strategy
	log        *slog.Logger
}

func New(fetcher Fetcher, log *slog.Logger) *Extractor {
	e := &Extractor{
		fetcher: fetcher,
		log:     log,
	}

	e.strategies = map[domain.Kind]strategy{
		domain.KindPDF:                {extensions: []string{".pdf"}, extract: extractPDF},
		domain.KindDocument:           {extensions: []string{".docx", ".txt", ".md", ".rtf"}, extract: extractDocument},
		domain.KindSpreadsheet:        {extensions: []string{".csv", ".tsv", ".xlsx", ".ods"}, extract: e.extractSpreadsheet},
		domain.KindWebContent:         {extensions: []string{".html", ".xml", ".json", ".yaml", ".yml"}, extract: extractWebContent},
		domain.KindWebPage:            {extensions: []string{".html"}, extract: extractWebPage},
		domain.KindRepositoryMarkdown: {extensions: []string{".md"}, extract: extractRaw},
	}

	return e
}

// Extract fetches src and converts it to text using the strategy for its
// kind. An empty kind is inferred from the location.
func (e *Extractor) Extract(ctx context.Context, src domain.Source) (domain.Document, error) {
	kind := src.Kind
	if kind == "" {
		kind = domain.KindFromLocation(src.Location)
	}

	s, ok := e.strategies[kind]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: unsupported kind %q", domain.ErrParse, kind)
	}

	res, err := e.fetcher.Fetch(ctx, src.Location)
	if err != nil {
		return domain.Document{}, fmt.Errorf("fetch: %w", err)
	}

	ext := resolveExtension(res, src.Location, s.extensions)

	text, err := s.extract(ctx, res.Data, ext)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: extract %s (%s): %w", domain.ErrParse, kind, ext, err)
	}

	e.log.DebugContext(ctx, "Text is extracted",
		"source", src.Location,
		"kind", kind,
		"extension", ext,
		"bytes", len(res.Data),
		"textLen", len(text))

	return domain.Document{
		Source: src.Location,
		Kind:   kind,
		Text:   text,
	}, nil
}

func resolveExtension(res fetch.Resource, location string, supported []string) string {
	for _, candidate := range []string{strings.ToLower(path.Ext(res.Name)), domain.Extension(location)} {
		for _, ext := range supported {
			if candidate == ext {
				return ext
			}
		}
	}

	return supported[0]
}

func extractRaw(_ context.Context, data []byte, _ string) (string, error) {
	return string(data), nil
}

func extractWebPage(_ context.Context, data []byte, _ string) (string, error) {
	return cleanHTML(data)
}

func extractWebContent(_ context.Context, data []byte, ext string) (string, error) {
	switch ext {
	case ".html":
		return cleanHTML(data)
	case ".xml":
		return xmlOutline(data), nil
	case ".json":
		return structuredOutline(data, false)
	case ".yaml", ".yml":
		return structuredOutline(data, true)
	default:
		return "", fmt.Errorf("unsupported web content format %q", ext)
	}
}
