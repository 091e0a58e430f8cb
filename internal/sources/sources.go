// Package sources describes what a build reads and loads that description
// from files.
package sources

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"kbbuilder/internal/domain"

	"gopkg.in/yaml.v3"
	"mvdan.cc/xurls/v2"
)

// Sources lists every input of a build. Files are classified by extension;
// the typed URL lists predate that and force a kind.
type Sources struct {
	Files       []string `yaml:"files"`
	WebURLs     []string `yaml:"web_urls"`
	SitemapURLs []string `yaml:"sitemap_urls"`
	FeedURLs    []string `yaml:"feed_urls"`
	GitHubUser  string   `yaml:"github_user"`

	PDFURLs         []string `yaml:"pdf_urls"`
	DocumentURLs    []string `yaml:"document_urls"`
	SpreadsheetURLs []string `yaml:"spreadsheet_urls"`
	WebContentURLs  []string `yaml:"web_content_urls"`
}

// fileSources also accepts the single sitemap_url key of older files.
type fileSources struct {
	Sources    `yaml:",inline"`
	SitemapURL string `yaml:"sitemap_url"`
}

// LoadFile reads sources from a YAML or JSON document. Any other file is
// scanned for URLs: those with a known file extension become Files, the rest
// WebURLs.
func LoadFile(path string) (Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Sources{}, fmt.Errorf("read sources file: %w", err)
	}

	switch domain.Extension(path) {
	case ".yaml", ".yml", ".json":
		var fs fileSources
		if err = yaml.Unmarshal(data, &fs); err != nil {
			return Sources{}, fmt.Errorf("%w: decode sources file: %w", domain.ErrParse, err)
		}

		s := fs.Sources
		if sitemap := strings.TrimSpace(fs.SitemapURL); sitemap != "" {
			s.SitemapURLs = append([]string{sitemap}, s.SitemapURLs...)
		}

		return s.normalized(), nil
	default:
		return fromText(string(data)), nil
	}
}

func fromText(text string) Sources {
	var s Sources

	for _, u := range xurls.Strict().FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;")
		if domain.KindFromLocation(u) == domain.KindWebPage {
			s.WebURLs = append(s.WebURLs, u)
			continue
		}
		s.Files = append(s.Files, u)
	}

	return s.normalized()
}

// Merge appends other's lists after s's. s keeps its GitHub user when set.
func (s Sources) Merge(other Sources) Sources {
	merged := Sources{
		Files:           slices.Concat(s.Files, other.Files),
		WebURLs:         slices.Concat(s.WebURLs, other.WebURLs),
		SitemapURLs:     slices.Concat(s.SitemapURLs, other.SitemapURLs),
		FeedURLs:        slices.Concat(s.FeedURLs, other.FeedURLs),
		GitHubUser:      s.GitHubUser,
		PDFURLs:         slices.Concat(s.PDFURLs, other.PDFURLs),
		DocumentURLs:    slices.Concat(s.DocumentURLs, other.DocumentURLs),
		SpreadsheetURLs: slices.Concat(s.SpreadsheetURLs, other.SpreadsheetURLs),
		WebContentURLs:  slices.Concat(s.WebContentURLs, other.WebContentURLs),
	}
	if strings.TrimSpace(merged.GitHubUser) == "" {
		merged.GitHubUser = other.GitHubUser
	}

	return merged.normalized()
}

func (s Sources) Empty() bool {
	return len(s.Files) == 0 &&
		len(s.WebURLs) == 0 &&
		len(s.SitemapURLs) == 0 &&
		len(s.FeedURLs) == 0 &&
		s.GitHubUser == "" &&
		len(s.PDFURLs) == 0 &&
		len(s.DocumentURLs) == 0 &&
		len(s.SpreadsheetURLs) == 0 &&
		len(s.WebContentURLs) == 0
}

var ErrNoSources = errors.New("no sources provided")

// Validate reports ErrNoSources for an empty set.
func (s Sources) Validate() error {
	if s.Empty() {
		return ErrNoSources
	}

	return nil
}

func (s Sources) normalized() Sources {
	return Sources{
		Files:           clean(s.Files),
		WebURLs:         clean(s.WebURLs),
		SitemapURLs:     clean(s.SitemapURLs),
		FeedURLs:        clean(s.FeedURLs),
		GitHubUser:      strings.TrimSpace(s.GitHubUser),
		PDFURLs:         clean(s.PDFURLs),
		DocumentURLs:    clean(s.DocumentURLs),
		SpreadsheetURLs: clean(s.SpreadsheetURLs),
		WebContentURLs:  clean(s.WebContentURLs),
	}
}

// clean trims entries, drops blanks and keeps first occurrences.
func clean(list []string) []string {
	if len(list) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))

	for _, item := range list {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}

		seen[item] = struct{}{}
		out = append(out, item)
	}

	if len(out) == 0 {
		return nil
	}

	return out
}
