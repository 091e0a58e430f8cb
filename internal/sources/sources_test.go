package sources_test

import (
	"os"
	"path/filepath"
	"testing"

	"kbbuilder/internal/domain"
	"kbbuilder/internal/sources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    sources.Sources
	}{
		{
			name: "yaml",
			file: "sources.yaml",
			content: `files:
  - ./docs/handbook.pdf
  - " ./docs/handbook.pdf "
web_urls: [https://example.com/about]
sitemap_urls: [https://example.com/sitemap.xml]
feed_urls: [https://example.com/rss]
github_user: octo
`,
			want: sources.Sources{
				Files:       []string{"./docs/handbook.pdf"},
				WebURLs:     []string{"https://example.com/about"},
				SitemapURLs: []string{"https://example.com/sitemap.xml"},
				FeedURLs:    []string{"https://example.com/rss"},
				GitHubUser:  "octo",
			},
		},
		{
			name: "legacy json",
			file: "sources.json",
			content: `{
  "pdf_urls": ["https://example.com/a.pdf"],
  "web_urls": ["https://example.com/"],
  "spreadsheet_urls": ["https://example.com/b.csv"],
  "sitemap_url": "https://example.com/sitemap.xml"
}`,
			want: sources.Sources{
				PDFURLs:         []string{"https://example.com/a.pdf"},
				WebURLs:         []string{"https://example.com/"},
				SpreadsheetURLs: []string{"https://example.com/b.csv"},
				SitemapURLs:     []string{"https://example.com/sitemap.xml"},
			},
		},
		{
			name:    "plain text",
			file:    "reading-list.txt",
			content: "Read https://example.com/guide and https://example.com/report.pdf.\nAlso https://example.com/guide again.",
			want: sources.Sources{
				Files:   []string{"https://example.com/report.pdf"},
				WebURLs: []string{"https://example.com/guide"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sources.LoadFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := sources.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = sources.LoadFile(writeFile(t, "broken.json", `{"files": [`))
	require.ErrorIs(t, err, domain.ErrParse)
}

func TestMerge(t *testing.T) {
	cli := sources.Sources{
		WebURLs:    []string{"https://example.com/a"},
		GitHubUser: "",
	}
	file := sources.Sources{
		WebURLs:    []string{"https://example.com/a", "https://example.com/b"},
		PDFURLs:    []string{"https://example.com/c.pdf"},
		GitHubUser: "octo",
	}

	merged := cli.Merge(file)

	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, merged.WebURLs)
	assert.Equal(t, []string{"https://example.com/c.pdf"}, merged.PDFURLs)
	assert.Equal(t, "octo", merged.GitHubUser)

	assert.Equal(t, "cli", sources.Sources{GitHubUser: "cli"}.Merge(file).GitHubUser)
}

func TestValidate(t *testing.T) {
	require.ErrorIs(t, sources.Sources{}.Validate(), sources.ErrNoSources)
	require.ErrorIs(t, sources.Sources{WebURLs: []string{" "}}.Merge(sources.Sources{}).Validate(), sources.ErrNoSources)
	require.NoError(t, sources.Sources{GitHubUser: "octo"}.Validate())
}
