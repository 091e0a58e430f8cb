// Package discovery expands indirect sources (sitemaps, feeds, Telegram
// channels and GitHub accounts) into the concrete locations they point at.
package discovery

import (
	"context"
	"log/slog"
	"strings"

	"kbbuilder/internal/fetch"

	"github.com/mmcdole/gofeed"
)

const defaultGitHubAPIURL = "https://api.github.com"

type Fetcher interface {
	Fetch(ctx context.Context, location string) (fetch.Resource, error)
}

type Discoverer struct {
	fetcher      Fetcher
	github       Fetcher
	githubAPIURL string
	feedParser   *gofeed.Parser
	log          *slog.Logger
}

type Options struct {
	// GitHubAPIURL overrides the GitHub REST endpoint, mostly for tests.
	GitHubAPIURL string
	// GitHubToken is sent as a bearer token when set.
	GitHubToken string
}

func New(fetcher *fetch.Fetcher, opts Options, log *slog.Logger) *Discoverer {
	github := fetcher.WithHeader("Accept", "application/vnd.github+json")
	if token := strings.TrimSpace(opts.GitHubToken); token != "" {
		github = github.WithHeader("Authorization", "Bearer "+token)
	}

	apiURL := strings.TrimRight(strings.TrimSpace(opts.GitHubAPIURL), "/")
	if apiURL == "" {
		apiURL = defaultGitHubAPIURL
	}

	return &Discoverer{
		fetcher:      fetcher,
		github:       github,
		githubAPIURL: apiURL,
		feedParser:   gofeed.NewParser(),
		log:          log,
	}
}

// dedupe trims, drops empty entries and keeps the first occurrence of each
// location.
func dedupe(locations []string) []string {
	seen := make(map[string]struct{}, len(locations))
	out := make([]string, 0, len(locations))

	for _, location := range locations {
		location = strings.TrimSpace(location)
		if location == "" {
			continue
		}
		if _, ok := seen[location]; ok {
			continue
		}

		seen[location] = struct{}{}
		out = append(out, location)
	}

	return out
}
