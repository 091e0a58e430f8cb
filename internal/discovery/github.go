package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"kbbuilder/internal/domain"
)

const githubPageSize = 100

type githubRepository struct {
	Name string `json:"name"`
}

type githubContent struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Path        string `json:"path"`
	DownloadURL string `json:"download_url"`
}

// RepositoryMarkdown lists the download URLs of every Markdown file in the
// user's public repositories, repository by repository. Failing to list the
// repositories is an error; an unreadable directory is logged and skipped.
func (d *Discoverer) RepositoryMarkdown(ctx context.Context, user string) ([]string, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, errors.New("GitHub user is empty")
	}

	repos, err := d.githubRepositories(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}

	var urls []string
	for _, repo := range repos {
		d.log.InfoContext(ctx, "Scanning repository",
			"user", user,
			"repository", repo)

		urls = append(urls, d.markdownFiles(ctx, user, repo, "")...)
	}

	return dedupe(urls), nil
}

func (d *Discoverer) githubRepositories(ctx context.Context, user string) ([]string, error) {
	var names []string

	for page := 1; ; page++ {
		endpoint := fmt.Sprintf("%s/users/%s/repos?per_page=%d&page=%d",
			d.githubAPIURL, url.PathEscape(user), githubPageSize, page)

		var repos []githubRepository
		if err := d.githubJSON(ctx, endpoint, &repos); err != nil {
			return nil, err
		}
		if len(repos) == 0 {
			return names, nil
		}

		for _, repo := range repos {
			names = append(names, repo.Name)
		}

		if len(repos) < githubPageSize {
			return names, nil
		}
	}
}

func (d *Discoverer) markdownFiles(ctx context.Context, user string, repo string, dir string) []string {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		d.githubAPIURL, url.PathEscape(user), url.PathEscape(repo), escapePath(dir))

	var contents []githubContent
	if err := d.githubJSON(ctx, endpoint, &contents); err != nil {
		d.log.WarnContext(ctx, "Failed to list repository directory",
			"error", err,
			"repository", repo,
			"path", dir)
		return nil
	}

	var files []string
	for _, item := range contents {
		switch {
		case item.Type == "file" && strings.EqualFold(path.Ext(item.Name), ".md"):
			if item.DownloadURL != "" {
				files = append(files, item.DownloadURL)
			}
		case item.Type == "dir":
			files = append(files, d.markdownFiles(ctx, user, repo, item.Path)...)
		}
	}

	return files
}

func (d *Discoverer) githubJSON(ctx context.Context, endpoint string, v any) error {
	res, err := d.github.Fetch(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", endpoint, err)
	}

	if err = json.Unmarshal(res.Data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrParse, endpoint, err)
	}

	return nil
}

func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return strings.Join(segments, "/")
}
