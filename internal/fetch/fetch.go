package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"kbbuilder/internal/domain"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	maxBodyBytes   = 64 << 20
	defaultTimeout = 60 * time.Second
)

// Resource is a downloaded or locally read file.
type Resource struct {
	Location    string
	Name        string
	ContentType string
	Data        []byte
}

type Fetcher struct {
	client *http.Client
	header http.Header
	log    *slog.Logger
}

func New(timeout time.Duration, log *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return NewWithClient(&http.Client{Timeout: timeout}, log)
}

func NewWithClient(client *http.Client, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		header: http.Header{},
		log:    log,
	}
}

// WithHeader returns a copy of the fetcher that sends an extra request header.
func (f *Fetcher) WithHeader(key string, value string) *Fetcher {
	header := f.header.Clone()
	header.Set(key, value)

	return &Fetcher{client: f.client, header: header, log: f.log}
}

// Fetch reads location, which is an http(s) URL, a file:// URL or a local
// path. Missing files and HTTP 404 wrap domain.ErrNotFound; every other
// failure wraps domain.ErrDownload.
func (f *Fetcher) Fetch(ctx context.Context, location string) (Resource, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Resource{}, fmt.Errorf("%w: location is empty", domain.ErrNotFound)
	}

	if domain.IsHTTPURL(location) {
		return f.fetchHTTP(ctx, location)
	}

	localPath := location
	if strings.HasPrefix(strings.ToLower(location), "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return Resource{}, fmt.Errorf("%w: parse URL: %w", domain.ErrDownload, err)
		}
		localPath = u.Path
	}

	return readLocal(location, localPath)
}

func readLocal(location string, localPath string) (Resource, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Resource{}, fmt.Errorf("%w: local file %s", domain.ErrNotFound, localPath)
		}
		return Resource{}, fmt.Errorf("%w: read file: %w", domain.ErrDownload, err)
	}

	return Resource{
		Location: location,
		Name:     path.Base(localPath),
		Data:     data,
	}, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, location string) (Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return Resource{}, fmt.Errorf("%w: create request: %w", domain.ErrDownload, err)
	}

	req.Header.Set("User-Agent", userAgent)
	for key, values := range f.header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := f.client.Do(req) //nolint:gosec // URLs come from the operator's source list
	if err != nil {
		return Resource{}, fmt.Errorf("%w: do request: %w", domain.ErrDownload, err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			f.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"location", location)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Resource{}, fmt.Errorf("%w: %s returned 404", domain.ErrNotFound, location)
	case resp.StatusCode != http.StatusOK:
		return Resource{}, fmt.Errorf("%w: unexpected status: %d", domain.ErrDownload, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Resource{}, fmt.Errorf("%w: read body: %w", domain.ErrDownload, err)
	}

	return Resource{
		Location:    location,
		Name:        resourceName(location, resp.Header.Get("Content-Disposition")),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// resourceName prefers the Content-Disposition filename over the URL path.
func resourceName(location string, contentDisposition string) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return name
			}
		}
	}

	u, err := url.Parse(location)
	if err != nil {
		return ""
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}

	return name
}
