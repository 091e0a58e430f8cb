package domain

import (
	"errors"
	"net/url"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("source not found")
	ErrDownload = errors.New("download failed")
	ErrParse    = errors.New("parse failed")
)

// Kind tags a source with the extraction strategy that handles it.
type Kind string

const (
	KindPDF                Kind = "pdf"
	KindDocument           Kind = "document"
	KindSpreadsheet        Kind = "spreadsheet"
	KindWebContent         Kind = "web-content"
	KindWebPage            Kind = "web-page"
	KindRepositoryMarkdown Kind = "repository-markdown"
)

var extensionKinds = map[string]Kind{
	".pdf":  KindPDF,
	".docx": KindDocument,
	".txt":  KindDocument,
	".md":   KindDocument,
	".rtf":  KindDocument,
	".csv":  KindSpreadsheet,
	".tsv":  KindSpreadsheet,
	".xlsx": KindSpreadsheet,
	".ods":  KindSpreadsheet,
	".html": KindWebContent,
	".xml":  KindWebContent,
	".json": KindWebContent,
	".yaml": KindWebContent,
	".yml":  KindWebContent,
}

type Source struct {
	Location string
	Kind     Kind
}

type Document struct {
	Source string
	Kind   Kind
	Text   string
}

type SourceStatus string

const (
	SourceSummarized SourceStatus = "summarized"
	SourceSkipped    SourceStatus = "skipped"
	SourceFailed     SourceStatus = "failed"
)

// SourceOutcome is what happened to one source during a build.
type SourceOutcome struct {
	Location string
	Kind     Kind
	Status   SourceStatus
	Detail   string
}

type BuildStatus string

const (
	BuildRunning   BuildStatus = "running"
	BuildSucceeded BuildStatus = "succeeded"
	BuildNoOutput  BuildStatus = "no_output"
	BuildFailed    BuildStatus = "failed"
)

type Build struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Status      BuildStatus
	Summaries   int
	Skipped     int
	Failed      int
	Rounds      int
	Merges      int
	Destination string
	Error       string
}

// Extension returns the lower-cased file extension of a path or URL, ignoring
// query strings and fragments.
func Extension(location string) string {
	location = strings.TrimSpace(location)

	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Path != "" {
		return strings.ToLower(path.Ext(u.Path))
	}

	return strings.ToLower(path.Ext(location))
}

// KindFromLocation classifies a file path or URL. HTTP URLs without a known
// extension and anything unrecognised are treated as web pages.
func KindFromLocation(location string) Kind {
	kind, ok := extensionKinds[Extension(location)]
	if !ok {
		return KindWebPage
	}

	return kind
}

func IsHTTPURL(location string) bool {
	lower := strings.ToLower(strings.TrimSpace(location))

	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
