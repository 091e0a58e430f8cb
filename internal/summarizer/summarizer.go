package summarizer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"kbbuilder/internal/domain"
)

const (
	documentStartDelimiter = "---DOCUMENT START---"
	documentEndDelimiter   = "---DOCUMENT END---"
)

// Submitter is the rate-limited gateway to the generative-text service.
type Submitter interface {
	Submit(ctx context.Context, prompt string) (string, error)
}

// Summarizer turns one document into a structured Markdown summary with
// exactly one service call.
type Summarizer struct {
	service Submitter
	log     *slog.Logger
}

func New(service Submitter, log *slog.Logger) *Summarizer {
	return &Summarizer{
		service: service,
		log:     log,
	}
}

// Summarize returns the service output verbatim. Callers discard empty
// documents before calling; errors from the service are returned unchanged.
func (s *Summarizer) Summarize(ctx context.Context, doc domain.Document) (string, error) {
	start := time.Now()

	summary, err := s.service.Submit(ctx, Prompt(doc.Text))
	if err != nil {
		return "", err
	}

	s.log.DebugContext(ctx, "Summary is built",
		"source", doc.Source,
		"kind", doc.Kind,
		"textLen", len(doc.Text),
		"summaryLen", len(summary),
		"durationMs", time.Since(start).Milliseconds())

	return summary, nil
}

func Prompt(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 512)

	b.WriteString("You're a helpful assistant.\n\n")
	b.WriteString("Turn the following document into a structured **Markdown knowledge base** ")
	b.WriteString("with summaries, bullet points, and clearly formatted sections.\n\n")
	b.WriteString(documentStartDelimiter)
	b.WriteString("\n")
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(documentEndDelimiter)
	b.WriteString("\n\nReturn only the Markdown.")

	return b.String()
}
