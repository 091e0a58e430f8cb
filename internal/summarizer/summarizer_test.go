package summarizer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"kbbuilder/internal/domain"
	"kbbuilder/internal/ratelimiter"
	"kbbuilder/internal/summarizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	prompts []string
	output  string
	err     error
}

func (s *recordingSubmitter) Submit(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)

	return s.output, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPromptWrapsTextInDelimiters(t *testing.T) {
	prompt := summarizer.Prompt("Quarterly revenue grew 12%.")

	start := strings.Index(prompt, "---DOCUMENT START---")
	body := strings.Index(prompt, "Quarterly revenue grew 12%.")
	end := strings.Index(prompt, "---DOCUMENT END---")

	require.GreaterOrEqual(t, start, 0)
	assert.Less(t, start, body)
	assert.Less(t, body, end)
	assert.Contains(t, prompt, "Markdown knowledge base")
}

func TestSummarizeIssuesExactlyOneCall(t *testing.T) {
	submitter := &recordingSubmitter{output: "not really *markdown"}
	s := summarizer.New(submitter, discardLogger())

	got, err := s.Summarize(t.Context(), domain.Document{Source: "a.txt", Kind: domain.KindDocument, Text: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "not really *markdown", got)
	require.Len(t, submitter.prompts, 1)
	assert.Equal(t, summarizer.Prompt("hello"), submitter.prompts[0])
}

func TestSummarizePropagatesServiceError(t *testing.T) {
	serviceErr := &ratelimiter.ServiceError{Cause: errors.New("boom"), Attempts: 3}
	s := summarizer.New(&recordingSubmitter{err: serviceErr}, discardLogger())

	_, err := s.Summarize(t.Context(), domain.Document{Source: "a.txt", Text: "hello"})

	var got *ratelimiter.ServiceError
	require.ErrorAs(t, err, &got)
	assert.Same(t, serviceErr, got)
}
