package sink_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"kbbuilder/internal/sink"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileSinkCreatesDirectories(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out", "nested", "kb.md")
	s := sink.NewFileSink(discardLogger())

	require.NoError(t, s.Write(t.Context(), dest, "# KB\n"))
	require.NoError(t, s.Write(t.Context(), dest, "# KB v2\n"))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "# KB v2\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

type recordingSink struct {
	name  string
	err   error
	calls *[]string
}

func (s recordingSink) Write(_ context.Context, _ string, _ string) error {
	*s.calls = append(*s.calls, s.name)
	return s.err
}

func TestFanoutStopsAtFirstFailure(t *testing.T) {
	errDown := errors.New("down")
	var calls []string

	fanout := sink.Fanout{
		recordingSink{name: "file", calls: &calls},
		recordingSink{name: "telegram", err: errDown, calls: &calls},
		recordingSink{name: "never", calls: &calls},
	}

	err := fanout.Write(t.Context(), "kb.md", "text")

	require.ErrorIs(t, err, errDown)
	assert.Equal(t, []string{"file", "telegram"}, calls)
}

func TestTelegramSinkSendsDocument(t *testing.T) {
	var (
		mu       sync.Mutex
		path     string
		chatID   string
		caption  string
		mode     string
		filename string
		body     string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()

		path = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			chatID = r.FormValue("chat_id")
			caption = r.FormValue("caption")
			mode = r.FormValue("parse_mode")

			if f, header, err := r.FormFile("document"); err == nil {
				filename = header.Filename
				data, _ := io.ReadAll(f)
				body = string(data)
				_ = f.Close()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
	}))
	defer server.Close()

	s, err := sink.NewTelegramSink("123:abc", 42, discardLogger(), bot.WithServerURL(server.URL))
	require.NoError(t, err)

	require.NoError(t, s.Write(t.Context(), "out/final_knowledge_base.md", "# Team handbook\n\nBody"))

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "/bot123:abc/sendDocument", path)
	assert.Equal(t, "42", chatID)
	assert.Equal(t, "MarkdownV2", mode)
	assert.Equal(t, "📚 *final\\_knowledge\\_base\\.md*\nTeam handbook", caption)
	assert.Equal(t, "final_knowledge_base.md", filename)
	assert.Equal(t, "# Team handbook\n\nBody", body)
}

func TestNewTelegramSinkRequiresToken(t *testing.T) {
	_, err := sink.NewTelegramSink("  ", 42, discardLogger())

	require.Error(t, err)
}
