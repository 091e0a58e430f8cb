package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"kbbuilder/internal/markdown"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	captionMaxLength = 1024
	defaultFilename  = "knowledge_base.md"
)

// TelegramSink sends the knowledge base to a chat as a Markdown document.
type TelegramSink struct {
	api    *bot.Bot
	chatID int64
	log    *slog.Logger
}

// NewTelegramSink builds a sink for chatID. Extra options, such as
// bot.WithServerURL, are passed to the Bot API client.
func NewTelegramSink(token string, chatID int64, log *slog.Logger, opts ...bot.Option) (*TelegramSink, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}

	api, err := bot.New(token, append([]bot.Option{bot.WithSkipGetMe()}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramSink{api: api, chatID: chatID, log: log}, nil
}

func (s *TelegramSink) Write(ctx context.Context, destination string, content string) error {
	filename := filepath.Base(destination)
	if filename == "." || filename == string(filepath.Separator) {
		filename = defaultFilename
	}

	msg, err := s.api.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: s.chatID,
		Document: &models.InputFileUpload{
			Filename: filename,
			Data:     strings.NewReader(content),
		},
		Caption:   Caption(filename, content),
		ParseMode: models.ParseModeMarkdown,
	})
	if err != nil {
		return fmt.Errorf("send document: %w", err)
	}

	s.log.InfoContext(ctx, "Knowledge base is sent",
		"chatID", s.chatID,
		"messageID", msg.ID,
		"filename", filename,
		"bytes", len(content))

	return nil
}

// Caption is the MarkdownV2 caption: the file name in bold and the first
// heading of the document, if any.
func Caption(filename string, content string) string {
	caption := "📚 *" + markdown.EscapeV2(filename) + "*"

	for line := range strings.Lines(content) {
		line = strings.TrimSpace(line)
		if title, ok := strings.CutPrefix(line, "# "); ok {
			title = markdown.Truncate(strings.TrimSpace(title), captionMaxLength/2)
			caption += "\n" + markdown.EscapeV2(title)
			break
		}
	}

	return caption
}
