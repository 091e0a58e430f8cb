// Package sink delivers the finished knowledge base.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type Sink interface {
	Write(ctx context.Context, destination string, content string) error
}

// FileSink writes the document to the destination path, creating parent
// directories. The file is replaced atomically.
type FileSink struct {
	log *slog.Logger
}

func NewFileSink(log *slog.Logger) *FileSink {
	return &FileSink{log: log}
}

func (s *FileSink) Write(ctx context.Context, destination string, content string) error {
	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destination)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		if removeErr := os.Remove(tmpName); removeErr != nil && !os.IsNotExist(removeErr) {
			s.log.ErrorContext(ctx, "Failed to remove temp file",
				"error", removeErr,
				"path", tmpName)
		}
	}

	if _, err = tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, destination); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}

	s.log.InfoContext(ctx, "Knowledge base is written",
		"destination", destination,
		"bytes", len(content))

	return nil
}

// Fanout writes to every sink in order and stops at the first failure.
type Fanout []Sink

func (f Fanout) Write(ctx context.Context, destination string, content string) error {
	for i, s := range f {
		if err := s.Write(ctx, destination, content); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}

	return nil
}
