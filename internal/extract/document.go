package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/lu4p/cat/docxtxt"
	"github.com/lu4p/cat/rtftxt"
)

func extractDocument(_ context.Context, data []byte, ext string) (string, error) {
	switch ext {
	case ".txt", ".md":
		return strings.ToValidUTF8(string(data), "�"), nil
	case ".docx":
		text, err := docxtxt.BytesToStr(data)
		if err != nil {
			return "", fmt.Errorf("read docx: %w", err)
		}

		return strings.TrimSpace(text), nil
	case ".rtf":
		text, err := rtftxt.BytesToStr(data)
		if err != nil {
			return "", fmt.Errorf("read rtf: %w", err)
		}

		return strings.TrimSpace(text), nil
	default:
		return "", fmt.Errorf("unsupported document format %q", ext)
	}
}
