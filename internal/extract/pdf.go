package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

func extractPDF(_ context.Context, data []byte, _ string) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}

	text, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read plain text: %w", err)
	}

	return strings.TrimSpace(string(text)), nil
}
