package markdown_test

import (
	"testing"

	"kbbuilder/internal/markdown"

	"github.com/stretchr/testify/assert"
)

func TestEscapeV2(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "knowledge base", "knowledge base"},
		{"file name", "final_knowledge_base.md", `final\_knowledge\_base\.md`},
		{"brackets and bang", "kb [v2] (draft)!", `kb \[v2\] \(draft\)\!`},
		{"backslash", `a\b`, `a\\b`},
		{"unicode untouched", "база-знаний", `база\-знаний`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, markdown.EscapeV2(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", markdown.Truncate("short", 10))
	assert.Equal(t, "абв…", markdown.Truncate("абвгде", 4))
	assert.Empty(t, markdown.Truncate("anything", 0))
}
