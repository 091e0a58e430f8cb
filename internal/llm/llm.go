package llm

import (
	"context"
	"fmt"
	"strings"

	"kbbuilder/internal/config"
)

// Transformer sends one prompt to a generative-text service and returns its
// text output. Implementations perform a single call and never retry.
type Transformer interface {
	Transform(ctx context.Context, prompt string) (string, error)
}

// New builds the transformer selected by cfg.Provider.
func New(ctx context.Context, cfg config.Config) (Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case config.ProviderGemini:
		return NewGeminiTransformer(ctx, GeminiConfig{
			APIKey:      cfg.GoogleAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.GeminiTemperature,
		})
	case config.ProviderOpenAI:
		return NewOpenAITransformer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", config.ErrConfig, cfg.Provider)
	}
}
