package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

var ErrContentBlocked = errors.New("content blocked by safety filters")

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// GeminiTransformer calls the Gemini generateContent endpoint.
type GeminiTransformer struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiTransformer(ctx context.Context, cfg GeminiConfig) (*GeminiTransformer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &GeminiTransformer{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
	}, nil
}

func (t *GeminiTransformer) Transform(ctx context.Context, prompt string) (string, error) {
	temperature := t.temperature

	resp, err := t.client.Models.GenerateContent(ctx, t.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return geminiOutputText(resp)
}

func geminiOutputText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("empty content (finishReason = %s)", candidate.FinishReason)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		b.WriteString(part.Text)
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("output text is missing (finishReason = %s)", candidate.FinishReason)
	}

	return text, nil
}
