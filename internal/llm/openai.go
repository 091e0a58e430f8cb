package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	baseMaxOutputTokens  int64 = 8192
	limitMaxOutputTokens int64 = 32768

	defaultOpenAIModel = "gpt-5-mini-2025-08-07"
	openAIInstructions = "You are a helpful assistant that writes well-structured Markdown."
)

// OpenAITransformer calls OpenAI's Responses API.
type OpenAITransformer struct {
	client openai.Client
	model  openai.ChatModel
}

func NewOpenAITransformer(apiKey string, model string) (*OpenAITransformer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAITransformer{
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		model:  openai.ChatModel(model),
	}, nil
}

// Transform returns the output text of a single response. An incomplete
// response caused by the output token limit is re-requested with a doubled
// limit; that is a budget adjustment, not a retry.
func (t *OpenAITransformer) Transform(ctx context.Context, prompt string) (string, error) {
	maxOutputTokens := baseMaxOutputTokens
	for {
		resp, err := t.client.Responses.New(ctx, responses.ResponseNewParams{
			Model:           t.model,
			MaxOutputTokens: openai.Int(maxOutputTokens),
			Reasoning: responses.ReasoningParam{
				Effort: openai.ReasoningEffortLow,
			},
			Instructions: openai.String(openAIInstructions),
			Input: responses.ResponseNewParamsInputUnion{
				OfString: openai.String(prompt),
			},
		})
		if err != nil {
			return "", fmt.Errorf("do request: %w", err)
		}

		if resp.Status == "incomplete" {
			if resp.IncompleteDetails.Reason == "max_output_tokens" && maxOutputTokens < limitMaxOutputTokens {
				maxOutputTokens = min(maxOutputTokens*2, limitMaxOutputTokens)
				continue
			}
			return "", fmt.Errorf(
				"response is incomplete (reason = %s, maxOutputTokens = %d)",
				resp.IncompleteDetails.Reason,
				maxOutputTokens,
			)
		}

		text := strings.TrimSpace(resp.OutputText())
		if text == "" {
			return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
		}
		return text, nil
	}
}
