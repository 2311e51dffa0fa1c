package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// OpenAI builds a Client backed by the OpenAI chat API.
func OpenAI(apiKey, model string) (*ModelClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	if model == "" {
		model = DefaultModel
	}

	m, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to init OpenAI model: %w", err)
	}
	return NewModelClient(m), nil
}
