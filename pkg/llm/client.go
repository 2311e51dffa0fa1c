package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// Message roles used across the pipeline.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry in a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the language model capability the pipeline depends on.
// CompleteStructured must return an error on malformed model output so
// callers can decide whether to degrade or abort.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	CompleteStructured(ctx context.Context, messages []Message, schema string, out any) error
}

// ModelClient adapts a langchaingo model to the Client interface.
type ModelClient struct {
	model llms.Model
}

func NewModelClient(model llms.Model) *ModelClient {
	return &ModelClient{model: model}
}

func (c *ModelClient) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.model.GenerateContent(ctx, toContent(messages))
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// CompleteStructured generates in JSON mode and unmarshals the reply into out.
// The schema is appended to the last system message so the model knows the
// expected shape.
func (c *ModelClient) CompleteStructured(ctx context.Context, messages []Message, schema string, out any) error {
	withSchema := make([]Message, len(messages))
	copy(withSchema, messages)
	for i := len(withSchema) - 1; i >= 0; i-- {
		if withSchema[i].Role == RoleSystem {
			withSchema[i].Content += "\n\n# Response Format:\n" + schema
			break
		}
	}

	resp, err := c.model.GenerateContent(ctx, toContent(withSchema), llms.WithJSONMode())
	if err != nil {
		return fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("llm returned no choices")
	}

	content := resp.Choices[0].Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("json parse error: %w (content: %s)", err, content)
	}
	return nil
}

func toContent(messages []Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var role llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			role = llms.ChatMessageTypeSystem
		case RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		content = append(content, llms.TextParts(role, m.Content))
	}
	return content
}
