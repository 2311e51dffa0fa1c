package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

// fakeModel scripts a langchaingo model.
type fakeModel struct {
	content     string
	err         error
	gotMessages []llms.MessageContent
	gotOptions  llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.gotMessages = messages
	for _, opt := range options {
		opt(&f.gotOptions)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return f.content, f.err
}

func TestCompleteMapsRoles(t *testing.T) {
	m := &fakeModel{content: "hello"}
	c := NewModelClient(m)

	got, err := c.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "usr"},
		{Role: RoleAssistant, Content: "asst"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("Complete() = %q, want hello", got)
	}

	wantRoles := []llms.ChatMessageType{
		llms.ChatMessageTypeSystem,
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeAI,
	}
	if len(m.gotMessages) != len(wantRoles) {
		t.Fatalf("sent %d messages, want %d", len(m.gotMessages), len(wantRoles))
	}
	for i, want := range wantRoles {
		if m.gotMessages[i].Role != want {
			t.Errorf("message %d role = %v, want %v", i, m.gotMessages[i].Role, want)
		}
	}
}

func TestCompleteModelError(t *testing.T) {
	c := NewModelClient(&fakeModel{err: errors.New("rate limited")})
	if _, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}}); err == nil {
		t.Fatal("Complete() should surface model errors")
	}
}

func TestCompleteNoChoices(t *testing.T) {
	c := NewModelClient(&noChoiceModel{})
	if _, err := c.Complete(context.Background(), []Message{{Role: RoleUser, Content: "q"}}); err == nil {
		t.Fatal("Complete() should fail when the model returns no choices")
	}
}

type noChoiceModel struct{}

func (noChoiceModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func (noChoiceModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func TestCompleteStructured(t *testing.T) {
	m := &fakeModel{content: `{"selected_urls": ["u1", "u2"]}`}
	c := NewModelClient(m)

	var out struct {
		SelectedURLs []string `json:"selected_urls"`
	}
	err := c.CompleteStructured(context.Background(), []Message{
		{Role: RoleSystem, Content: "pick urls"},
		{Role: RoleUser, Content: "posts"},
	}, `{"type": "object"}`, &out)
	if err != nil {
		t.Fatalf("CompleteStructured() error = %v", err)
	}

	if len(out.SelectedURLs) != 2 || out.SelectedURLs[0] != "u1" {
		t.Errorf("out = %+v, want u1,u2", out)
	}
	if !m.gotOptions.JSONMode {
		t.Error("CompleteStructured() should request JSON mode")
	}

	// Schema is appended to the system message, not the user message.
	sys := m.gotMessages[0].Parts[0].(llms.TextContent).Text
	if !strings.Contains(sys, "# Response Format:") || !strings.Contains(sys, `"type": "object"`) {
		t.Errorf("system message %q should carry the schema", sys)
	}
}

func TestCompleteStructuredMalformedOutput(t *testing.T) {
	c := NewModelClient(&fakeModel{content: "sorry, I cannot do that"})

	var out struct{}
	err := c.CompleteStructured(context.Background(), []Message{
		{Role: RoleSystem, Content: "pick"},
	}, "{}", &out)
	if err == nil {
		t.Fatal("CompleteStructured() must error on unparsable output")
	}
	if !strings.Contains(err.Error(), "json parse error") {
		t.Errorf("error = %v, want json parse error", err)
	}
}
