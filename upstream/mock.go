package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/conclave-ai/conclave/core"
)

// MockProvider is a lightweight in-memory Provider useful for tests & examples.
type MockProvider struct {
	info      Info
	responses map[string]string
}

// NewMockProvider constructs a MockProvider.
func NewMockProvider(name, provider string) *MockProvider {
	return &MockProvider{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for a prompt.
func (m *MockProvider) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Generate implements Provider; echoes the prompt unless a canned response exists.
func (m *MockProvider) Generate(ctx context.Context, req core.Request) (*core.Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	prompt := req.Prompt()
	content := m.responses[prompt]
	if content == "" {
		content = fmt.Sprintf("Mock response to: %s", prompt)
	}
	return &core.Response{
		ID:           core.NewID(),
		Model:        m.info.Name,
		Content:      content,
		FinishReason: "stop",
		Usage:        core.Usage{PromptTokens: len(prompt) / 4, CompletionTokens: len(content) / 4, TotalTokens: (len(prompt) + len(content)) / 4},
		Created:      time.Now().UTC(),
	}, nil
}

// Info implements Provider.
func (m *MockProvider) Info() Info { return m.info }
