package core

import "time"

// Message is a single chat message exchanged with the upstream service.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Request captures the normalized upstream input produced by agent adapters.
// Params carries provider-specific generation parameters (temperature,
// max_tokens, top_p, ...) as an open map so the fingerprint can canonicalize
// them without per-provider branching.
type Request struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Params   map[string]any `json:"params,omitempty"`
}

// Prompt returns the content of the last user message, or "" if none exists.
// Convenience for logging and deterministic test providers.
func (r Request) Prompt() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Usage captures token usage statistics for a response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final result of one upstream generation.
type Response struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason"` // "stop", "length", etc.
	Usage        Usage     `json:"usage"`
	Created      time.Time `json:"created"`
	Cached       bool      `json:"cached,omitempty"`
}
