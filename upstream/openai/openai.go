// Package openai provides an upstream.Provider implementation using the
// OpenAI Chat Completions API. It adapts Conclave's normalized Request and
// Response structures into the SDK's message format and back.
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"

	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/upstream"
)

// Options configure the OpenAI provider adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; per-request Params
// override them.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Provider wraps the OpenAI Chat Completions API behind the generic
// upstream.Provider interface.
type Provider struct {
	client *openai.Client
	opts   Options
}

// NewProvider creates a new OpenAI provider using the official client.
func NewProvider(optFns ...func(o *Options)) *Provider {
	client := openai.NewClient()
	return NewProviderFromClient(&client, optFns...)
}

// NewProviderFromClient creates a new OpenAI provider from an existing client.
func NewProviderFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Dialer returns an upstream.Dialer constructing fresh providers with the
// given options, suitable for pool-managed handles.
func Dialer(optFns ...func(o *Options)) upstream.Dialer {
	return func(ctx context.Context) (upstream.Provider, error) {
		return NewProvider(optFns...), nil
	}
}

// Generate implements upstream.Provider.
func (p *Provider) Generate(ctx context.Context, req core.Request) (*core.Response, error) {
	params := p.buildParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, upstream.MarkTransient(fmt.Errorf("openai returned no choices"))
	}

	choice := resp.Choices[0]
	return &core.Response{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: core.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Created: time.Now().UTC(),
	}, nil
}

// Info implements upstream.Provider.
func (p *Provider) Info() upstream.Info {
	return upstream.Info{Name: p.opts.Model, Provider: "openai"}
}

// buildParams assembles the OpenAI request parameters applying per-request
// overrides from req.Params.
func (p *Provider) buildParams(req core.Request) openai.ChatCompletionNewParams {
	model := p.opts.Model
	if req.Model != "" {
		model = req.Model
	}
	temperature := p.opts.Temperature
	if v, ok := floatParam(req.Params, "temperature"); ok {
		temperature = v
	}
	maxTokens := p.opts.MaxCompletionTokens
	if v, ok := floatParam(req.Params, "max_tokens"); ok {
		maxTokens = int64(v)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
}

// floatParam extracts a numeric parameter tolerating json-decoded value types.
func floatParam(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
