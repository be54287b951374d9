// Package anthropic provides an upstream.Provider implementation using the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/upstream"
)

// Options configures the Anthropic provider adapter (temperature, model id,
// max tokens, API key). Per-request Params override temperature and max tokens.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Provider wraps the Anthropic Messages API behind the generic
// upstream.Provider interface.
type Provider struct {
	client *anthropic.Client
	opts   Options
}

// NewProvider creates a new Anthropic provider using the official client.
func NewProvider(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewProviderFromClient creates a new Anthropic provider from an existing client.
func NewProviderFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
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

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.AsText().Text
		}
	}

	finishReason := "stop"
	if resp.StopReason != "" {
		finishReason = string(resp.StopReason)
	}

	return &core.Response{
		ID:           resp.ID,
		Model:        string(resp.Model),
		Content:      content,
		FinishReason: finishReason,
		Usage: core.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		Created: time.Now().UTC(),
	}, nil
}

// Info implements upstream.Provider.
func (p *Provider) Info() upstream.Info {
	return upstream.Info{Name: string(p.opts.Model), Provider: "anthropic"}
}

// buildParams assembles the Anthropic request, splitting out system messages
// which the Messages API carries separately.
func (p *Provider) buildParams(req core.Request) anthropic.MessageNewParams {
	model := p.opts.Model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}
	temperature := p.opts.Temperature
	if v, ok := req.Params["temperature"].(float64); ok {
		temperature = v
	}
	maxTokens := p.opts.MaxTokens
	if v, ok := req.Params["max_tokens"].(float64); ok {
		maxTokens = int64(v)
	}

	var messages []anthropic.MessageParam
	var systemBlocks []anthropic.TextBlockParam
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			if m.Content != "" {
				systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: m.Content})
			}
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			// Treat unknown roles as user
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	return params
}
