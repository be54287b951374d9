package upstream

import (
	"context"

	"github.com/conclave-ai/conclave/core"
)

// Info contains metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Provider is a dialed channel to the upstream AI service. One Provider
// instance is owned by exactly one pool handle; the pool guarantees it is
// used by at most one caller at a time.
type Provider interface {
	Generate(ctx context.Context, req core.Request) (*core.Response, error)
	Info() Info
}

// Dialer creates a fresh Provider. The pool invokes it for initial fill and
// for lazy replacement of unhealthy handles. Dialing is assumed expensive;
// that is the point of pooling.
type Dialer func(ctx context.Context) (Provider, error)
