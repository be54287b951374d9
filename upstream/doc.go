// Package upstream defines the provider boundary to the external generative
// AI service: the Provider interface consumed by the connection pool, the
// Dialer used to create handles, and the transient/permanent error
// classification consumed by the resilient client's retry policy.
//
// Concrete adapters live in the subpackages upstream/openai and
// upstream/anthropic; a deterministic MockProvider supports tests and examples.
package upstream
