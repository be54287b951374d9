// Package core provides the foundational domain types and interfaces shared by
// the Conclave substrate. It defines the core abstractions for:
//
//   - Contexts (per-session conversational state with ordered turn history)
//   - Upstream requests/responses (normalized generative AI service exchange)
//   - Intent classification results
//   - The error taxonomy surfaced by the substrate components
//
// The package intentionally keeps implementation concerns (pooling, caching,
// retry, persistence, concrete agents) out of scope, exposing small types to
// enable custom backends and extensions.
package core
