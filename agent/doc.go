// Package agent provides the Adapter composing the substrate for one agent:
// context store reads, intent classification, optional peer consultation,
// resilient upstream generation and the closing context write. Capabilities
// are injected, never inherited; the agent's domain reasoning is a pure
// function of (query, context, classification, optional peer answer).
package agent
