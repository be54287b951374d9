// Package intent determines a query's intent class. Two pure strategies sit
// behind one capability interface: a model-based classifier calling the
// resilient client, and a deterministic keyword matcher. A small Selector
// prefers the model and falls back to keywords on failure or low confidence,
// making the overall classification total: classification failures are
// absorbed, never surfaced. The result's Source tag ("model" vs "fallback")
// is preserved for observability and downstream policy.
package intent
