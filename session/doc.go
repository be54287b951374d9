// Package session provides the per-session context store: a hot cache over a
// durable persistence backend. Contexts are created lazily on first access
// and mutated only through the store's Update operation, which serializes
// concurrent updates to the same session id while keeping sessions fully
// independent of each other.
//
// Two persistence backends ship with the package: a volatile in-memory map
// for tests and demos, and a SQLite-backed store for real deployments.
package session
