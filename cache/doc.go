// Package cache provides a concurrency-safe, capacity-bounded TTL cache with
// least-recently-used eviction, plus deterministic request fingerprinting.
// The resilient client uses it to map request fingerprints to upstream
// responses; the session store reuses the same abstraction for hot sessions.
//
// Expired entries are purged opportunistically on access and periodically by
// a background janitor. The cache is never a source of truth: every miss is
// satisfiable by recomputing from upstream.
package cache
