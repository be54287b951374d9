package session

import (
	"context"
	"sync"

	"github.com/conclave-ai/conclave/core"
)

// Persistence is the durable fallback behind the store's hot cache. Load
// returns core.ErrSessionNotFound for unknown ids; the store absorbs that by
// creating an empty context.
type Persistence interface {
	Load(ctx context.Context, sessionID string) (*core.Context, error)
	Save(ctx context.Context, c *core.Context) error
}

// InMemoryPersistence is a volatile Persistence implementation storing
// contexts in a process local map. It is safe for concurrent access and best
// suited for tests or ephemeral demo setups. Each returned context is cloned
// to prevent external mutation of internal state.
type InMemoryPersistence struct {
	mu       sync.RWMutex
	sessions map[string]*core.Context
}

// NewInMemoryPersistence constructs an empty in-memory persistence backend.
func NewInMemoryPersistence() *InMemoryPersistence {
	return &InMemoryPersistence{sessions: make(map[string]*core.Context)}
}

// Load returns a clone of the stored context or core.ErrSessionNotFound.
func (p *InMemoryPersistence) Load(_ context.Context, sessionID string) (*core.Context, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return c.Clone(), nil
}

// Save stores a clone of the provided context snapshot.
func (p *InMemoryPersistence) Save(_ context.Context, c *core.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[c.SessionID] = c.Clone()
	return nil
}
