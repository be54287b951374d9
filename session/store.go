package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/conclave-ai/conclave/cache"
	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/logging"
)

// Mutation describes one update to a session's context: an optional turn to
// append and an optional state delta to merge (last writer wins per key).
type Mutation struct {
	Turn       *core.Turn
	StateDelta map[string]any
}

// Options configures a Store.
type Options struct {
	// HotTTL bounds how long an idle session stays in the hot cache before
	// falling back to durable persistence. This is the store's expiry
	// policy; the durable copy is retained.
	HotTTL time.Duration
	// HotCapacity bounds the number of hot sessions.
	HotCapacity int
	// Logger for store events. Defaults to NoOp.
	Logger logging.Logger
}

// Store is the per-session context store: a hot cache over a durable
// persistence backend. Operations on the same session are serialized;
// operations across sessions are independent. A read immediately following an
// update by the same caller observes that update.
type Store struct {
	hot     *cache.Cache[*core.Context]
	durable Persistence
	hotTTL  time.Duration
	logger  logging.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is a reference-counted mutex entry for one session id. Entries
// are reaped once no operation references them, so the lock map stays
// proportional to in-flight operations rather than session cardinality.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates a Store over the given persistence backend. A nil backend
// defaults to in-memory persistence.
func NewStore(durable Persistence, optFns ...func(o *Options)) *Store {
	opts := Options{HotTTL: 30 * time.Minute, HotCapacity: 4096, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if durable == nil {
		durable = NewInMemoryPersistence()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Store{
		hot: cache.New[*core.Context](func(o *cache.Options) {
			o.Capacity = opts.HotCapacity
			o.JanitorInterval = opts.HotTTL / 2
		}),
		durable: durable,
		hotTTL:  opts.HotTTL,
		logger:  opts.Logger,
		locks:   make(map[string]*sessionLock),
	}
}

// Get returns a snapshot of the session's context, creating an empty context
// on first reference. It never fails for an unknown session.
func (s *Store) Get(ctx context.Context, sessionID string) (*core.Context, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	c, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// Update applies the mutation to the session's context under the session
// lock, persists the result and refreshes the hot cache. It returns a
// snapshot of the updated context.
func (s *Store) Update(ctx context.Context, sessionID string, m Mutation) (*core.Context, error) {
	unlock := s.lockSession(sessionID)
	defer unlock()

	c, err := s.loadLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if m.Turn != nil {
		c.AppendTurn(*m.Turn)
	}
	if len(m.StateDelta) > 0 {
		c.MergeState(m.StateDelta)
	}

	if err := s.durable.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	s.hot.Put(sessionID, c, s.hotTTL)
	return c.Clone(), nil
}

// Close stops the hot cache janitor and closes the durable backend when it
// holds resources (the SQLite persistence does).
func (s *Store) Close() error {
	s.hot.Stop()
	if c, ok := s.durable.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// loadLocked resolves the authoritative context for a session: hot cache,
// then durable backend, then a fresh empty context. Caller must hold the
// session lock.
func (s *Store) loadLocked(ctx context.Context, sessionID string) (*core.Context, error) {
	if c, ok := s.hot.Get(sessionID); ok {
		return c, nil
	}
	c, err := s.durable.Load(ctx, sessionID)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrSessionNotFound):
		c = core.NewContext(sessionID)
		s.logger.Debug("created new session context", "session_id", sessionID)
	default:
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	s.hot.Put(sessionID, c, s.hotTTL)
	return c, nil
}

// lockSession acquires the mutex sequencing concurrent operations on one
// session id and returns its release func.
func (s *Store) lockSession(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}
