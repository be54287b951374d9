package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/logging"
	"github.com/conclave-ai/conclave/upstream"
)

// Handle is a reusable channel to the upstream AI service. It is owned
// exclusively by the pool and checked out to at most one caller at a time,
// so its fields need no internal locking.
type Handle struct {
	provider upstream.Provider
	created  time.Time
	lastUsed time.Time
	healthy  bool
}

// Provider returns the dialed provider backing this handle.
func (h *Handle) Provider() upstream.Provider { return h.provider }

// MarkUnhealthy flags the handle for discard at release time. The pool
// replaces discarded handles lazily on a later acquisition.
func (h *Handle) MarkUnhealthy() { h.healthy = false }

// Healthy reports whether the handle is still usable.
func (h *Handle) Healthy() bool { return h.healthy }

// Created returns the handle's creation time.
func (h *Handle) Created() time.Time { return h.created }

// LastUsed returns the time the handle was last checked out.
func (h *Handle) LastUsed() time.Time { return h.lastUsed }

// Options configures a Pool.
type Options struct {
	// Size is the fixed upper bound of concurrently checked-out handles.
	Size int
	// WaitTimeout bounds how long Acquire waits for a free handle before
	// failing with core.ErrPoolExhausted.
	WaitTimeout time.Duration
	// Logger for pool lifecycle events. Defaults to NoOp.
	Logger logging.Logger
}

// Pool owns a bounded set of reusable upstream handles, amortizing expensive
// handle creation across callers. Handles are created lazily: the pool starts
// with empty slots and dials on first acquisition of each slot.
type Pool struct {
	dial        upstream.Dialer
	free        chan *Handle
	size        int
	waitTimeout time.Duration
	logger      logging.Logger

	mu     sync.Mutex
	closed bool

	inUse    atomic.Int64
	dials    atomic.Int64
	discards atomic.Int64
}

// New creates a Pool with the given dialer and options.
func New(dial upstream.Dialer, optFns ...func(o *Options)) (*Pool, error) {
	if dial == nil {
		return nil, fmt.Errorf("pool: dialer must not be nil")
	}
	opts := Options{Size: 4, WaitTimeout: 5 * time.Second, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Size <= 0 {
		return nil, fmt.Errorf("pool: size must be positive, got %d", opts.Size)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	p := &Pool{
		dial:        dial,
		free:        make(chan *Handle, opts.Size),
		size:        opts.Size,
		waitTimeout: opts.WaitTimeout,
		logger:      opts.Logger,
	}
	// Empty slots; each dials lazily on first checkout.
	for i := 0; i < opts.Size; i++ {
		p.free <- nil
	}
	return p, nil
}

// Acquire checks out a handle, waiting until one is free or the wait timeout
// elapses. It never hands out an unhealthy handle: empty or discarded slots
// are transparently redialed. Fails with core.ErrPoolExhausted on timeout,
// core.ErrPoolClosed after Close, or ctx.Err() on caller cancellation.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	if p.isClosed() {
		return nil, core.ErrPoolClosed
	}

	timer := time.NewTimer(p.waitTimeout)
	defer timer.Stop()

	var h *Handle
	select {
	case h = <-p.free:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("no handle free within %s: %w", p.waitTimeout, core.ErrPoolExhausted)
	}

	// Close may have raced with the checkout; do not hand out from a
	// drained pool.
	if p.isClosed() {
		return nil, core.ErrPoolClosed
	}

	if h == nil || !h.healthy {
		dialed, err := p.dial(ctx)
		if err != nil {
			// Return the slot so the pool bound is preserved.
			p.free <- nil
			return nil, fmt.Errorf("dial upstream: %w", err)
		}
		p.dials.Add(1)
		h = &Handle{provider: dialed, created: time.Now(), healthy: true}
		p.logger.Debug("dialed new handle", "provider", dialed.Info().Provider)
	}

	h.lastUsed = time.Now()
	p.inUse.Add(1)
	return h, nil
}

// Release returns a handle to the free set. Unhealthy handles are discarded
// and their slot refilled lazily on the next acquisition.
func (p *Pool) Release(h *Handle) {
	if h == nil {
		return
	}
	p.inUse.Add(-1)

	if p.isClosed() {
		return
	}
	if !h.healthy {
		p.discards.Add(1)
		p.logger.Debug("discarded unhealthy handle")
		h = nil
	}
	select {
	case p.free <- h:
	default:
		// Slot accounting guarantees room unless Close drained concurrently.
	}
}

// Close drains the pool and rejects further acquisitions. Handles still
// checked out are discarded when released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case <-p.free:
		default:
			p.logger.Info("pool closed", "dials", p.dials.Load(), "discards", p.discards.Load())
			return nil
		}
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	Size     int   `json:"size"`
	InUse    int64 `json:"in_use"`
	Dials    int64 `json:"dials"`
	Discards int64 `json:"discards"`
}

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	return Stats{Size: p.size, InUse: p.inUse.Load(), Dials: p.dials.Load(), Discards: p.discards.Load()}
}
