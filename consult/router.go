package consult

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/logging"
	"github.com/conclave-ai/conclave/telemetry"
)

// Request carries one consultation to a peer agent: the target, the query
// and a read-only snapshot of the caller's context. Created by the router,
// consumed once, not retained.
type Request struct {
	TargetAgentID string
	Query         string
	Context       *core.Context
}

// Response is a peer agent's structured answer. Any context change the peer
// wants to propagate is returned in ContextDelta and merged by the caller;
// the peer never mutates the caller's context directly.
type Response struct {
	Answer       string
	Status       string // "ok" or "error"
	Latency      time.Duration
	ContextDelta map[string]any
}

// Handler answers consultations on behalf of one agent.
type Handler func(ctx context.Context, req Request) (Response, error)

// Options configures a Router.
type Options struct {
	// Timeout is the per-consultation deadline the router enforces.
	Timeout time.Duration
	// Telemetry wraps consultation dispatch. Defaults to a no-op wrapper.
	Telemetry *telemetry.Telemetry
	// Logger for router events. Defaults to NoOp.
	Logger logging.Logger
}

// Router dispatches consultations to registered peer agent handlers with
// failure containment. It performs no retries: the semantics of re-asking a
// peer are caller-specific, so retry policy belongs to the caller.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	timeout time.Duration
	tel     *telemetry.Telemetry
	logger  logging.Logger
}

// NewRouter creates a Router.
func NewRouter(optFns ...func(o *Options)) *Router {
	opts := Options{Timeout: 10 * time.Second, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.New(telemetry.NoOpSink{}, opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Router{
		handlers: make(map[string]Handler),
		timeout:  opts.Timeout,
		tel:      opts.Telemetry,
		logger:   opts.Logger,
	}
}

// Register binds a handler to an agent id, replacing any previous binding.
func (r *Router) Register(agentID string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[agentID] = h
}

// Registered reports whether a handler exists for the agent id.
func (r *Router) Registered(agentID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[agentID]
	return ok
}

// Consult dispatches the query to the target agent's handler, passing a
// read-only snapshot of the caller's context. The handler runs under a
// sub-deadline strictly below the caller's remaining budget so the caller can
// still update its context after a timeout. Failure modes: AgentNotFound
// (unregistered target, no retry), ConsultationTimeout (deadline exceeded),
// ConsultationFailed (handler error or panic).
func (r *Router) Consult(ctx context.Context, targetAgentID, query string, callerCtx *core.Context) (Response, error) {
	r.mu.RLock()
	h, ok := r.handlers[targetAgentID]
	r.mu.RUnlock()
	if !ok {
		return Response{Status: "error"}, fmt.Errorf("no handler for %q: %w", targetAgentID, core.ErrAgentNotFound)
	}

	var snapshot *core.Context
	if callerCtx != nil {
		snapshot = callerCtx.Clone()
	}
	req := Request{TargetAgentID: targetAgentID, Query: query, Context: snapshot}

	deadline := r.subDeadline(ctx)
	subCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	resp, err := telemetry.Observe(r.tel, "consultation", map[string]string{"target": targetAgentID}, func() (Response, error) {
		return r.dispatch(subCtx, h, req, deadline)
	})
	resp.Latency = time.Since(start)
	logging.Consultation(r.logger, targetAgentID, resp.Latency, err)
	if err != nil {
		resp.Status = "error"
		return resp, err
	}
	if resp.Status == "" {
		resp.Status = "ok"
	}
	return resp, nil
}

// dispatch runs the handler in its own goroutine so a stalled peer cannot
// hold the caller past the sub-deadline. Panics are contained and reported
// as ConsultationFailed.
func (r *Router) dispatch(ctx context.Context, h Handler, req Request, deadline time.Duration) (Response, error) {
	type outcome struct {
		resp Response
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("consultation handler panicked", "target", req.TargetAgentID, "panic", rec)
				done <- outcome{err: fmt.Errorf("handler panic: %v: %w", rec, core.ErrConsultationFailed)}
			}
		}()
		resp, err := h(ctx, req)
		if err != nil {
			err = fmt.Errorf("%v: %w", err, core.ErrConsultationFailed)
		}
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		return out.resp, out.err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Response{}, fmt.Errorf("target %q exceeded %s: %w", req.TargetAgentID, deadline, core.ErrConsultationTimeout)
		}
		return Response{}, ctx.Err()
	}
}

// subDeadline returns the router's consultation budget: the configured
// timeout, shrunk to 80% of the caller's remaining budget when that is
// tighter, so the caller retains room to act after a timeout.
func (r *Router) subDeadline(ctx context.Context) time.Duration {
	d := r.timeout
	if dl, ok := ctx.Deadline(); ok {
		remaining := time.Until(dl)
		if budget := remaining * 8 / 10; budget < d {
			d = budget
		}
	}
	if d <= 0 {
		d = time.Millisecond
	}
	return d
}
