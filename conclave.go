// Package conclave provides a high-level façade over the shared agent
// substrate: pooled upstream connections, response caching, retries,
// session-scoped context, intent classification and agent-to-agent
// consultation. Most applications interact with this package by:
//  1. Creating a Conclave via New() with a provider dialer
//  2. Registering one or more agents with their consultation routes
//  3. Asking questions per session via Ask()
//
// The façade wires the underlying packages (pool, cache, client, session,
// intent, consult, agent) from a single config.Config. All defaults are safe
// for local development and testing; production deployments typically supply
// SQLite persistence, a Prometheus telemetry sink and a structured logger.
package conclave

import (
	"context"
	"fmt"
	"sync"

	"github.com/conclave-ai/conclave/agent"
	"github.com/conclave-ai/conclave/cache"
	"github.com/conclave-ai/conclave/client"
	"github.com/conclave-ai/conclave/config"
	"github.com/conclave-ai/conclave/consult"
	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/intent"
	"github.com/conclave-ai/conclave/logging"
	"github.com/conclave-ai/conclave/pool"
	"github.com/conclave-ai/conclave/session"
	"github.com/conclave-ai/conclave/telemetry"
	"github.com/conclave-ai/conclave/upstream"
)

// Options configures the Conclave instance.
type Options struct {
	// Config tunes pool, cache, retry, session, intent and consultation
	// behavior. Defaults to config.Default().
	Config *config.Config

	// Persistence overrides the session backend derived from the config
	// (SQLite when session.db_path is set, in-memory otherwise).
	Persistence session.Persistence

	// TelemetrySink receives metric and span records. Defaults to NoOp.
	TelemetrySink telemetry.Sink

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Conclave is the high-level façade aggregating the substrate services.
type Conclave struct {
	opts   Options
	pool   *pool.Pool
	cache  *cache.Cache[*core.Response]
	client *client.Client
	store  *session.Store
	intent intent.Classifier
	router *consult.Router
	logger logging.Logger

	mu     sync.RWMutex
	agents map[string]*agent.Adapter
}

// New creates a Conclave wired from the given provider dialer and options.
func New(dial upstream.Dialer, optFns ...func(o *Options)) (*Conclave, error) {
	opts := Options{
		Config:        config.Default(),
		TelemetrySink: telemetry.NoOpSink{},
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	tel := telemetry.New(opts.TelemetrySink, opts.Logger)

	pl, err := pool.New(dial, func(o *pool.Options) {
		o.Size = cfg.Pool.Size
		o.WaitTimeout = cfg.Pool.WaitTimeout
		o.Logger = logging.WithComponent(opts.Logger, "pool")
	})
	if err != nil {
		return nil, err
	}

	respCache := cache.New[*core.Response](func(o *cache.Options) {
		o.Capacity = cfg.Cache.Capacity
	})

	cl := client.New(pl, respCache, func(o *client.Options) {
		o.Retry = client.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			Jitter:      cfg.Retry.Jitter,
		}
		o.CacheTTL = cfg.Cache.TTL
		o.Telemetry = tel
		o.Logger = logging.WithComponent(opts.Logger, "client")
	})

	durable := opts.Persistence
	if durable == nil && cfg.Session.DBPath != "" {
		durable, err = session.OpenSQLite(cfg.Session.DBPath)
		if err != nil {
			pl.Close()
			respCache.Stop()
			return nil, fmt.Errorf("open session db: %w", err)
		}
	}
	store := session.NewStore(durable, func(o *session.Options) {
		o.HotTTL = cfg.Session.HotTTL
		o.HotCapacity = cfg.Session.HotCapacity
		o.Logger = logging.WithComponent(opts.Logger, "session")
	})

	fallback := intent.NewKeywordClassifier(cfg.Intent.Rules, cfg.Intent.DefaultLabel)
	var primary intent.Classifier
	if cfg.Intent.Model != "" {
		primary = intent.NewModelClassifier(cl, cfg.Intent.Model, fallback.Labels())
	}
	selector := intent.NewSelector(primary, fallback, cfg.Intent.ConfidenceThreshold, logging.WithComponent(opts.Logger, "intent"))

	router := consult.NewRouter(func(o *consult.Options) {
		o.Timeout = cfg.Consult.Timeout
		o.Telemetry = tel
		o.Logger = logging.WithComponent(opts.Logger, "consult")
	})

	return &Conclave{
		opts:   opts,
		pool:   pl,
		cache:  respCache,
		client: cl,
		store:  store,
		intent: selector,
		router: router,
		logger: opts.Logger,
		agents: make(map[string]*agent.Adapter),
	}, nil
}

// RegisterAgent creates an agent over the shared substrate and registers it
// as a consultation target for its peers. A declaration with the same name
// in the config's agents section seeds the model, instructions and routes;
// option functions are applied on top.
func (c *Conclave) RegisterAgent(name string, optFns ...func(o *agent.Options)) *agent.Adapter {
	seed := func(o *agent.Options) {
		for _, decl := range c.opts.Config.Agents {
			if decl.Name != name {
				continue
			}
			o.Model = decl.Model
			o.Instructions = decl.Instructions
			if decl.HistoryTurns > 0 {
				o.HistoryTurns = decl.HistoryTurns
			}
			o.Routes = decl.Routes
		}
		o.Logger = logging.WithComponent(c.logger, "agent")
	}

	a := agent.New(name, c.client, c.store, c.intent, c.router, append([]func(o *agent.Options){seed}, optFns...)...)
	c.router.Register(name, a.Handler())

	c.mu.Lock()
	c.agents[name] = a
	c.mu.Unlock()
	return a
}

// Agent returns a registered agent by name.
func (c *Conclave) Agent(name string) (*agent.Adapter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.agents[name]
	return a, ok
}

// Ask routes one query to the agent named agentName within the session
// identified by sessionID.
func (c *Conclave) Ask(ctx context.Context, agentName, sessionID, query string) (*agent.Reply, error) {
	a, ok := c.Agent(agentName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrAgentNotFound, agentName)
	}
	return a.Handle(ctx, sessionID, query)
}

// Client exposes the resilient upstream client, e.g. for custom classifiers.
func (c *Conclave) Client() *client.Client { return c.client }

// Store exposes the session context store.
func (c *Conclave) Store() *session.Store { return c.store }

// Router exposes the consultation router for registering external handlers.
func (c *Conclave) Router() *consult.Router { return c.router }

// Close releases pooled connections and stops background maintenance.
func (c *Conclave) Close() error {
	c.pool.Close()
	c.cache.Stop()
	return c.store.Close()
}
