package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/conclave-ai/conclave/client"
	"github.com/conclave-ai/conclave/consult"
	"github.com/conclave-ai/conclave/core"
	"github.com/conclave-ai/conclave/intent"
	"github.com/conclave-ai/conclave/logging"
	"github.com/conclave-ai/conclave/session"
)

// State is one step of the adapter's per-query state machine.
type State string

const (
	// StateStart is the initial state of every query.
	StateStart State = "START"
	// StateContextLoaded follows a successful context read.
	StateContextLoaded State = "CONTEXT_LOADED"
	// StateClassified follows intent classification.
	StateClassified State = "CLASSIFIED"
	// StateConsulting is entered only when the intent maps to a peer agent.
	StateConsulting State = "CONSULTING"
	// StateGenerating covers the upstream generation call.
	StateGenerating State = "GENERATING"
	// StateContextUpdated follows the post-generation context write.
	StateContextUpdated State = "CONTEXT_UPDATED"
	// StateDone is the successful terminal state.
	StateDone State = "DONE"
	// StateFailed is the terminal state reachable from any step on a
	// non-recoverable error.
	StateFailed State = "FAILED"
)

// Reply is the structured answer returned for one handled query.
type Reply struct {
	Answer    string
	Intent    core.IntentResult
	Consulted string // peer agent id, "" if no consultation happened
	Usage     core.Usage
	Cached    bool
}

// DomainLogic builds the upstream request as a pure function of the query,
// context snapshot, classification and optional peer answer. Business
// reasoning beyond prompt construction lives behind this function.
type DomainLogic func(query string, c *core.Context, res core.IntentResult, peer *consult.Response) core.Request

// Options configures an Adapter.
type Options struct {
	// Model passed to the default domain logic.
	Model string
	// Instructions is the system prompt used by the default domain logic.
	Instructions string
	// HistoryTurns bounds how many prior turns the default domain logic
	// replays to the model.
	HistoryTurns int
	// Routes maps intent labels to peer agent ids. A query whose resolved
	// label appears here triggers a consultation before generating.
	Routes map[string]string
	// SkipConsultOnFallback suppresses delegation when the classification
	// came from the low-confidence fallback path.
	SkipConsultOnFallback bool
	// FailOnConsultError fails the turn on consultation errors instead of
	// proceeding degraded (answering without peer input).
	FailOnConsultError bool
	// MergeContextDelta merges a peer's context delta into the session on
	// successful consultations.
	MergeContextDelta bool
	// Logic overrides the default prompt-building domain logic.
	Logic DomainLogic
	// Logger for adapter events. Defaults to NoOp.
	Logger logging.Logger
}

// Adapter is the composition root for one agent: it holds the resilient
// client, context store, intent classifier and consultation router as
// injected capabilities and walks each query through the state machine
// START -> CONTEXT_LOADED -> CLASSIFIED -> [CONSULTING] -> GENERATING ->
// CONTEXT_UPDATED -> DONE, recording failed turns best-effort before
// surfacing errors.
type Adapter struct {
	name       string
	client     *client.Client
	store      *session.Store
	classifier intent.Classifier
	router     *consult.Router
	opts       Options
	logic      DomainLogic
	logger     logging.Logger
}

// New creates an Adapter named name over the injected capabilities.
func New(name string, cl *client.Client, st *session.Store, cf intent.Classifier, rt *consult.Router, optFns ...func(o *Options)) *Adapter {
	opts := Options{
		Model:             "",
		HistoryTurns:      8,
		MergeContextDelta: true,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	a := &Adapter{
		name:       name,
		client:     cl,
		store:      st,
		classifier: cf,
		router:     rt,
		opts:       opts,
		logic:      opts.Logic,
		logger:     opts.Logger,
	}
	if a.logic == nil {
		a.logic = a.defaultLogic
	}
	return a
}

// Name returns the agent's identifier.
func (a *Adapter) Name() string { return a.name }

// Handle answers one query for the given session.
func (a *Adapter) Handle(ctx context.Context, sessionID, query string) (*Reply, error) {
	state := StateStart
	start := time.Now()
	log := logging.WithSession(a.logger, sessionID)

	fail := func(err error, msg string) (*Reply, error) {
		state = StateFailed
		a.recordFailure(ctx, sessionID, query, err)
		logging.Turn(log, a.name, string(state), "", time.Since(start), err)
		return nil, core.NewTurnError(msg, err)
	}

	cctx, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return fail(err, "loading session context")
	}
	state = StateContextLoaded

	res, err := a.classifier.Classify(ctx, query, cctx)
	if err != nil {
		// The selector is total; a raw classifier injected directly may not be.
		return fail(err, "classifying query")
	}
	state = StateClassified

	var peer *consult.Response
	var consulted string
	if target, ok := a.opts.Routes[res.Label]; ok && a.shouldConsult(res) {
		state = StateConsulting
		resp, err := a.router.Consult(ctx, target, query, cctx)
		if err != nil {
			if a.opts.FailOnConsultError {
				return fail(err, fmt.Sprintf("consulting %s", target))
			}
			log.Warn("proceeding without peer input", "agent", a.name, "target", target, "error", err)
		} else {
			peer = &resp
			consulted = target
			if a.opts.MergeContextDelta && len(resp.ContextDelta) > 0 {
				if updated, err := a.store.Update(ctx, sessionID, session.Mutation{StateDelta: resp.ContextDelta}); err == nil {
					cctx = updated
				} else {
					log.Warn("failed to merge peer context delta", "agent", a.name, "error", err)
				}
			}
		}
	}

	state = StateGenerating
	resp, err := a.client.Generate(ctx, a.logic(query, cctx, res, peer))
	if err != nil {
		return fail(err, "generating answer")
	}

	turn := core.NewTurn(query, resp.Content)
	turn.Metadata["agent"] = a.name
	turn.Metadata["intent"] = res.Label
	turn.Metadata["intent_source"] = string(res.Source)
	turn.Metadata["intent_confidence"] = fmt.Sprintf("%.2f", res.Confidence)
	if consulted != "" {
		turn.Metadata["consulted"] = consulted
	}
	if _, err := a.store.Update(ctx, sessionID, session.Mutation{Turn: &turn}); err != nil {
		return fail(err, "updating session context")
	}
	state = StateContextUpdated

	state = StateDone
	logging.Turn(log, a.name, string(state), res.Label, time.Since(start), nil)
	return &Reply{Answer: resp.Content, Intent: res, Consulted: consulted, Usage: resp.Usage, Cached: resp.Cached}, nil
}

// Handler exposes the adapter as a consultation target. Peers answer
// statelessly from the caller's context snapshot: no session is read or
// written on the consulted side.
func (a *Adapter) Handler() consult.Handler {
	return func(ctx context.Context, req consult.Request) (consult.Response, error) {
		res, err := a.classifier.Classify(ctx, req.Query, req.Context)
		if err != nil {
			return consult.Response{}, err
		}
		resp, err := a.client.Generate(ctx, a.logic(req.Query, req.Context, res, nil))
		if err != nil {
			return consult.Response{}, err
		}
		return consult.Response{Answer: resp.Content, Status: "ok"}, nil
	}
}

func (a *Adapter) shouldConsult(res core.IntentResult) bool {
	if a.opts.SkipConsultOnFallback && res.Degraded() {
		return false
	}
	return true
}

// recordFailure writes a best-effort failure turn so session history reflects
// attempted-but-failed exchanges. It runs detached from the caller's
// (possibly expired) deadline.
func (a *Adapter) recordFailure(ctx context.Context, sessionID, query string, cause error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	turn := core.NewTurn(query, "")
	turn.Metadata["agent"] = a.name
	turn.Metadata["failed"] = "true"
	turn.Metadata["error_kind"] = core.KindOf(cause)
	turn.Metadata["error"] = cause.Error()
	if _, err := a.store.Update(wctx, sessionID, session.Mutation{Turn: &turn}); err != nil {
		a.logger.Error("failed to record failure turn", "agent", a.name, "session_id", sessionID, "error", err)
	}
}

// defaultLogic builds a chat request from the system instructions, recent
// turn history, the peer's answer if any, and the query.
func (a *Adapter) defaultLogic(query string, c *core.Context, _ core.IntentResult, peer *consult.Response) core.Request {
	var messages []core.Message
	if a.opts.Instructions != "" {
		messages = append(messages, core.Message{Role: "system", Content: a.opts.Instructions})
	}
	if c != nil {
		turns := c.Turns
		if n := a.opts.HistoryTurns; n > 0 && len(turns) > n {
			turns = turns[len(turns)-n:]
		}
		for _, t := range turns {
			if t.Metadata["failed"] == "true" {
				continue
			}
			messages = append(messages,
				core.Message{Role: "user", Content: t.UserInput},
				core.Message{Role: "assistant", Content: t.AgentOutput},
			)
		}
	}
	if peer != nil && peer.Answer != "" {
		messages = append(messages, core.Message{
			Role:    "system",
			Content: fmt.Sprintf("A consulted specialist agent answered: %s", peer.Answer),
		})
	}
	messages = append(messages, core.Message{Role: "user", Content: query})

	return core.Request{Model: a.opts.Model, Messages: messages}
}
