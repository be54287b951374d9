package core

import "time"

// Turn records one question/answer exchange within a session, including
// attempted-but-failed exchanges (AgentOutput empty, error recorded in
// Metadata).
type Turn struct {
	ID          string            `json:"id"`
	UserInput   string            `json:"user_input"`
	AgentOutput string            `json:"agent_output"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// NewTurn creates a turn with a fresh ID and UTC timestamp.
func NewTurn(userInput, agentOutput string) Turn {
	return Turn{ID: NewID(), UserInput: userInput, AgentOutput: agentOutput, Metadata: map[string]string{}, Timestamp: time.Now().UTC()}
}

// Context represents a session's conversational state: an ordered sequence of
// turns plus a mutable key/value state blob. Instances returned by the session
// store are snapshots; all mutation goes through the store's Update operation,
// which owns synchronization.
//
// Contract:
//   - AppendTurn and MergeState update the Updated timestamp
//   - Clone performs deep copies of maps/slices for safe divergence
type Context struct {
	SessionID string            `json:"session_id"`
	Turns     []Turn            `json:"turns"`
	State     map[string]any    `json:"state"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Created   time.Time         `json:"created"`
	Updated   time.Time         `json:"updated"`
}

// NewContext creates an empty context bound to the given session id.
func NewContext(sessionID string) *Context {
	now := time.Now().UTC()
	return &Context{SessionID: sessionID, Turns: []Turn{}, State: map[string]any{}, Metadata: map[string]string{}, Created: now, Updated: now}
}

// AppendTurn appends a turn to the history updating the Updated timestamp.
func (c *Context) AppendTurn(t Turn) {
	c.Turns = append(c.Turns, t)
	c.Updated = time.Now().UTC()
}

// MergeState merges the provided key/value pairs into State, last writer wins
// per key.
func (c *Context) MergeState(delta map[string]any) {
	for k, v := range delta {
		c.State[k] = v
	}
	c.Updated = time.Now().UTC()
}

// LastTurn returns the most recent turn and true, or a zero turn and false for
// an empty history.
func (c *Context) LastTurn() (Turn, bool) {
	if len(c.Turns) == 0 {
		return Turn{}, false
	}
	return c.Turns[len(c.Turns)-1], true
}

// Clone returns a deep copy of the context safe for independent mutation.
func (c *Context) Clone() *Context {
	clone := &Context{
		SessionID: c.SessionID,
		Turns:     make([]Turn, len(c.Turns)),
		State:     make(map[string]any, len(c.State)),
		Metadata:  make(map[string]string, len(c.Metadata)),
		Created:   c.Created,
		Updated:   c.Updated,
	}
	for i, t := range c.Turns {
		ct := t
		ct.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			ct.Metadata[k] = v
		}
		clone.Turns[i] = ct
	}
	for k, v := range c.State {
		clone.State[k] = v
	}
	for k, v := range c.Metadata {
		clone.Metadata[k] = v
	}
	return clone
}
