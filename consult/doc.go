// Package consult implements the agent-to-agent (A2A) consultation protocol:
// a registry of peer agent handlers and a router dispatching queries to them
// under a sub-deadline, with failure containment. Peers receive a read-only
// snapshot of the caller's context and propagate changes only through the
// response's context delta, which the caller merges on opt-in.
package consult
