// Package agentclient implements C3, the Agent Invoker: it claims a
// workitem.WorkItem, opens a streamed session against the remote foundation
// model agent, assembles the response, forwards normalized trace events to
// the conversation recorder, surfaces throttled progress back to chat
// origins, and — for webhook origins — hands the finished response to the
// classifier and delivery engine.
package agentclient

import "time"

// EventType enumerates the normalized trace-event kinds the recorder (C6)
// consumes, per the data model's TraceEvent.event_type.
type EventType string

const (
	EventChunk              EventType = "chunk"
	EventRationale          EventType = "rationale"
	EventCollaboratorInvoke EventType = "collaborator_invoke"
	EventCollaboratorOutput EventType = "collaborator_output"
	EventToolInvoke         EventType = "tool_invoke"
	EventToolOutput         EventType = "tool_output"
	EventKnowledgeLookup    EventType = "knowledge_lookup"
	EventModelInput         EventType = "model_input"
	EventModelOutput        EventType = "model_output"
	EventError              EventType = "error"
	EventLifecycle          EventType = "lifecycle"
)

// TraceEvent is the normalized, ordered unit forwarded to the recorder.
// Payload is type-dependent per EventType; see the individual payload
// structs below for the concrete shapes normalize.go stashes there.
type TraceEvent struct {
	EventType EventType
	Timestamp time.Time
	Payload   any
}

// Recorder is C6's consumption contract: it receives every normalized trace
// event for a session in stream order, then Finalize once the session ends.
// Defined here (not in the recorder package) so agentclient has no import
// dependency on the recorder's internals — the recorder depends on this
// package's types, not the reverse.
type Recorder interface {
	// Start begins a new conversation record. channel/sourceSystem are
	// empty for origins where they do not apply.
	Start(sessionID, conversationID, channel, sourceSystem, userQuery string, startedAt time.Time)
	// Record appends one normalized trace event, in stream order.
	Record(sessionID string, ev TraceEvent)
	// Finalize closes the record and triggers export; it does not wait for
	// the export to finish, so the caller is never blocked on the object
	// store.
	Finalize(sessionID string, result SessionResult)
}

// SessionResult is what C3 reports to the recorder and to its own caller
// once a streamed invocation ends, successfully or not.
type SessionResult struct {
	AssembledResponse string
	Success           bool
	Error             string
	StartedAt         time.Time
	EndedAt           time.Time
	AgentsUsed        []string
}

// RationalePayload carries the agent's own reasoning text for an
// EventRationale trace event.
type RationalePayload struct {
	Text string
}

// CollaboratorPayload names the collaborator agent invoked or returning, for
// EventCollaboratorInvoke / EventCollaboratorOutput.
type CollaboratorPayload struct {
	Name   string
	Output string
}

// ToolPayload describes a tool/action-group invocation or its outcome, for
// EventToolInvoke / EventToolOutput.
type ToolPayload struct {
	ToolName         string
	ParametersDigest string
	Outcome          string
	Success          bool
}

// KnowledgeLookupPayload carries a knowledge-base search and its references,
// for EventKnowledgeLookup.
type KnowledgeLookupPayload struct {
	KnowledgeBaseID string
	Query           string
	References      []KnowledgeReference
}

// KnowledgeReference is a single retrieved reference within a knowledge
// lookup, capped to a 500-character content snippet per §4.6.
type KnowledgeReference struct {
	ID       string
	Snippet  string
	Location string
}

// ModelIOPayload captures a raw model input or output block, for
// EventModelInput / EventModelOutput.
type ModelIOPayload struct {
	Text string
}

// ErrorPayload carries an error surfaced mid-stream, for EventError.
type ErrorPayload struct {
	Message string
}

// LifecyclePayload marks a state-machine transition, for EventLifecycle.
type LifecyclePayload struct {
	State string
}
