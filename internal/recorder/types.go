// Package recorder implements C6, the Conversation Recorder: it observes
// C3's trace-event stream and produces a ConversationRecord — reasoning
// parsed into structured components, tools and knowledge-base lookups
// paired and deduplicated, agent attribution inferred, prompts
// deduplicated by fingerprint — then exports it to the object store in
// several formats when the session ends.
package recorder

import (
	"time"

	"github.com/GuyDuerFB/revops-gateway/internal/agentclient"
)

// ConversationRecord is the complete, exportable record of one agent
// session, accumulated incrementally as trace events arrive and finalized
// once the session ends.
type ConversationRecord struct {
	SessionID          string
	ConversationID     string
	Channel            string
	SourceSystem       string
	UserQuery          string
	StartedAt          time.Time
	EndedAt            time.Time
	Success            bool
	Error              string
	AssembledResponse  string
	AgentsUsed         []string
	Steps              []AgentStep
	CollaborationMap   []CollaborationEdge // aggregated agent->agent handoff graph, derived from Steps at Finalize
	FunctionAudit      FunctionAudit       // aggregate counters, derived from Steps at Finalize
	PromptFingerprints map[string]string   // fingerprint -> first full prompt text seen
	Quality            QualityMetrics
	RawTrace           []agentclient.TraceEvent
}

// AgentStep groups the trace events attributable to a single
// agent/collaborator turn within the session. The root (manager) agent's
// own activity, before any collaborator is invoked, is recorded as the
// first step with AgentName "manager".
type AgentStep struct {
	AgentName             string               `json:"agent_name"`
	Confidence            float64              `json:"confidence"` // attribution confidence, 0-1
	StartedAt             time.Time            `json:"start_time"`
	EndedAt               time.Time            `json:"end_time"`
	Reasoning             ReasoningBreakdown   `json:"reasoning_breakdown"`
	SystemPrompt          string               `json:"system_prompt,omitempty"` // fingerprinted model-invocation input text, via internOrDigest
	ModelOutput           string               `json:"model_output,omitempty"`  // fingerprinted model-invocation output text, via internOrDigest
	ToolExecutions        []ToolExecution      `json:"tools_used"`
	DataOperations        []DataOperation      `json:"data_operations"`
	KnowledgeSearches     []KnowledgeSearch    `json:"knowledge_base_searches"`
	CollaborationSent     []CollaborationEvent `json:"collaboration_sent"`
	CollaborationReceived []CollaborationEvent `json:"collaboration_received"`
}

// CollaborationEvent is one directed handoff between agents: Agent is the
// collaborator invoked (on a step's CollaborationSent) or the collaborator
// whose output resumed this step (on CollaborationReceived).
type CollaborationEvent struct {
	Agent string    `json:"agent"`
	At    time.Time `json:"at"`
}

// CollaborationEdge is one aggregated agent->agent handoff edge in the
// conversation's collaboration_map, counted across the whole record.
type CollaborationEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// DataOperation is a tool execution identified as querying a known
// downstream data source (CRM, data warehouse, analytics store), tracked
// separately from the generic tools_used list per the data model's split
// between tool usage and data operations.
type DataOperation struct {
	Operation    string `json:"operation"`
	Target       string `json:"target"`
	QuerySummary string `json:"query_summary"`
	Success      bool   `json:"success"`
}

// FunctionAudit aggregates counters across the whole conversation.
type FunctionAudit struct {
	ToolInvocations     int `json:"tool_invocations"`
	DataOperations      int `json:"data_operations"`
	KnowledgeSearches   int `json:"knowledge_base_searches"`
	CollaborationEvents int `json:"collaboration_events"`
}

// ReasoningBreakdown is the structured decomposition of a free-text
// reasoning block, per the bracket-delimited format the agent runtime
// sometimes embeds in rationale/model-output text ([USER],
// [KNOWLEDGE BASE SEARCH], [OBSERVATION], [ASSISTANT]).
type ReasoningBreakdown struct {
	ContextSetup    ContextSetup    `json:"context_setup"`
	DecisionPoints  []DecisionPoint `json:"decision_points"`
	FinalSynthesis  FinalSynthesis  `json:"final_synthesis"`
	ParsingError    string          `json:"parsing_error,omitempty"`
	OriginalExcerpt string          `json:"original_excerpt,omitempty"`
}

// ContextSetup is the current-date/quarter/month and user-request lines a
// reasoning block opens with, when present.
type ContextSetup struct {
	CurrentDate string `json:"current_date,omitempty"`
	Quarter     string `json:"quarter,omitempty"`
	Month       string `json:"month,omitempty"`
	UserRequest string `json:"user_request,omitempty"`
}

// DecisionPoint is a short templated "Based on X, I will Y" phrase
// extracted from reasoning text, capped at five per step.
type DecisionPoint struct {
	Analysis string `json:"analysis"`
	Decision string `json:"decision"`
}

// FinalSynthesis summarizes the step's concluding approach.
type FinalSynthesis struct {
	Approach        string   `json:"approach"`
	DataSourcesUsed []string `json:"data_sources_used"`
	ConfidenceLevel string   `json:"confidence_level"` // high | medium | low
}

// KnowledgeSearch is one knowledge-base lookup paired with its references.
type KnowledgeSearch struct {
	SearchID        int                              `json:"search_id"`
	Query           string                           `json:"query"`
	KnowledgeBaseID string                           `json:"knowledge_base_id"`
	References      []agentclient.KnowledgeReference `json:"references_found"`
}

// ToolExecution is one tool/action-group invocation paired with its
// outcome.
type ToolExecution struct {
	ToolName         string `json:"tool_name"`
	ParametersDigest string `json:"parameters_summary"`
	ResultSummary    string `json:"result_summary"`
	Success          bool   `json:"success"`
}

// QualityMetrics are simple per-record quality signals, stored for
// downstream analysis only — nothing here drives alerting.
type QualityMetrics struct {
	TotalReasoningChars   int
	ToolErrorCount        int
	KnowledgeBaseHitCount int
	WallClockMS           int64
}
