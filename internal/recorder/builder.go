package recorder

import (
	"strings"
	"time"

	"github.com/GuyDuerFB/revops-gateway/internal/agentclient"
)

// builder accumulates one session's trace events into a ConversationRecord.
// C3 already normalizes the raw Bedrock trace into structured TraceEvents,
// so builder's job is grouping and pairing, not text parsing: collaborator
// invoke/output events bound an AgentStep, and tool / knowledge-lookup
// invoke/output events — which arrive as separate TraceEvents, possibly
// with other events interleaved between the two halves — are matched
// FIFO-by-kind rather than by any correlation id, since Bedrock's stream
// does not assign one.
type builder struct {
	record ConversationRecord

	currentStep   *AgentStep
	pendingTools  []pendingTool
	pendingKB     []KnowledgeSearch
	kbSearchSeq   int
	rationaleBuf  []string
	toolErrorSeen map[string]bool // tool_name+digest+outcome -> already recorded
}

// pendingTool is a tool invocation awaiting its paired output.
type pendingTool struct {
	exec   ToolExecution
	paired bool
}

func newBuilder(sessionID, conversationID, channel, sourceSystem, userQuery string, startedAt time.Time) *builder {
	b := &builder{
		record: ConversationRecord{
			SessionID:          sessionID,
			ConversationID:     conversationID,
			Channel:            channel,
			SourceSystem:       sourceSystem,
			UserQuery:          userQuery,
			StartedAt:          startedAt,
			PromptFingerprints: map[string]string{},
		},
		toolErrorSeen: map[string]bool{},
	}
	b.currentStep = &AgentStep{AgentName: "manager", Confidence: 1, StartedAt: startedAt}
	return b
}

func (b *builder) ingest(ev agentclient.TraceEvent) {
	b.record.RawTrace = append(b.record.RawTrace, ev)

	switch ev.EventType {
	case agentclient.EventRationale:
		p, _ := ev.Payload.(agentclient.RationalePayload)
		b.record.Quality.TotalReasoningChars += len(p.Text)
		b.rationaleBuf = append(b.rationaleBuf, p.Text)

	case agentclient.EventCollaboratorInvoke:
		p, _ := ev.Payload.(agentclient.CollaboratorPayload)
		b.currentStep.CollaborationSent = append(b.currentStep.CollaborationSent, CollaborationEvent{Agent: p.Name, At: ev.Timestamp})
		b.closeCurrentStep(ev.Timestamp)
		b.currentStep = &AgentStep{
			AgentName:  p.Name,
			Confidence: attributionConfidence(p.Name, b.rationaleBuf),
			StartedAt:  ev.Timestamp,
		}

	case agentclient.EventCollaboratorOutput:
		p, _ := ev.Payload.(agentclient.CollaboratorPayload)
		b.record.AgentsUsed = appendUnique(b.record.AgentsUsed, p.Name)
		b.closeCurrentStep(ev.Timestamp)
		b.currentStep = &AgentStep{AgentName: "manager", Confidence: 1, StartedAt: ev.Timestamp}
		b.currentStep.CollaborationReceived = append(b.currentStep.CollaborationReceived, CollaborationEvent{Agent: p.Name, At: ev.Timestamp})

	case agentclient.EventModelInput:
		p, _ := ev.Payload.(agentclient.ModelIOPayload)
		if p.Text != "" {
			b.currentStep.SystemPrompt = internOrDigest(b.record.PromptFingerprints, p.Text)
		}

	case agentclient.EventModelOutput:
		p, _ := ev.Payload.(agentclient.ModelIOPayload)
		if p.Text != "" {
			b.currentStep.ModelOutput = internOrDigest(b.record.PromptFingerprints, p.Text)
		}

	case agentclient.EventToolInvoke:
		p, _ := ev.Payload.(agentclient.ToolPayload)
		b.pendingTools = append(b.pendingTools, pendingTool{exec: ToolExecution{
			ToolName:         p.ToolName,
			ParametersDigest: p.ParametersDigest,
		}})

	case agentclient.EventToolOutput:
		p, _ := ev.Payload.(agentclient.ToolPayload)
		b.pairToolOutput(p)

	case agentclient.EventKnowledgeLookup:
		p, _ := ev.Payload.(agentclient.KnowledgeLookupPayload)
		b.pairKnowledgeLookup(p)

	case agentclient.EventError:
		p, _ := ev.Payload.(agentclient.ErrorPayload)
		b.record.Error = p.Message
	}
}

// pairToolOutput matches the oldest pending invoke without a recorded
// outcome — Bedrock delivers tool invoke/output strictly in order per
// action group, so FIFO pairing is exact.
func (b *builder) pairToolOutput(p agentclient.ToolPayload) {
	for i := range b.pendingTools {
		if b.pendingTools[i].paired {
			continue
		}
		exec := &b.pendingTools[i].exec
		exec.ResultSummary = truncate(p.Outcome, 500)
		exec.Success = p.Success
		b.pendingTools[i].paired = true
		if !p.Success {
			b.record.Quality.ToolErrorCount++
		}
		dedupKey := exec.ToolName + "|" + exec.ParametersDigest + "|" + exec.ResultSummary
		if !b.toolErrorSeen[dedupKey] {
			b.toolErrorSeen[dedupKey] = true
			b.currentStep.ToolExecutions = append(b.currentStep.ToolExecutions, *exec)
			if target := dataOperationTarget(exec.ToolName, exec.ParametersDigest); target != "" {
				b.currentStep.DataOperations = append(b.currentStep.DataOperations, DataOperation{
					Operation:    exec.ToolName,
					Target:       target,
					QuerySummary: exec.ParametersDigest,
					Success:      exec.Success,
				})
			}
		}
		b.pendingTools = append(b.pendingTools[:i], b.pendingTools[i+1:]...)
		return
	}
}

// knownDataTools maps a tool-name/parameters substring to the logical data
// source it queries, separating data operations (CRM/warehouse lookups)
// from generic tool usage. Small and bounded by design — new tools that
// don't match simply aren't tracked as data operations.
var knownDataTools = map[string]string{
	"salesforce": "salesforce",
	"hubspot":    "hubspot",
	"snowflake":  "snowflake",
	"warehouse":  "snowflake",
	"sql":        "snowflake",
}

func dataOperationTarget(toolName, parametersDigest string) string {
	lower := strings.ToLower(toolName + " " + parametersDigest)
	for needle, target := range knownDataTools {
		if strings.Contains(lower, needle) {
			return target
		}
	}
	return ""
}

// buildCollaborationMap aggregates every step's CollaborationSent entries
// into agent->agent edge counts, the conversation's collaboration_map.
func buildCollaborationMap(steps []AgentStep) []CollaborationEdge {
	counts := map[[2]string]int{}
	var order [][2]string
	for _, step := range steps {
		for _, sent := range step.CollaborationSent {
			key := [2]string{step.AgentName, sent.Agent}
			if counts[key] == 0 {
				order = append(order, key)
			}
			counts[key]++
		}
	}
	edges := make([]CollaborationEdge, 0, len(order))
	for _, key := range order {
		edges = append(edges, CollaborationEdge{From: key[0], To: key[1], Count: counts[key]})
	}
	return edges
}

// buildFunctionAudit sums per-step counters into the conversation's
// function_audit aggregate.
func buildFunctionAudit(steps []AgentStep) FunctionAudit {
	var fa FunctionAudit
	for _, step := range steps {
		fa.ToolInvocations += len(step.ToolExecutions)
		fa.DataOperations += len(step.DataOperations)
		fa.KnowledgeSearches += len(step.KnowledgeSearches)
		fa.CollaborationEvents += len(step.CollaborationSent) + len(step.CollaborationReceived)
	}
	return fa
}

// pairKnowledgeLookup handles the two-phase knowledge_lookup event: one
// carries the query, a later one (possibly after other events) carries the
// references. Matched FIFO by search slot, same rationale as tool pairing.
func (b *builder) pairKnowledgeLookup(p agentclient.KnowledgeLookupPayload) {
	if p.Query != "" {
		b.kbSearchSeq++
		b.pendingKB = append(b.pendingKB, KnowledgeSearch{
			SearchID:        b.kbSearchSeq,
			Query:           p.Query,
			KnowledgeBaseID: p.KnowledgeBaseID,
		})
		return
	}
	for i := range b.pendingKB {
		if b.pendingKB[i].References == nil {
			b.pendingKB[i].References = p.References
			b.record.Quality.KnowledgeBaseHitCount += len(p.References)
			b.currentStep.KnowledgeSearches = append(b.currentStep.KnowledgeSearches, b.pendingKB[i])
			b.pendingKB = append(b.pendingKB[:i], b.pendingKB[i+1:]...)
			return
		}
	}
}

func (b *builder) closeCurrentStep(endedAt time.Time) {
	b.currentStep.EndedAt = endedAt
	reasoningText := strings.Join(b.rationaleBuf, "\n")
	b.currentStep.Reasoning = parseReasoningText(reasoningText)
	if reasoningText != "" {
		b.currentStep.Reasoning.OriginalExcerpt = internOrDigest(b.record.PromptFingerprints, reasoningText)
	}
	b.rationaleBuf = nil
	b.record.Steps = append(b.record.Steps, *b.currentStep)
}

func (b *builder) finalize(result agentclient.SessionResult) ConversationRecord {
	b.closeCurrentStep(result.EndedAt)

	b.record.EndedAt = result.EndedAt
	b.record.Success = result.Success
	b.record.Error = result.Error
	b.record.AssembledResponse = result.AssembledResponse
	if len(result.AgentsUsed) > 0 {
		b.record.AgentsUsed = result.AgentsUsed
	}
	b.record.Quality.WallClockMS = result.EndedAt.Sub(result.StartedAt).Milliseconds()
	b.record.CollaborationMap = buildCollaborationMap(b.record.Steps)
	b.record.FunctionAudit = buildFunctionAudit(b.record.Steps)
	return b.record
}

// attributionConfidence scores how confident the grouping is that the
// upcoming step truly belongs to the named collaborator: Bedrock's own
// AgentCollaboratorInvocationInput event names the collaborator directly,
// which is already exact, but a rationale mentioning the same name in a
// handoff phrase just beforehand corroborates it.
func attributionConfidence(name string, recentRationale []string) float64 {
	if name == "" {
		return 0.5
	}
	confidence := 0.8
	for _, r := range recentRationale {
		if strings.Contains(strings.ToLower(r), strings.ToLower(name)) {
			confidence = 1.0
			break
		}
	}
	return confidence
}

func appendUnique(list []string, item string) []string {
	if item == "" {
		return list
	}
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
