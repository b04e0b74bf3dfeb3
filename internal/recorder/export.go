package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const formatVersion = "1.0"
const exporterName = "revops-gateway-recorder"

// Store is the subset of objectstore.Store this package needs, mirrored
// as an interface so export tests never touch a real bucket.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte, metadata map[string]string) error
}

// ObjectExporter implements Exporter by serializing a ConversationRecord
// into the five artifacts §4.6 names and writing each to the object
// store under conversation-history/YYYY/MM/DD/{timestamp_dir}/.
type ObjectExporter struct {
	store Store
}

// NewObjectExporter wraps an object store, such as *objectstore.Store.
func NewObjectExporter(store Store) *ObjectExporter {
	return &ObjectExporter{store: store}
}

// Export writes all five artifacts. A failure on any individual Put is
// data loss — the in-memory record is gone once this returns — so the
// first error aborts the remaining writes and is returned for the caller
// to alert on.
func (e *ObjectExporter) Export(ctx context.Context, record ConversationRecord) error {
	prefix := exportPrefix(record)
	exportedAt := record.EndedAt
	if exportedAt.IsZero() {
		exportedAt = time.Now().UTC()
	}

	artifacts := []struct {
		name string
		body []byte
	}{
		{"conversation.json", buildTransformEnvelope(record, exportedAt)},
		{"conversation.txt", []byte(renderNarrative(record))},
		{"analysis.json", buildAnalysis(record)},
		{"metadata.json", buildMetadata(record, exportedAt)},
		{"traces.json", buildTraces(record)},
	}

	for _, a := range artifacts {
		meta := map[string]string{
			"conversation-id": record.ConversationID,
			"exported-at":     exportedAt.UTC().Format(time.RFC3339),
			"format":          a.name,
			"channel":         record.Channel,
			"source-system":   record.SourceSystem,
			"size-bytes":      strconv.Itoa(len(a.body)),
		}
		if err := e.store.Put(ctx, prefix+a.name, "application/json", a.body, meta); err != nil {
			return fmt.Errorf("exporting %s for conversation %s: %w", a.name, record.ConversationID, err)
		}
	}
	return nil
}

func exportPrefix(record ConversationRecord) string {
	at := record.EndedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return fmt.Sprintf("conversation-history/%04d/%02d/%02d/%s/",
		at.Year(), at.Month(), at.Day(), at.UTC().Format("150405")+"-"+record.ConversationID)
}

// transformEnvelope mirrors conversation_transformer.py's
// transform_to_enhanced_structure output shape.
type transformEnvelope struct {
	ExportMetadata exportMetadata `json:"export_metadata"`
	Conversation   *transformBody `json:"conversation,omitempty"`
	TransformError string         `json:"transform_error,omitempty"`
	RawStepCount   int            `json:"raw_step_count,omitempty"`
}

type exportMetadata struct {
	ExportedAt    string `json:"exported_at"`
	FormatVersion string `json:"format_version"`
	Exporter      string `json:"exporter"`
}

type transformBody struct {
	Metadata            conversationMetadata `json:"metadata"`
	AgentFlow           []AgentStep          `json:"agent_flow"`
	ConversationSummary conversationSummary  `json:"conversation_summary"`
	CollaborationMap    []CollaborationEdge  `json:"collaboration_map"`
	FunctionAudit       FunctionAudit        `json:"function_audit"`
	Fingerprints        map[string]string    `json:"system_prompt_fingerprints"`
}

type conversationMetadata struct {
	ConversationID string `json:"conversation_id"`
	SessionID      string `json:"session_id"`
	Channel        string `json:"channel,omitempty"`
	SourceSystem   string `json:"source_system,omitempty"`
	UserQuery      string `json:"user_query"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
	DurationMS     int64  `json:"duration_ms"`
}

type conversationSummary struct {
	KnowledgeBaseSearchCount int            `json:"knowledge_base_search_count"`
	ToolExecutionsByName     map[string]int `json:"tool_executions_by_name"`
	DataOperationsCount      int            `json:"data_operations_count"`
	KnowledgeSources         []string       `json:"knowledge_sources"`
	DatabasesQueried         []string       `json:"databases_queried"`
}

func buildTransformEnvelope(record ConversationRecord, exportedAt time.Time) []byte {
	meta := exportMetadata{
		ExportedAt:    exportedAt.UTC().Format(time.RFC3339),
		FormatVersion: formatVersion,
		Exporter:      exporterName,
	}

	body, err := func() (_ *transformBody, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic building transform body: %v", r)
			}
		}()
		return &transformBody{
			Metadata: conversationMetadata{
				ConversationID: record.ConversationID,
				SessionID:      record.SessionID,
				Channel:        record.Channel,
				SourceSystem:   record.SourceSystem,
				UserQuery:      record.UserQuery,
				Success:        record.Success,
				Error:          record.Error,
				DurationMS:     record.Quality.WallClockMS,
			},
			AgentFlow:           record.Steps,
			ConversationSummary: summarize(record),
			CollaborationMap:    record.CollaborationMap,
			FunctionAudit:       record.FunctionAudit,
			Fingerprints:        record.PromptFingerprints,
		}, nil
	}()

	var envelope transformEnvelope
	if err != nil {
		envelope = transformEnvelope{ExportMetadata: meta, TransformError: err.Error(), RawStepCount: len(record.Steps)}
	} else {
		envelope = transformEnvelope{ExportMetadata: meta, Conversation: body}
	}

	out, marshalErr := json.MarshalIndent(envelope, "", "  ")
	if marshalErr != nil {
		// Never raise: fall back to the bare error envelope.
		fallback := transformEnvelope{ExportMetadata: meta, TransformError: marshalErr.Error(), RawStepCount: len(record.Steps)}
		out, _ = json.MarshalIndent(fallback, "", "  ")
	}
	return out
}

func summarize(record ConversationRecord) conversationSummary {
	summary := conversationSummary{
		ToolExecutionsByName: map[string]int{},
		KnowledgeSources:     []string{},
		DatabasesQueried:     []string{},
	}
	sources := map[string]bool{}
	databases := map[string]bool{}

	for _, step := range record.Steps {
		summary.KnowledgeBaseSearchCount += len(step.KnowledgeSearches)
		for _, kb := range step.KnowledgeSearches {
			if kb.KnowledgeBaseID != "" {
				sources[kb.KnowledgeBaseID] = true
			}
		}
		for _, tool := range step.ToolExecutions {
			summary.ToolExecutionsByName[tool.ToolName]++
		}
		summary.DataOperationsCount += len(step.DataOperations)
		for _, op := range step.DataOperations {
			if op.Target != "" {
				databases[op.Target] = true
			}
		}
	}
	for s := range sources {
		summary.KnowledgeSources = append(summary.KnowledgeSources, s)
	}
	for d := range databases {
		summary.DatabasesQueried = append(summary.DatabasesQueried, d)
	}
	return summary
}

func buildAnalysis(record ConversationRecord) []byte {
	type stepPerf struct {
		AgentName     string  `json:"agent_name"`
		DurationMS    int64   `json:"duration_ms"`
		ToolCount     int     `json:"tool_count"`
		DataOpCount   int     `json:"data_operation_count"`
		KBSearchCount int     `json:"kb_search_count"`
		Confidence    float64 `json:"confidence"`
	}
	perf := make([]stepPerf, 0, len(record.Steps))
	for _, step := range record.Steps {
		perf = append(perf, stepPerf{
			AgentName:     step.AgentName,
			DurationMS:    step.EndedAt.Sub(step.StartedAt).Milliseconds(),
			ToolCount:     len(step.ToolExecutions),
			DataOpCount:   len(step.DataOperations),
			KBSearchCount: len(step.KnowledgeSearches),
			Confidence:    step.Confidence,
		})
	}
	analysis := map[string]any{
		"conversation_id":          record.ConversationID,
		"wall_clock_ms":            record.Quality.WallClockMS,
		"total_reasoning_chars":    record.Quality.TotalReasoningChars,
		"tool_error_count":         record.Quality.ToolErrorCount,
		"knowledge_base_hit_count": record.Quality.KnowledgeBaseHitCount,
		"function_audit":           record.FunctionAudit,
		"step_count":               len(record.Steps),
		"steps":                    perf,
	}
	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return []byte(`{"analysis_error":"` + err.Error() + `"}`)
	}
	return out
}

func buildMetadata(record ConversationRecord, exportedAt time.Time) []byte {
	meta := map[string]any{
		"conversation_id": record.ConversationID,
		"session_id":      record.SessionID,
		"channel":         record.Channel,
		"source_system":   record.SourceSystem,
		"success":         record.Success,
		"agents_used":     record.AgentsUsed,
		"started_at":      record.StartedAt.UTC().Format(time.RFC3339),
		"ended_at":        record.EndedAt.UTC().Format(time.RFC3339),
		"exported_at":     exportedAt.UTC().Format(time.RFC3339),
	}
	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return []byte(`{"metadata_error":"` + err.Error() + `"}`)
	}
	return out
}

func buildTraces(record ConversationRecord) []byte {
	out, err := json.MarshalIndent(record.RawTrace, "", "  ")
	if err != nil {
		return []byte(`{"trace_error":"` + err.Error() + `"}`)
	}
	return out
}

func renderNarrative(record ConversationRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conversation %s (%s)\n", record.ConversationID, record.SessionID)
	fmt.Fprintf(&b, "Query: %s\n", record.UserQuery)
	fmt.Fprintf(&b, "Success: %v\n\n", record.Success)

	for i, step := range record.Steps {
		fmt.Fprintf(&b, "--- Step %d: %s (confidence %.2f) ---\n", i+1, step.AgentName, step.Confidence)
		if step.Reasoning.ParsingError != "" {
			fmt.Fprintf(&b, "  [unparsed reasoning: %s]\n", step.Reasoning.ParsingError)
		} else {
			fmt.Fprintf(&b, "  Approach: %s\n", step.Reasoning.FinalSynthesis.Approach)
		}
		for _, kb := range step.KnowledgeSearches {
			fmt.Fprintf(&b, "  KB search: %q (%d references)\n", kb.Query, len(kb.References))
		}
		for _, tool := range step.ToolExecutions {
			fmt.Fprintf(&b, "  Tool: %s success=%v\n", tool.ToolName, tool.Success)
		}
		for _, op := range step.DataOperations {
			fmt.Fprintf(&b, "  Data operation: %s on %s success=%v\n", op.Operation, op.Target, op.Success)
		}
		for _, sent := range step.CollaborationSent {
			fmt.Fprintf(&b, "  Handed off to: %s\n", sent.Agent)
		}
		b.WriteString("\n")
	}

	if len(record.CollaborationMap) > 0 {
		b.WriteString("Collaboration map:\n")
		for _, edge := range record.CollaborationMap {
			fmt.Fprintf(&b, "  %s -> %s (%d)\n", edge.From, edge.To, edge.Count)
		}
		b.WriteString("\n")
	}

	if record.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", record.Error)
	}
	return b.String()
}
