package agentclient

import (
	"encoding/json"
	"fmt"
	"time"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// normalizeEvent converts one raw InvokeAgent response-stream member into
// zero or more normalized TraceEvents, per §4.3's streaming-assembly
// contract: chunk events append to the response buffer, trace events
// normalize and forward to the recorder, return_control events log only.
//
// A single orchestration trace frame can carry more than one of
// {rationale, model I/O, invocation input, observation}, so this can return
// more than one TraceEvent per raw frame.
func normalizeEvent(raw brtypes.ResponseStream, now time.Time) (chunkText string, events []TraceEvent) {
	switch v := raw.(type) {
	case *brtypes.ResponseStreamMemberChunk:
		return string(v.Value.Bytes), nil

	case *brtypes.ResponseStreamMemberTrace:
		return "", normalizeTracePart(v.Value, now)

	case *brtypes.ResponseStreamMemberReturnControl:
		return "", []TraceEvent{{
			EventType: EventLifecycle,
			Timestamp: now,
			Payload:   LifecyclePayload{State: "return_control"},
		}}

	default:
		return "", nil
	}
}

func normalizeTracePart(part brtypes.TracePart, now time.Time) []TraceEvent {
	orch := part.Trace.OrchestrationTrace
	if orch == nil {
		if part.Trace.FailureTrace != nil && part.Trace.FailureTrace.FailureReason != nil {
			return []TraceEvent{{
				EventType: EventError,
				Timestamp: now,
				Payload:   ErrorPayload{Message: *part.Trace.FailureTrace.FailureReason},
			}}
		}
		return nil
	}

	var events []TraceEvent

	if orch.Rationale != nil && orch.Rationale.Text != nil {
		events = append(events, TraceEvent{
			EventType: EventRationale,
			Timestamp: now,
			Payload:   RationalePayload{Text: *orch.Rationale.Text},
		})
	}

	if orch.ModelInvocationInput != nil && orch.ModelInvocationInput.Text != nil {
		events = append(events, TraceEvent{
			EventType: EventModelInput,
			Timestamp: now,
			Payload:   ModelIOPayload{Text: *orch.ModelInvocationInput.Text},
		})
	}

	if orch.ModelInvocationOutput != nil && orch.ModelInvocationOutput.RawResponse != nil && orch.ModelInvocationOutput.RawResponse.Content != nil {
		events = append(events, TraceEvent{
			EventType: EventModelOutput,
			Timestamp: now,
			Payload:   ModelIOPayload{Text: *orch.ModelInvocationOutput.RawResponse.Content},
		})
	}

	if in := orch.InvocationInput; in != nil {
		events = append(events, normalizeInvocationInput(in, now)...)
	}

	if obs := orch.Observation; obs != nil {
		events = append(events, normalizeObservation(obs, now)...)
	}

	return events
}

func normalizeInvocationInput(in *brtypes.InvocationInput, now time.Time) []TraceEvent {
	switch {
	case in.ActionGroupInvocationInput != nil:
		ag := in.ActionGroupInvocationInput
		return []TraceEvent{{
			EventType: EventToolInvoke,
			Timestamp: now,
			Payload: ToolPayload{
				ToolName:         strOr(ag.Function, strOr(ag.ActionGroupName, "")),
				ParametersDigest: digestParameters(ag.Parameters),
			},
		}}

	case in.KnowledgeBaseLookupInput != nil:
		kb := in.KnowledgeBaseLookupInput
		return []TraceEvent{{
			EventType: EventKnowledgeLookup,
			Timestamp: now,
			Payload: KnowledgeLookupPayload{
				KnowledgeBaseID: strOr(kb.KnowledgeBaseId, ""),
				Query:           strOr(kb.Text, ""),
			},
		}}

	case in.AgentCollaboratorInvocationInput != nil:
		col := in.AgentCollaboratorInvocationInput
		return []TraceEvent{{
			EventType: EventCollaboratorInvoke,
			Timestamp: now,
			Payload:   CollaboratorPayload{Name: strOr(col.AgentCollaboratorName, "")},
		}}
	}
	return nil
}

func normalizeObservation(obs *brtypes.Observation, now time.Time) []TraceEvent {
	switch {
	case obs.ActionGroupInvocationOutput != nil:
		out := obs.ActionGroupInvocationOutput
		text := strOr(out.Text, "")
		return []TraceEvent{{
			EventType: EventToolOutput,
			Timestamp: now,
			Payload: ToolPayload{
				Outcome: text,
				Success: out.Text != nil,
			},
		}}

	case obs.KnowledgeBaseLookupOutput != nil:
		kb := obs.KnowledgeBaseLookupOutput
		refs := make([]KnowledgeReference, 0, len(kb.RetrievedReferences))
		for i, r := range kb.RetrievedReferences {
			refs = append(refs, KnowledgeReference{
				ID:       strOr(r.Location, fmt.Sprintf("ref-%d", i)),
				Snippet:  truncateSnippetN(strOr(r.Content, ""), 500),
				Location: strOr(r.Location, ""),
			})
		}
		return []TraceEvent{{
			EventType: EventKnowledgeLookup,
			Timestamp: now,
			Payload:   KnowledgeLookupPayload{References: refs},
		}}

	case obs.AgentCollaboratorInvocationOutput != nil:
		col := obs.AgentCollaboratorInvocationOutput
		return []TraceEvent{{
			EventType: EventCollaboratorOutput,
			Timestamp: now,
			Payload:   CollaboratorPayload{Name: strOr(col.AgentCollaboratorName, ""), Output: strOr(col.Output, "")},
		}}

	case obs.FinalResponse != nil:
		return []TraceEvent{{
			EventType: EventLifecycle,
			Timestamp: now,
			Payload:   LifecyclePayload{State: "final_response"},
		}}
	}
	return nil
}

func strOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func digestParameters(params any) string {
	if params == nil {
		return ""
	}
	b, err := json.Marshal(params)
	if err != nil {
		return ""
	}
	return truncateSnippetN(string(b), 500)
}

func truncateSnippetN(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
