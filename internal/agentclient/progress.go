package agentclient

import (
	"fmt"
	"time"

	"github.com/GuyDuerFB/revops-gateway/internal/clock"
)

// collaboratorDescriptions maps a known collaborator agent name to a
// human-readable description, per §4.3.1 (carried verbatim from the
// lineage's parse_trace_to_progress lookup table).
var collaboratorDescriptions = map[string]string{
	"DataAgent":      "Querying data warehouse",
	"WebSearchAgent": "Searching the web",
	"ExecutionAgent": "Running execution plan",
}

// toolFriendlyNames maps a known tool/action-group name to a human-readable
// description, per §4.3.1.
var toolFriendlyNames = map[string]string{
	"query_fire":       "Running SQL query on warehouse",
	"get_gong_data":    "Pulling call data from Gong",
	"search_web":       "Searching the web",
	"research_company": "Researching company background",
}

func describeCollaborator(name string) string {
	if d, ok := collaboratorDescriptions[name]; ok {
		return d
	}
	return fmt.Sprintf("Calling %s", name)
}

func describeTool(toolName string) string {
	if d, ok := toolFriendlyNames[toolName]; ok {
		return d
	}
	return fmt.Sprintf("Running %s", toolName)
}

// progressSnippet maps a normalized trace event to a human-readable
// progress string per §4.3's priority order, or "" if the event carries no
// progress-worthy content.
func progressSnippet(ev TraceEvent) string {
	switch ev.EventType {
	case EventRationale:
		if p, ok := ev.Payload.(RationalePayload); ok && p.Text != "" {
			return "💭 Thinking: " + truncateSnippet(p.Text)
		}
	case EventCollaboratorInvoke:
		if p, ok := ev.Payload.(CollaboratorPayload); ok {
			return "📊 Calling " + describeCollaborator(p.Name)
		}
	case EventToolInvoke:
		if p, ok := ev.Payload.(ToolPayload); ok {
			return "🔧 " + describeTool(p.ToolName)
		}
	case EventToolOutput, EventCollaboratorOutput, EventKnowledgeLookup:
		return "📈 Processing query results…"
	case EventModelOutput:
		return "📝 Finalizing analysis…"
	}
	return ""
}

func truncateSnippet(s string) string {
	const max = 120
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// ProgressThrottle rate-limits progress surfacing to at most one update per
// interval (§4.3: "at most one every 2 seconds"). Not goroutine-safe; one
// instance is owned per in-flight session by a single consumer goroutine.
type ProgressThrottle struct {
	interval time.Duration
	last     time.Time
	clock    clock.Clock
}

// NewProgressThrottle creates a throttle gated by interval, driven by clk.
func NewProgressThrottle(interval time.Duration, clk clock.Clock) *ProgressThrottle {
	return &ProgressThrottle{interval: interval, clock: clk}
}

// Allow reports whether a progress update may be emitted now, and if so
// records the instant so the next call is gated from it.
func (t *ProgressThrottle) Allow() bool {
	now := t.clock.Now()
	if now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	return true
}
