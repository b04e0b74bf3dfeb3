package agentclient

import (
	"fmt"
	"time"
)

// TemporalContext builds the standardized preamble enumerating the current
// date/quarter/month/year so the agent can resolve time-relative language
// ("last week", "this quarter"). A pure function of an injected instant —
// the only place in the pipeline where wall-clock leaks into prompt content,
// so it is the one place that must be driven by clock.Clock in tests rather
// than reading time.Now() itself.
func TemporalContext(now time.Time) string {
	quarter := (int(now.Month())-1)/3 + 1
	return fmt.Sprintf(
		"Current date: %s. Current quarter: Q%d %d. Current month: %s. Current year: %d.",
		now.Format("2006-01-02"), quarter, now.Year(), now.Format("January"), now.Year(),
	)
}
