package recorder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReasoningText_FullyMarked(t *testing.T) {
	text := `[USER]
Current date: 2026-06-01
Quarter: Q2
Month: June
User request: what's our pipeline this quarter
[KNOWLEDGE BASE SEARCH]
searching salesforce for pipeline data
[OBSERVATION]
Based on the pipeline data, I will summarize the top deals.
[ASSISTANT]
I successfully pulled the pipeline from salesforce and summarized it.`

	breakdown := parseReasoningText(text)

	assert.Empty(t, breakdown.ParsingError)
	assert.Equal(t, "2026-06-01", breakdown.ContextSetup.CurrentDate)
	assert.Equal(t, "Q2", breakdown.ContextSetup.Quarter)
	assert.Equal(t, "what's our pipeline this quarter", breakdown.ContextSetup.UserRequest)
	assert.Equal(t, "high", breakdown.FinalSynthesis.ConfidenceLevel)
	assert.Contains(t, breakdown.FinalSynthesis.DataSourcesUsed, "salesforce")
	assert.NotEmpty(t, breakdown.DecisionPoints)
}

func TestParseReasoningText_NoMarkersFallsBack(t *testing.T) {
	text := "just some free text the model emitted with no structure at all"
	breakdown := parseReasoningText(text)

	assert.Equal(t, "no bracket markers found", breakdown.ParsingError)
	assert.Equal(t, text, breakdown.OriginalExcerpt)
}

func TestParseReasoningText_TruncatesFallbackExcerpt(t *testing.T) {
	text := strings.Repeat("a", maxFallbackChars+500)
	breakdown := parseReasoningText(text)

	assert.Len(t, breakdown.OriginalExcerpt, maxFallbackChars)
}

func TestParseReasoningText_NeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		parseReasoningText("")
		parseReasoningText("[USER]")
		parseReasoningText("[ASSISTANT]" + strings.Repeat("x", 10000))
	})
}

func TestParseDecisionPoints_CappedAtFive(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("Based on signal, I will act. ")
	}
	points := parseDecisionPoints(sb.String())
	assert.LessOrEqual(t, len(points), maxDecisionPoints)
}
