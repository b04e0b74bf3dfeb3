package recorder

import (
	"regexp"
	"strings"
)

// Bracket markers the model's own rationale/output text sometimes embeds,
// splitting it into a user-request echo, knowledge-base search narration,
// an observation of results, and the assistant's concluding remarks. Not
// every rationale block contains these; parseReasoningText degrades to a
// parsingError result when none are found rather than failing the step.
var (
	userBlockRe = regexp.MustCompile(`(?s)\[USER\](.*?)(?:\[KNOWLEDGE BASE SEARCH\]|\[OBSERVATION\]|\[ASSISTANT\]|$)`)
	kbBlockRe   = regexp.MustCompile(`(?s)\[KNOWLEDGE BASE SEARCH\](.*?)(?:\[OBSERVATION\]|\[ASSISTANT\]|\[USER\]|$)`)
	obsBlockRe  = regexp.MustCompile(`(?s)\[OBSERVATION\](.*?)(?:\[ASSISTANT\]|\[USER\]|\[KNOWLEDGE BASE SEARCH\]|$)`)
	asstBlockRe = regexp.MustCompile(`(?s)\[ASSISTANT\](.*?)(?:\[USER\]|\[KNOWLEDGE BASE SEARCH\]|\[OBSERVATION\]|$)`)

	dateLineRe  = regexp.MustCompile(`(?i)current date:\s*(.+)`)
	quarterRe   = regexp.MustCompile(`(?i)quarter:\s*(\S+)`)
	monthRe     = regexp.MustCompile(`(?i)month:\s*(\S+)`)
	requestRe   = regexp.MustCompile(`(?i)user request:\s*(.+)`)
	decisionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)based on (.+?), i will (.+?)(?:\.|$)`),
		regexp.MustCompile(`(?i)since (.+?), i(?:'ll| will) (.+?)(?:\.|$)`),
		regexp.MustCompile(`(?i)given (.+?), (?:i|the next step is to) (.+?)(?:\.|$)`),
	}
	maxDecisionPoints = 5
	maxFallbackChars  = 1000
)

// parseReasoningText decomposes raw reasoning/model-output text into a
// ReasoningBreakdown. It never panics and never returns an error: malformed
// or marker-free text produces a breakdown carrying ParsingError and a
// truncated OriginalExcerpt instead, so one unparseable step never drops
// the rest of the record.
func parseReasoningText(text string) (breakdown ReasoningBreakdown) {
	defer func() {
		if r := recover(); r != nil {
			breakdown = fallbackBreakdown(text)
		}
	}()

	if !strings.Contains(text, "[USER]") && !strings.Contains(text, "[ASSISTANT]") &&
		!strings.Contains(text, "[KNOWLEDGE BASE SEARCH]") && !strings.Contains(text, "[OBSERVATION]") {
		return fallbackBreakdown(text)
	}

	breakdown.ContextSetup = parseContextSetup(firstSubmatch(userBlockRe, text))
	breakdown.DecisionPoints = parseDecisionPoints(firstSubmatch(obsBlockRe, text) + " " + firstSubmatch(asstBlockRe, text))
	breakdown.FinalSynthesis = parseFinalSynthesis(firstSubmatch(asstBlockRe, text))
	return breakdown
}

func fallbackBreakdown(text string) ReasoningBreakdown {
	excerpt := text
	if len(excerpt) > maxFallbackChars {
		excerpt = excerpt[:maxFallbackChars]
	}
	return ReasoningBreakdown{
		ParsingError:    "no bracket markers found",
		OriginalExcerpt: excerpt,
		DecisionPoints:  []DecisionPoint{},
	}
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func parseContextSetup(block string) ContextSetup {
	var cs ContextSetup
	if m := dateLineRe.FindStringSubmatch(block); len(m) == 2 {
		cs.CurrentDate = strings.TrimSpace(m[1])
	}
	if m := quarterRe.FindStringSubmatch(block); len(m) == 2 {
		cs.Quarter = strings.TrimSpace(m[1])
	}
	if m := monthRe.FindStringSubmatch(block); len(m) == 2 {
		cs.Month = strings.TrimSpace(m[1])
	}
	if m := requestRe.FindStringSubmatch(block); len(m) == 2 {
		cs.UserRequest = strings.TrimSpace(m[1])
	}
	return cs
}

func parseDecisionPoints(block string) []DecisionPoint {
	points := []DecisionPoint{}
	for _, re := range decisionRes {
		for _, m := range re.FindAllStringSubmatch(block, -1) {
			if len(points) >= maxDecisionPoints {
				return points
			}
			points = append(points, DecisionPoint{
				Analysis: strings.TrimSpace(m[1]),
				Decision: strings.TrimSpace(m[2]),
			})
		}
	}
	return points
}

func parseFinalSynthesis(block string) FinalSynthesis {
	lower := strings.ToLower(block)
	fs := FinalSynthesis{Approach: strings.TrimSpace(block), DataSourcesUsed: []string{}}

	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "failed"):
		fs.ConfidenceLevel = "low"
	case strings.Contains(lower, "successfully"):
		fs.ConfidenceLevel = "high"
	default:
		fs.ConfidenceLevel = "medium"
	}

	for _, source := range []string{"salesforce", "hubspot", "snowflake", "knowledge base"} {
		if strings.Contains(lower, source) {
			fs.DataSourcesUsed = append(fs.DataSourcesUsed, source)
		}
	}
	return fs
}
