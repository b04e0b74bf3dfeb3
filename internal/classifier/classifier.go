// Package classifier implements C4: a pure, deterministic mapping from an
// agent response (plus the originating query) to an IntentClass used for
// delivery routing.
package classifier

import (
	"regexp"
	"strings"
)

// IntentClass is the routing category assigned to a classified response.
// Ordinal order (declaration order) is the tie-break rule: deal < data < lead.
type IntentClass string

const (
	IntentDealAnalysis IntentClass = "deal_analysis"
	IntentDataAnalysis IntentClass = "data_analysis"
	IntentLeadAnalysis IntentClass = "lead_analysis"
	IntentGeneral      IntentClass = "general"
)

// ordinal fixes the tie-break order: lower index wins ties.
var ordinal = []IntentClass{IntentDealAnalysis, IntentDataAnalysis, IntentLeadAnalysis}

// keywords is the canonical per-class term set.
var keywords = map[IntentClass][]string{
	IntentDealAnalysis: {
		"deal", "opportunity", "pipeline", "close", "closing", "quota",
		"forecast", "negotiation", "contract", "proposal",
	},
	IntentDataAnalysis: {
		"data", "metric", "report", "query", "dashboard", "warehouse",
		"sql", "analytics", "number", "trend",
	},
	IntentLeadAnalysis: {
		"lead", "prospect", "mql", "sql_lead", "qualify", "qualification",
		"outreach", "icp", "scoring", "conversion",
	},
}

var tokenRe = regexp.MustCompile(`[a-z0-9_]+`)

// Classify assigns an IntentClass to responseText given the originating
// query. It is a pure function: identical inputs always yield identical
// output, with no external calls.
func Classify(responseText, originalQuery string) IntentClass {
	tokens := tokenize(responseText + " " + originalQuery)

	best := IntentGeneral
	bestScore := 0
	for _, class := range ordinal {
		score := scoreTokens(tokens, keywords[class])
		if score > bestScore {
			bestScore = score
			best = class
		}
	}
	return best
}

func tokenize(s string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokenRe.FindAllString(strings.ToLower(s), -1) {
		counts[tok]++
	}
	return counts
}

func scoreTokens(tokens map[string]int, terms []string) int {
	score := 0
	for _, term := range terms {
		score += tokens[term]
	}
	return score
}
