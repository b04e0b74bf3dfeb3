package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_DealAnalysis(t *testing.T) {
	got := Classify("What is the status of the IXIS deal?", "What is the status of the IXIS deal?")
	assert.Equal(t, IntentDealAnalysis, got)
}

func TestClassify_DataAnalysis(t *testing.T) {
	got := Classify("Here's the report with the relevant metrics and trend data from the warehouse query.", "")
	assert.Equal(t, IntentDataAnalysis, got)
}

func TestClassify_LeadAnalysis(t *testing.T) {
	got := Classify("This lead looks like a strong prospect to qualify for outreach.", "")
	assert.Equal(t, IntentLeadAnalysis, got)
}

func TestClassify_GeneralWhenNoTermsMatch(t *testing.T) {
	got := Classify("Hello, how can I help you today?", "hi")
	assert.Equal(t, IntentGeneral, got)
}

func TestClassify_TieBreakPrefersLowerOrdinal(t *testing.T) {
	// "deal" scores deal_analysis=1; "data" scores data_analysis=1. Tied, so
	// the lower-ordinal class (deal_analysis) wins.
	got := Classify("deal data", "")
	assert.Equal(t, IntentDealAnalysis, got)
}

func TestClassify_Deterministic(t *testing.T) {
	text := "Our pipeline forecast shows strong quota attainment this quarter."
	first := Classify(text, "quarterly forecast")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(text, "quarterly forecast"))
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	assert.Equal(t, IntentDealAnalysis, Classify("DEAL PIPELINE FORECAST", ""))
}

func TestClassify_CombinesResponseAndQuery(t *testing.T) {
	// Response alone has no signal; query carries it.
	got := Classify("Here is your answer.", "tell me about this opportunity")
	assert.Equal(t, IntentDealAnalysis, got)
}
