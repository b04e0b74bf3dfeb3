package delivery

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testJob(targetURL string) *Job {
	return &Job{
		ID:             "job-1",
		ConversationID: "conv-1",
		IntentClass:    "deal_analysis",
		TargetURL:      targetURL,
		MaxAttempts:    5,
		Payload:        Payload{Header: "deal_analysis", ResponsePlain: "hello"},
	}
}

func TestDeliverer_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDeliverer()
	outcome, reason := d.Attempt(t.Context(), testJob(srv.URL), 2*time.Second)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Empty(t, reason)
}

func TestDeliverer_RetryOn503(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	d := NewDeliverer()
	outcome, reason := d.Attempt(t.Context(), testJob(srv.URL), 2*time.Second)
	assert.Equal(t, OutcomeRetry, outcome)
	assert.NotEmpty(t, reason)
}

func TestDeliverer_RetryOn429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDeliverer()
	outcome, _ := d.Attempt(t.Context(), testJob(srv.URL), 2*time.Second)
	assert.Equal(t, OutcomeRetry, outcome)
}

func TestDeliverer_TerminalOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDeliverer()
	outcome, reason := d.Attempt(t.Context(), testJob(srv.URL), 2*time.Second)
	assert.Equal(t, OutcomeTerminal, outcome)
	assert.NotEmpty(t, reason)
}

func TestDeliverer_TerminalWhenTargetUnconfigured(t *testing.T) {
	d := NewDeliverer()
	outcome, reason := d.Attempt(t.Context(), testJob(""), 2*time.Second)
	assert.Equal(t, OutcomeTerminal, outcome)
	assert.Contains(t, reason, "no target configured")
}

func TestDeliverer_RetryOnConnectionFailure(t *testing.T) {
	d := NewDeliverer()
	outcome, reason := d.Attempt(t.Context(), testJob("http://127.0.0.1:1"), 2*time.Second)
	assert.Equal(t, OutcomeRetry, outcome)
	assert.NotEmpty(t, reason)
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		code int
		want Outcome
	}{
		{200, OutcomeSuccess},
		{201, OutcomeSuccess},
		{299, OutcomeSuccess},
		{429, OutcomeRetry},
		{500, OutcomeRetry},
		{503, OutcomeRetry},
		{400, OutcomeTerminal},
		{404, OutcomeTerminal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyStatus(tc.code))
	}
}
