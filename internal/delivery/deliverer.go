package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Deliverer posts a Job's payload to its target URL and classifies the result.
type Deliverer struct {
	httpClient *http.Client
}

// NewDeliverer creates a Deliverer with the per-attempt deadline enforced by
// the caller's context; the http.Client itself carries no timeout so the
// context deadline is always authoritative.
func NewDeliverer() *Deliverer {
	return &Deliverer{httpClient: &http.Client{}}
}

// Attempt posts the job's payload to its target URL within the given
// deadline, classifies the outcome per §4.5, and returns a human-readable
// reason for logging on any non-success outcome.
func (d *Deliverer) Attempt(ctx context.Context, job *Job, deadline time.Duration) (Outcome, string) {
	if job.TargetURL == "" {
		return OutcomeTerminal, ErrTargetUnconfigured.Error()
	}

	body, err := json.Marshal(job.Payload)
	if err != nil {
		return OutcomeTerminal, fmt.Sprintf("marshaling payload: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.TargetURL, bytes.NewReader(body))
	if err != nil {
		return OutcomeTerminal, fmt.Sprintf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return OutcomeRetry, failureReason(0, err)
	}
	defer resp.Body.Close()

	outcome := classifyStatus(resp.StatusCode)
	if outcome == OutcomeSuccess {
		return outcome, ""
	}
	return outcome, failureReason(resp.StatusCode, nil)
}

// classifyStatus maps an HTTP status code to an Outcome per §4.5:
// any 2xx is success; 429 and 5xx are retryable; any other 4xx is terminal.
func classifyStatus(code int) Outcome {
	switch {
	case code >= 200 && code < 300:
		return OutcomeSuccess
	case code == http.StatusTooManyRequests:
		return OutcomeRetry
	case code >= 500:
		return OutcomeRetry
	case code >= 400:
		return OutcomeTerminal
	default:
		return OutcomeTerminal
	}
}

func failureReason(code int, err error) string {
	if err != nil {
		return fmt.Sprintf("transport error: %v", err)
	}
	return fmt.Sprintf("http %d", code)
}
