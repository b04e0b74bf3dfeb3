// Package ingress implements C2, the Ingress Router: it terminates the two
// inbound surfaces (chat events, business-system webhooks), normalizes each
// into a workitem.WorkItem, and enqueues it for C3 — returning a fast
// acknowledgement without ever invoking the agent inline.
package ingress

import "time"

// slackEnvelope is the outer JSON body posted to /slack/events. Slack wraps
// every callback the same way regardless of inner event type, including the
// one-time url_verification handshake.
type slackEnvelope struct {
	Type      string     `json:"type"`
	Challenge string     `json:"challenge"`
	EventID   string     `json:"event_id"`
	Event     slackEvent `json:"event"`
}

// slackEvent is the inner event payload this router understands. Event
// types other than app_mention are accepted and ignored (ack'd, not queued).
type slackEvent struct {
	Type     string `json:"type"`
	Channel  string `json:"channel"`
	User     string `json:"user"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

// webhookRequest is the required body shape for POST /webhook, per the
// router's field-validation contract.
type webhookRequest struct {
	Query         string `json:"query" binding:"required"`
	SourceSystem  string `json:"source_system" binding:"required"`
	SourceProcess string `json:"source_process" binding:"required"`
	Timestamp     string `json:"timestamp" binding:"required"`
}

// webhookResponse is the tracking acknowledgement returned to the caller,
// shaped after the lineage's enhanced_webhook_handler tracking envelope but
// scoped to what C2 actually knows at enqueue time — the agent has not run
// yet, so there is no ai_response or delivery_id to report.
type webhookResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	Tracking       trackingInfo   `json:"tracking"`
	DeliveryStatus deliveryStatus `json:"delivery_status"`
}

type trackingInfo struct {
	ConversationID        string `json:"conversation_id"`
	ProcessingTimeMS      int64  `json:"processing_time_ms"`
	QueuedAt              string `json:"queued_at"`
	EstimatedDeliveryTime string `json:"estimated_delivery_time"`
}

type deliveryStatus struct {
	Status string `json:"status"`
}

// estimatedDeliveryWindow is the static estimate reported to webhook
// callers; the pipeline has no per-request latency forecast, so a single
// conservative window is quoted, matching the lineage's own fixed estimate.
const estimatedDeliveryWindow = "30-60 seconds"

func isoTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
