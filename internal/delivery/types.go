// Package delivery implements C5: posting a classified response to its
// target endpoint with exponential-backoff retry and a dead-letter
// terminal state, realized as a Postgres-backed retry queue (§5.1).
package delivery

import (
	"errors"
	"time"
)

// TerminalStatus is the lifecycle state of a DeliveryJob row.
type TerminalStatus string

const (
	StatusPending         TerminalStatus = "pending"
	StatusDelivered       TerminalStatus = "delivered"
	StatusRetryScheduled  TerminalStatus = "retry_scheduled"
	StatusFailedPermanent TerminalStatus = "failed_permanent"
)

// Sentinel errors for delivery queue operations.
var (
	ErrNoJobsAvailable    = errors.New("delivery: no jobs ready")
	ErrTargetUnconfigured = errors.New("delivery: no target configured for intent class")
)

// Payload is the outbound delivery body (§6).
type Payload struct {
	Header        string          `json:"header"`
	ResponseRich  string          `json:"response_rich"`
	ResponsePlain string          `json:"response_plain"`
	AgentsUsed    []string        `json:"agents_used"`
	Metadata      PayloadMetadata `json:"metadata"`
}

// PayloadMetadata is the metadata block of the outbound delivery payload.
type PayloadMetadata struct {
	TrackingID       string `json:"tracking_id"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
	Timestamp        string `json:"timestamp"`
	SourceSystem     string `json:"source_system"`
	SourceProcess    string `json:"source_process"`
}

// Job is the unit C5 owns exclusively, from enqueue through terminal status.
type Job struct {
	ID             string
	ConversationID string
	IntentClass    string
	TargetURL      string
	Payload        Payload
	Attempt        int
	MaxAttempts    int
	NextReadyAt    time.Time
	TerminalStatus TerminalStatus
	ClaimedBy      string
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Outcome is the result of one delivery attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRetry    Outcome = "retry"
	OutcomeTerminal Outcome = "terminal"
)
