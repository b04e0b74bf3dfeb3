// Package workitem implements the durable work queue that sits between C2
// (Ingress Router) and C3 (Agent Invoker): a Postgres table claimed with
// SELECT ... FOR UPDATE SKIP LOCKED, mirroring the teacher's alert-session
// queue but against the gateway's own schema.
package workitem

import (
	"context"
	"errors"
	"time"
)

// Kind distinguishes the two ingress origins that can enqueue a WorkItem.
type Kind string

const (
	KindChatMention  Kind = "chat_mention"
	KindWebhookQuery Kind = "webhook_query"
)

// Status is the lifecycle state of a WorkItem row.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Sentinel errors for queue operations.
var (
	// ErrNoWorkAvailable indicates no pending work items are in the queue.
	ErrNoWorkAvailable = errors.New("workitem: no work available")

	// ErrAtCapacity indicates the global concurrent work-item limit has been reached.
	ErrAtCapacity = errors.New("workitem: at capacity")
)

// Origin addresses the reply sink for a WorkItem: chat fields for
// chat_mention, the business-system fields for webhook_query. Both sets are
// present on the struct and the unused half stays zero-valued — origin is
// small and fixed-shape, so a discriminated JSON blob would add indirection
// without buying anything.
type Origin struct {
	// Chat origin.
	ChannelID          string `json:"channel_id,omitempty"`
	UserID             string `json:"user_id,omitempty"`
	ThreadID           string `json:"thread_id,omitempty"`
	PlaceholderMessage string `json:"placeholder_message_id,omitempty"`

	// Webhook origin.
	SourceSystem        string `json:"source_system,omitempty"`
	SourceProcess       string `json:"source_process,omitempty"`
	TargetCorrelationID string `json:"target_correlation_id,omitempty"`
}

// WorkItem is the unit of async work created by C2 and consumed by C3.
type WorkItem struct {
	ID                 string
	Kind               Kind
	Status             Status
	Query              string
	TemporalContext    string
	Origin             Origin
	SessionKey         string
	ClaimedBy          string
	ClaimedAt          *time.Time
	LastInteractionAt  *time.Time
	ReceivedAt         time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Error              string
}

// ExecutionResult is the terminal state an Executor reports after processing
// a claimed WorkItem. All intermediate state (trace events, conversation
// record) is written progressively by the executor itself, not here.
type ExecutionResult struct {
	Status Status
	Error  error
}

// Executor owns the entire agent-invocation lifecycle for a single WorkItem:
// deriving the session key, invoking the remote agent, surfacing progress,
// classifying and delivering the response, and triggering C6 export. The
// worker only handles claiming, the terminal status write, and scheduling.
type Executor interface {
	Execute(ctx context.Context, item *WorkItem) *ExecutionResult
}

// WorkerHealth reports a single worker's processing state.
type WorkerHealth struct {
	ID               string
	Status           string // "idle" or "working"
	CurrentItemID    string
	ItemsProcessed   int
	LastActivity     time.Time
}

// PoolHealth aggregates health across the whole pool.
type PoolHealth struct {
	IsHealthy     bool
	DBReachable   bool
	DBError       string
	ActiveWorkers int
	TotalWorkers  int
	InProgress    int
	MaxConcurrent int
	QueueDepth    int
	WorkerStats   []WorkerHealth
}
