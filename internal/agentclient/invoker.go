package agentclient

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GuyDuerFB/revops-gateway/internal/chat"
	"github.com/GuyDuerFB/revops-gateway/internal/classifier"
	"github.com/GuyDuerFB/revops-gateway/internal/clock"
	"github.com/GuyDuerFB/revops-gateway/internal/delivery"
	"github.com/GuyDuerFB/revops-gateway/internal/workitem"
)

// apologyResponse is delivered to the chat placeholder when every retry
// attempt fails, per §4.3's "an apology string is delivered" requirement.
const apologyResponse = "Sorry, something went wrong while processing that request. Please try again."

// DeliveryEnqueuer is the subset of delivery.Repository the invoker needs,
// mirrored as an interface so tests can substitute a fake.
type DeliveryEnqueuer interface {
	Enqueue(ctx context.Context, job *delivery.Job) error
}

// TargetResolver maps an IntentClass name to a delivery target URL, leaving
// config.DeliveryTargetConfig as the production implementation without this
// package depending on internal/config.
type TargetResolver interface {
	URLFor(intentClass string) string
}

// Config sizes and addresses one Invoker.
type Config struct {
	AgentID      string
	AgentAliasID string
	ReadTimeout  time.Duration // per-attempt stream read deadline (§5: target 240s)
	MaxRetries   int           // additional attempts after the first, transport/throttling only (§4.3: 2)

	ProgressThrottleInterval time.Duration

	DeliveryMaxAttempts int // carried onto enqueued delivery.Job.MaxAttempts
}

// Invoker implements workitem.Executor: the full per-WorkItem C3 lifecycle.
type Invoker struct {
	cfg      Config
	runtime  agentRuntime
	chatSvc  *chat.Service
	recorder Recorder
	delivery DeliveryEnqueuer
	targets  TargetResolver
	clk      clock.Clock
	logger   *slog.Logger
}

// NewInvoker builds an Invoker. runtime is typically NewBedrockAgentRuntime
// wrapping a *bedrockruntime.Client. chatSvc is nil-safe (see chat.Service);
// delivery/targets are required only for webhook-origin items.
func NewInvoker(cfg Config, runtime *bedrockAgentRuntime, chatSvc *chat.Service, recorder Recorder, deliveryRepo DeliveryEnqueuer, targets TargetResolver, clk clock.Clock) *Invoker {
	return &Invoker{
		cfg:      cfg,
		runtime:  runtime,
		chatSvc:  chatSvc,
		recorder: recorder,
		delivery: deliveryRepo,
		targets:  targets,
		clk:      clk,
		logger:   slog.Default().With("component", "agent-invoker"),
	}
}

// Execute implements workitem.Executor.
func (inv *Invoker) Execute(ctx context.Context, item *workitem.WorkItem) *workitem.ExecutionResult {
	sessionKey := DeriveSessionKey(item, inv.clk.Now().Unix())
	// The temporal preamble is generated once by C2 at ingestion time and
	// carried on the WorkItem, not recomputed here — recomputing at
	// invocation time would let queue latency skew the date/quarter the
	// agent reasons over away from when the user actually asked.
	prompt := item.TemporalContext + "\n\n" + item.Query

	conversationID := conversationIDFor(item)
	log := inv.logger.With("work_item_id", item.ID, "session_key", sessionKey, "conversation_id", conversationID)

	startedAt := inv.clk.Now()
	if inv.recorder != nil {
		inv.recorder.Start(sessionKey, conversationID, item.Origin.ChannelID, item.Origin.SourceSystem, item.Query, startedAt)
	}

	result := inv.invokeWithRetry(ctx, sessionKey, item.Origin.PlaceholderMessage, prompt, log)
	result.StartedAt = startedAt
	result.EndedAt = inv.clk.Now()

	if inv.recorder != nil {
		inv.recorder.Finalize(sessionKey, *result)
	}

	switch item.Kind {
	case workitem.KindChatMention:
		inv.chatSvc.PostTerminal(ctx, item.Origin.PlaceholderMessage, result.Success, displayResponse(result))
	case workitem.KindWebhookQuery:
		if result.Success {
			inv.enqueueDelivery(ctx, item, conversationID, result, log)
		}
	}

	if !result.Success {
		return &workitem.ExecutionResult{Status: workitem.StatusFailed, Error: errors.New(result.Error)}
	}
	return &workitem.ExecutionResult{Status: workitem.StatusCompleted}
}

func displayResponse(result *SessionResult) string {
	if result.Success {
		return result.AssembledResponse
	}
	return apologyResponse
}

func conversationIDFor(item *workitem.WorkItem) string {
	if item.Kind == workitem.KindWebhookQuery && item.Origin.TargetCorrelationID != "" {
		return item.Origin.TargetCorrelationID
	}
	return item.ID
}

// invokeWithRetry performs up to 1+MaxRetries attempts, retrying only
// transport/throttling errors reported by the agent runtime (§4.3).
// Non-retryable agent errors and a successfully-completed stream (whether or
// not it reports Success) return immediately.
func (inv *Invoker) invokeWithRetry(ctx context.Context, sessionID, placeholderMessageID, prompt string, log *slog.Logger) *SessionResult {
	var lastErr error
	for attempt := 0; attempt <= inv.cfg.MaxRetries; attempt++ {
		result, err := inv.invokeOnce(ctx, sessionID, placeholderMessageID, prompt, log)
		if err == nil {
			return result
		}
		lastErr = err
		if !isRetryableRuntimeError(err) {
			log.Error("non-retryable agent runtime error", "error", err)
			break
		}
		log.Warn("retryable agent runtime error, retrying", "attempt", attempt+1, "error", err)
	}
	return &SessionResult{Success: false, Error: lastErr.Error()}
}

func (inv *Invoker) invokeOnce(ctx context.Context, sessionID, placeholderMessageID, prompt string, log *slog.Logger) (*SessionResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, inv.cfg.ReadTimeout)
	defer cancel()

	stream, err := inv.runtime.Invoke(attemptCtx, InvokeParams{
		AgentID:      inv.cfg.AgentID,
		AgentAliasID: inv.cfg.AgentAliasID,
		SessionID:    sessionID,
		InputText:    prompt,
	})
	if err != nil {
		return nil, err
	}

	streamer := newAgentStreamer(attemptCtx, stream, inv.clk)
	defer streamer.close()

	var response strings.Builder
	throttle := NewProgressThrottle(inv.cfg.ProgressThrottleInterval, inv.clk)

	for {
		item, err := streamer.recv()
		if err != nil { // io.EOF: stream closed cleanly
			break
		}
		if item.err != nil {
			return nil, item.err
		}

		response.WriteString(item.chunkText)

		for _, ev := range item.events {
			if inv.recorder != nil {
				inv.recorder.Record(sessionID, ev)
			}
			inv.surfaceProgress(ctx, placeholderMessageID, ev, throttle, log)
		}
	}

	return &SessionResult{AssembledResponse: response.String(), Success: true}, nil
}

func (inv *Invoker) surfaceProgress(ctx context.Context, placeholderMessageID string, ev TraceEvent, throttle *ProgressThrottle, log *slog.Logger) {
	if inv.chatSvc == nil || placeholderMessageID == "" {
		return
	}
	snippet := progressSnippet(ev)
	if snippet == "" || !throttle.Allow() {
		return
	}
	log.Debug("surfacing progress snippet", "snippet", snippet)
	inv.chatSvc.PostProgress(ctx, placeholderMessageID, snippet)
}

// isRetryableRuntimeError reports whether err represents a transport or
// throttling failure from the agent runtime, the only class eligible for
// retry per §4.3.
func isRetryableRuntimeError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "throttl") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "temporarily unavailable") ||
		errors.Is(err, context.DeadlineExceeded)
}

func (inv *Invoker) enqueueDelivery(ctx context.Context, item *workitem.WorkItem, conversationID string, result *SessionResult, log *slog.Logger) {
	intentClass := classifier.Classify(result.AssembledResponse, item.Query)
	targetURL := ""
	if inv.targets != nil {
		targetURL = inv.targets.URLFor(string(intentClass))
	}

	job := &delivery.Job{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		IntentClass:    string(intentClass),
		TargetURL:      targetURL,
		MaxAttempts:    inv.cfg.DeliveryMaxAttempts,
		Payload: delivery.Payload{
			Header:        string(intentClass),
			ResponseRich:  result.AssembledResponse,
			ResponsePlain: stripMarkdown(result.AssembledResponse),
			AgentsUsed:    result.AgentsUsed,
			Metadata: delivery.PayloadMetadata{
				TrackingID:       conversationID,
				ProcessingTimeMS: result.EndedAt.Sub(result.StartedAt).Milliseconds(),
				Timestamp:        result.EndedAt.Format(time.RFC3339),
				SourceSystem:     "revops_ai_framework",
				SourceProcess:    "webhook_gateway",
			},
		},
	}

	if inv.delivery == nil {
		return
	}
	if err := inv.delivery.Enqueue(ctx, job); err != nil {
		log.Error("failed to enqueue delivery job", "intent_class", intentClass, "error", err)
	}
}

var markdownStripRe = regexp.MustCompile(`[*_` + "`" + `#]+`)

// stripMarkdown removes the handful of markdown control characters the
// agent's responses use, leaving a plain-text rendering for response_plain.
func stripMarkdown(s string) string {
	return markdownStripRe.ReplaceAllString(s, "")
}
