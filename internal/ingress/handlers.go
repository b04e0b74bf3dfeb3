package ingress

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/GuyDuerFB/revops-gateway/internal/agentclient"
	"github.com/GuyDuerFB/revops-gateway/internal/chat"
	"github.com/GuyDuerFB/revops-gateway/internal/clock"
	taxonomy "github.com/GuyDuerFB/revops-gateway/internal/errors"
	"github.com/GuyDuerFB/revops-gateway/internal/signature"
	"github.com/GuyDuerFB/revops-gateway/internal/workitem"
)

// WorkItemEnqueuer is the queue-facing dependency C2 enqueues onto,
// satisfied by *workitem.Repository.
type WorkItemEnqueuer interface {
	Enqueue(ctx context.Context, item *workitem.WorkItem) error
}

// AgentPoolHealth is the subset of workitem.Pool's surface /healthz needs.
type AgentPoolHealth interface {
	Health(ctx context.Context) *workitem.PoolHealth
}

// DedupChecker is the event-id redelivery check, satisfied by *Dedup.
// Abstracted so handler tests don't need a real database.
type DedupChecker interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

// Pinger is the database-reachability check /healthz performs, satisfied by
// *sql.DB. Abstracted for the same reason as DedupChecker.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Router holds C2's dependencies and exposes gin handler functions for
// /slack/events, /webhook, and /healthz.
type Router struct {
	verifier  *signature.Verifier
	chatSvc   *chat.Service
	enqueuer  WorkItemEnqueuer
	dedup     DedupChecker
	db        Pinger
	agentPool AgentPoolHealth
	clk       clock.Clock
	logger    *slog.Logger
}

// NewRouter constructs a Router. agentPool may be nil if pool health is not
// wired up (degrades /healthz gracefully, it simply omits that section).
func NewRouter(verifier *signature.Verifier, chatSvc *chat.Service, enqueuer WorkItemEnqueuer, dedup DedupChecker, db Pinger, agentPool AgentPoolHealth, clk clock.Clock) *Router {
	return &Router{
		verifier:  verifier,
		chatSvc:   chatSvc,
		enqueuer:  enqueuer,
		dedup:     dedup,
		db:        db,
		agentPool: agentPool,
		clk:       clk,
		logger:    slog.Default().With("component", "ingress"),
	}
}

// Register mounts the router's handlers on a gin.Engine.
func (rt *Router) Register(r gin.IRouter) {
	r.POST("/slack/events", rt.HandleSlackEvents)
	r.POST("/webhook", rt.HandleWebhook)
	r.GET("/healthz", rt.HandleHealthz)
}

// HandleSlackEvents is C2's on_chat_event entry point: it handles the
// url_verification handshake inline, verifies the HMAC envelope on every
// other request, drops duplicate app_mention redeliveries, posts the
// placeholder message, and enqueues a chat_mention WorkItem.
func (rt *Router) HandleSlackEvents(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}

	var envelope slackEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed body"})
		return
	}

	// The verification handshake is unsigned and must be answered before any
	// signing-secret check — Slack sends it once, out of band, to prove
	// ownership of the endpoint.
	if envelope.Type == "url_verification" {
		c.JSON(http.StatusOK, gin.H{"challenge": envelope.Challenge})
		return
	}

	headers := signature.Headers{
		Timestamp: c.GetHeader("X-Slack-Request-Timestamp"),
		Signature: c.GetHeader("X-Slack-Signature"),
	}
	if err := rt.verifier.Verify(headers, rawBody, rt.clk.Now()); err != nil {
		rejection := taxonomy.Wrap(taxonomy.InvalidSignature, "slack event rejected", err)
		rt.logger.Warn("rejected unsigned or invalid slack event", "code", rejection.Code, "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Every other event type is ack'd and ignored; only app_mention starts a
	// work item.
	if envelope.Event.Type != "app_mention" {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ctx := c.Request.Context()

	seen, err := rt.dedup.Seen(ctx, envelope.EventID)
	if err != nil {
		rt.logger.Error("ingress dedup check failed", "event_id", envelope.EventID, "error", err)
		// Fail open: an un-deduped duplicate costs one extra agent turn, a
		// dropped first delivery costs the user their answer.
	} else if seen {
		c.JSON(http.StatusOK, gin.H{"ok": true, "duplicate": true})
		return
	}

	threadID := envelope.Event.ThreadTS
	if threadID == "" {
		threadID = envelope.Event.TS
	}

	placeholderID, err := rt.chatSvc.PostPlaceholder(ctx, threadID)
	if err != nil {
		rt.logger.Error("failed to post placeholder message", "channel", envelope.Event.Channel, "error", err)
		// Still ack: retrying the whole handshake would just duplicate the
		// event; the user sees no placeholder but the thread is otherwise
		// undamaged.
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	now := rt.clk.Now()
	item := &workitem.WorkItem{
		ID:              uuid.NewString(),
		Kind:            workitem.KindChatMention,
		Query:           chat.ExtractQuery(envelope.Event.Text),
		TemporalContext: agentclient.TemporalContext(now),
		Origin: workitem.Origin{
			ChannelID:          envelope.Event.Channel,
			UserID:             envelope.Event.User,
			ThreadID:           threadID,
			PlaceholderMessage: placeholderID,
		},
		ReceivedAt: now,
	}

	if err := rt.enqueuer.Enqueue(ctx, item); err != nil {
		rt.logger.Error("failed to enqueue chat work item, alerting", "event_id", envelope.EventID, "error", err)
		// Back-pressure: chat variant still reports success so the platform
		// does not retry-storm; the placeholder message is left in its
		// "processing…" state as the visible symptom.
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// HandleWebhook is C2's on_webhook_request entry point.
func (rt *Router) HandleWebhook(c *gin.Context) {
	start := rt.clk.Now()

	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		malformed := taxonomy.Wrap(taxonomy.MalformedInput, "webhook body failed validation", err)
		rt.logger.Warn("rejected webhook request", "code", malformed.Code, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := time.Parse(time.RFC3339, req.Timestamp); err != nil {
		malformed := taxonomy.New(taxonomy.MalformedInput, "timestamp must be ISO-8601")
		rt.logger.Warn("rejected webhook request", "code", malformed.Code)
		c.JSON(http.StatusBadRequest, gin.H{"error": "timestamp must be ISO-8601"})
		return
	}

	conversationID := uuid.NewString()
	now := rt.clk.Now()
	item := &workitem.WorkItem{
		ID:              uuid.NewString(),
		Kind:            workitem.KindWebhookQuery,
		Query:           req.Query,
		TemporalContext: agentclient.TemporalContext(now),
		Origin: workitem.Origin{
			SourceSystem:        req.SourceSystem,
			SourceProcess:       req.SourceProcess,
			TargetCorrelationID: conversationID,
		},
		ReceivedAt: now,
	}

	if err := rt.enqueuer.Enqueue(c.Request.Context(), item); err != nil {
		rt.logger.Error("failed to enqueue webhook work item", "conversation_id", conversationID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service_unavailable"})
		return
	}

	c.JSON(http.StatusOK, webhookResponse{
		Success: true,
		Message: "request accepted",
		Tracking: trackingInfo{
			ConversationID:        conversationID,
			ProcessingTimeMS:      rt.clk.Now().Sub(start).Milliseconds(),
			QueuedAt:              isoTimestamp(now),
			EstimatedDeliveryTime: estimatedDeliveryWindow,
		},
		DeliveryStatus: deliveryStatus{Status: "queued"},
	})
}

// HandleHealthz reports database reachability and C3's worker-pool health.
func (rt *Router) HandleHealthz(c *gin.Context) {
	ctx := c.Request.Context()

	dbErr := rt.db.PingContext(ctx)
	status := http.StatusOK

	body := gin.H{"status": "ok"}
	if dbErr != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["database_error"] = dbErr.Error()
	}
	if rt.agentPool != nil {
		body["agent_pool"] = rt.agentPool.Health(ctx)
	}

	c.JSON(status, body)
}
