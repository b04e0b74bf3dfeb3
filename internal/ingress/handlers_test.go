package ingress

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GuyDuerFB/revops-gateway/internal/clock"
	"github.com/GuyDuerFB/revops-gateway/internal/signature"
	"github.com/GuyDuerFB/revops-gateway/internal/workitem"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEnqueuer struct {
	items []*workitem.WorkItem
	err   error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, item *workitem.WorkItem) error {
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, item)
	return nil
}

type fakeDedup struct {
	seenIDs map[string]bool
	err     error
}

func (f *fakeDedup) Seen(ctx context.Context, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seenIDs[eventID] {
		return true, nil
	}
	if f.seenIDs == nil {
		f.seenIDs = map[string]bool{}
	}
	f.seenIDs[eventID] = true
	return false, nil
}

type fakePinger struct{ err error }

func (f *fakePinger) PingContext(ctx context.Context) error { return f.err }

func testRouter(enq *fakeEnqueuer, dedup *fakeDedup, secret string) *Router {
	return NewRouter(
		signature.New(secret, 5*time.Minute),
		nil, // chat.Service is nil-safe
		enq,
		dedup,
		&fakePinger{},
		nil,
		clock.Fixed{At: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
	)
}

func hmacHex(secret string, ts int64, body []byte) string {
	canonical := fmt.Sprintf("%s:%d:%s", signature.Scheme, ts, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func newSlackRequest(t *testing.T, body []byte, ts, sig string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", sig)
	return req
}

func TestHandleSlackEvents_URLVerification(t *testing.T) {
	enq := &fakeEnqueuer{}
	rt := testRouter(enq, &fakeDedup{}, "shh")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]string{"type": "url_verification", "challenge": "abc123"})
	c.Request = httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))

	rt.HandleSlackEvents(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "abc123")
	assert.Empty(t, enq.items)
}

func TestHandleSlackEvents_UnsignedRequestRejected(t *testing.T) {
	enq := &fakeEnqueuer{}
	rt := testRouter(enq, &fakeDedup{}, "shh")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]any{
		"type":     "event_callback",
		"event_id": "Ev1",
		"event":    map[string]string{"type": "app_mention", "text": "hi", "channel": "C1", "ts": "1.1"},
	})
	c.Request = httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))

	rt.HandleSlackEvents(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, enq.items)
}

func TestHandleSlackEvents_AppMentionEnqueues(t *testing.T) {
	enq := &fakeEnqueuer{}
	rt := testRouter(enq, &fakeDedup{}, "shh")

	body, _ := json.Marshal(map[string]any{
		"type":     "event_callback",
		"event_id": "Ev1",
		"event": map[string]string{
			"type": "app_mention", "text": "<@U0BOT> what's our pipeline", "channel": "C1", "user": "U9", "ts": "1000.1",
		},
	})
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Unix()
	sig := "v0=" + hmacHex("shh", ts, body)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = newSlackRequest(t, body, itoa(ts), sig)

	rt.HandleSlackEvents(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, enq.items, 1)
	assert.Equal(t, workitem.KindChatMention, enq.items[0].Kind)
	assert.Equal(t, "what's our pipeline", enq.items[0].Query)
	assert.Equal(t, "1000.1", enq.items[0].Origin.ThreadID)
}

func TestHandleSlackEvents_DuplicateEventDropped(t *testing.T) {
	enq := &fakeEnqueuer{}
	dedup := &fakeDedup{seenIDs: map[string]bool{"Ev1": true}}
	rt := testRouter(enq, dedup, "shh")

	body, _ := json.Marshal(map[string]any{
		"type":     "event_callback",
		"event_id": "Ev1",
		"event":    map[string]string{"type": "app_mention", "text": "hi", "channel": "C1", "ts": "1.1"},
	})
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	ts := now.Unix()
	sig := "v0=" + hmacHex("shh", ts, body)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = newSlackRequest(t, body, itoa(ts), sig)

	rt.HandleSlackEvents(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, enq.items)
}

func TestHandleWebhook_ValidRequestEnqueuesAndAcks(t *testing.T) {
	enq := &fakeEnqueuer{}
	rt := testRouter(enq, &fakeDedup{}, "shh")

	body, _ := json.Marshal(map[string]string{
		"query": "summarize this deal", "source_system": "crm", "source_process": "daily-digest",
		"timestamp": "2026-06-01T12:00:00Z",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	rt.HandleWebhook(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, enq.items, 1)
	assert.Equal(t, workitem.KindWebhookQuery, enq.items[0].Kind)

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Tracking.ConversationID)
	assert.Equal(t, "queued", resp.DeliveryStatus.Status)
}

func TestHandleWebhook_MissingFieldRejected(t *testing.T) {
	enq := &fakeEnqueuer{}
	rt := testRouter(enq, &fakeDedup{}, "shh")

	body, _ := json.Marshal(map[string]string{"query": "no other fields"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	rt.HandleWebhook(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, enq.items)
}

func TestHandleWebhook_BadTimestampRejected(t *testing.T) {
	enq := &fakeEnqueuer{}
	rt := testRouter(enq, &fakeDedup{}, "shh")

	body, _ := json.Marshal(map[string]string{
		"query": "q", "source_system": "crm", "source_process": "p", "timestamp": "not-a-date",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	rt.HandleWebhook(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, enq.items)
}

func TestHandleWebhook_EnqueueFailureReturnsServiceUnavailable(t *testing.T) {
	enq := &fakeEnqueuer{err: assert.AnError}
	rt := testRouter(enq, &fakeDedup{}, "shh")

	body, _ := json.Marshal(map[string]string{
		"query": "q", "source_system": "crm", "source_process": "p", "timestamp": "2026-06-01T12:00:00Z",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	rt.HandleWebhook(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleHealthz_ReportsDBFailure(t *testing.T) {
	rt := NewRouter(signature.New("shh", time.Minute), nil, &fakeEnqueuer{}, &fakeDedup{}, &fakePinger{err: assert.AnError}, nil, clock.Real{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)

	rt.HandleHealthz(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
