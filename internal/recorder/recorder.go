package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GuyDuerFB/revops-gateway/internal/agentclient"
	taxonomy "github.com/GuyDuerFB/revops-gateway/internal/errors"
)

// Exporter writes a finished ConversationRecord out, in whatever formats it
// chooses, keyed by conversation id and the time the session ended.
type Exporter interface {
	Export(ctx context.Context, record ConversationRecord) error
}

// Recorder implements agentclient.Recorder: one builder per in-flight
// session, guarded by a mutex since Record is called from C3's streaming
// goroutine while Finalize may race a concurrent session's own calls.
type Recorder struct {
	mu       sync.Mutex
	sessions map[string]*builder
	exporter Exporter
	logger   *slog.Logger
}

// New constructs a Recorder. exporter may be nil, in which case finished
// records are built and discarded — useful for tests that only care about
// the in-memory record, not its export.
func New(exporter Exporter) *Recorder {
	return &Recorder{
		sessions: map[string]*builder{},
		exporter: exporter,
		logger:   slog.Default().With("component", "recorder"),
	}
}

var _ agentclient.Recorder = (*Recorder)(nil)

func (r *Recorder) Start(sessionID, conversationID, channel, sourceSystem, userQuery string, startedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = newBuilder(sessionID, conversationID, channel, sourceSystem, userQuery, startedAt)
}

func (r *Recorder) Record(sessionID string, ev agentclient.TraceEvent) {
	r.mu.Lock()
	b, ok := r.sessions[sessionID]
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("trace event for unknown session", "session_id", sessionID)
		return
	}
	b.ingest(ev)
}

// Finalize closes out the session's record and exports it in the
// background: C3 must not block its own shutdown path waiting on an
// object-store round trip.
func (r *Recorder) Finalize(sessionID string, result agentclient.SessionResult) {
	r.mu.Lock()
	b, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("finalize for unknown session", "session_id", sessionID)
		return
	}

	record := b.finalize(result)
	if r.exporter == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.exporter.Export(ctx, record); err != nil {
			failure := taxonomy.Wrap(taxonomy.ExportFailure, "conversation record export failed", err)
			r.logger.Error("failed to export conversation record", "conversation_id", record.ConversationID, "code", failure.Code, "error", err)
		}
	}()
}
