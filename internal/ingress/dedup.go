package ingress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dedup tracks chat event ids seen within the redelivery window, using the
// ingress_dedup table. Slack retries app_mention deliveries on slow acks;
// this is what lets the router drop the retry instead of double-enqueuing.
type Dedup struct {
	db     *sql.DB
	window time.Duration
}

// NewDedup wraps a *sql.DB (as returned by store.Client.DB()).
func NewDedup(db *sql.DB, window time.Duration) *Dedup {
	return &Dedup{db: db, window: window}
}

// Seen reports whether eventID has already been recorded within the dedup
// window, and if not, records it atomically so a concurrent redelivery
// racing this call cannot both pass the check.
func (d *Dedup) Seen(ctx context.Context, eventID string) (bool, error) {
	cutoff := time.Now().Add(-d.window)

	var existingAt time.Time
	err := d.db.QueryRowContext(ctx, `
		SELECT received_at FROM ingress_dedup WHERE event_id = $1
	`, eventID).Scan(&existingAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Not seen; fall through to record it.
	case err != nil:
		return false, fmt.Errorf("checking ingress dedup: %w", err)
	default:
		if existingAt.After(cutoff) {
			return true, nil
		}
		// Seen, but outside the window — treat as a fresh event and refresh
		// the recorded timestamp below.
	}

	var recorded string
	err = d.db.QueryRowContext(ctx, `
		INSERT INTO ingress_dedup (event_id, received_at)
		VALUES ($1, now())
		ON CONFLICT (event_id) DO UPDATE SET received_at = now()
		WHERE ingress_dedup.received_at <= $2
		RETURNING event_id
	`, eventID, cutoff).Scan(&recorded)
	if errors.Is(err, sql.ErrNoRows) {
		// A concurrent call recorded this event inside the window first.
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("recording ingress dedup: %w", err)
	}
	return false, nil
}
