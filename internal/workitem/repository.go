package workitem

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Repository is the SQL-backed access layer for the work_items table.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps a *sql.DB (as returned by store.Client.DB()).
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue inserts a new pending WorkItem, generated and owned by C2.
func (r *Repository) Enqueue(ctx context.Context, item *WorkItem) error {
	origin, err := json.Marshal(item.Origin)
	if err != nil {
		return fmt.Errorf("marshaling origin: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO work_items (id, kind, status, query, temporal_context, origin, session_key, received_at)
		VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7)
	`, item.ID, item.Kind, item.Query, item.TemporalContext, origin, item.SessionKey, item.ReceivedAt)
	if err != nil {
		return fmt.Errorf("enqueueing work item: %w", err)
	}
	return nil
}

// CountInProgress returns the number of work items currently claimed.
func (r *Repository) CountInProgress(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM work_items WHERE status = 'in_progress'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting in-progress work items: %w", err)
	}
	return count, nil
}

// QueueDepth returns the number of pending work items.
func (r *Repository) QueueDepth(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM work_items WHERE status = 'pending'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting pending work items: %w", err)
	}
	return count, nil
}

// ClaimNext atomically claims the oldest pending WorkItem for claimedBy,
// using SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers never block
// on, or double-claim, the same row.
func (r *Repository) ClaimNext(ctx context.Context, claimedBy string) (*WorkItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, kind, status, query, temporal_context, origin, session_key, received_at, created_at, updated_at
		FROM work_items
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`)

	item, err := scanWorkItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoWorkAvailable
		}
		return nil, fmt.Errorf("querying pending work item: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE work_items
		SET status = 'in_progress', claimed_by = $1, claimed_at = now(), last_interaction_at = now(), updated_at = now()
		WHERE id = $2
	`, claimedBy, item.ID)
	if err != nil {
		return nil, fmt.Errorf("claiming work item %s: %w", item.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	item.Status = StatusInProgress
	item.ClaimedBy = claimedBy
	return item, nil
}

// Heartbeat refreshes last_interaction_at so orphan detection can
// distinguish a stalled worker from one still making progress.
func (r *Repository) Heartbeat(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE work_items SET last_interaction_at = now() WHERE id = $1`, id)
	return err
}

// CompleteTerminal writes the terminal status and, if present, the failure reason.
func (r *Repository) CompleteTerminal(ctx context.Context, id string, status Status, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE work_items SET status = $1, error = NULLIF($2, ''), updated_at = now() WHERE id = $3
	`, status, errMsg, id)
	return err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanWorkItem(row scannable) (*WorkItem, error) {
	var item WorkItem
	var origin []byte
	if err := row.Scan(
		&item.ID, &item.Kind, &item.Status, &item.Query, &item.TemporalContext,
		&origin, &item.SessionKey, &item.ReceivedAt, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(origin) > 0 {
		if err := json.Unmarshal(origin, &item.Origin); err != nil {
			return nil, fmt.Errorf("unmarshaling origin: %w", err)
		}
	}
	return &item, nil
}
