package delivery

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository is the SQL-backed access layer for delivery_jobs and
// dead_letter_jobs, the realization of queue_url_delivery / queue_url_deadletter (§5.1).
type Repository struct {
	db *sql.DB
}

// NewRepository wraps a *sql.DB (as returned by store.Client.DB()).
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue inserts a new delivery job, owned by C4/C5 at classification time.
func (r *Repository) Enqueue(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO delivery_jobs (id, conversation_id, intent_class, target_url, payload, max_attempts)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, job.ID, job.ConversationID, job.IntentClass, job.TargetURL, payload, job.MaxAttempts)
	if err != nil {
		return fmt.Errorf("enqueueing delivery job: %w", err)
	}
	return nil
}

// ClaimNext atomically claims the oldest ready delivery job for claimedBy.
func (r *Repository) ClaimNext(ctx context.Context, claimedBy string) (*Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting claim transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, conversation_id, intent_class, target_url, payload, attempt, max_attempts,
		       next_ready_at, terminal_status, created_at, updated_at
		FROM delivery_jobs
		WHERE terminal_status IN ('pending', 'retry_scheduled') AND next_ready_at <= now()
		ORDER BY next_ready_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("querying ready delivery job: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE delivery_jobs SET claimed_by = $1, updated_at = now() WHERE id = $2
	`, claimedBy, job.ID)
	if err != nil {
		return nil, fmt.Errorf("claiming delivery job %s: %w", job.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	job.ClaimedBy = claimedBy
	return job, nil
}

// MarkDelivered sets the terminal write-once 'delivered' status.
func (r *Repository) MarkDelivered(ctx context.Context, id string, attempt int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE delivery_jobs SET terminal_status = 'delivered', attempt = $1, updated_at = now() WHERE id = $2
	`, attempt, id)
	return err
}

// ScheduleRetry re-enqueues the job with an incremented attempt and the next
// claimable time, per §4.5's retry mechanics.
func (r *Repository) ScheduleRetry(ctx context.Context, id string, attempt int, nextReadyAt time.Time, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE delivery_jobs
		SET terminal_status = 'retry_scheduled', attempt = $1,
		    next_ready_at = $2, last_error = $3, updated_at = now()
		WHERE id = $4
	`, attempt, nextReadyAt, lastError, id)
	return err
}

// MarkFailedPermanent writes the terminal failed_permanent status and moves
// the job's payload to the dead-letter sink in one transaction.
func (r *Repository) MarkFailedPermanent(ctx context.Context, job *Job, reason string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting dead-letter transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE delivery_jobs SET terminal_status = 'failed_permanent', last_error = $1, updated_at = now() WHERE id = $2
	`, reason, job.ID); err != nil {
		return fmt.Errorf("marking job failed_permanent: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dead_letter_jobs (id, delivery_id, conversation_id, target_url, payload, reason)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
	`, job.ID, job.ConversationID, job.TargetURL, payload, reason); err != nil {
		return fmt.Errorf("inserting dead-letter row: %w", err)
	}

	return tx.Commit()
}

// QueueDepth returns the number of jobs pending or scheduled for retry.
func (r *Repository) QueueDepth(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM delivery_jobs WHERE terminal_status IN ('pending', 'retry_scheduled')
	`).Scan(&count)
	return count, err
}

func scanJob(row *sql.Row) (*Job, error) {
	var job Job
	var payload []byte
	if err := row.Scan(
		&job.ID, &job.ConversationID, &job.IntentClass, &job.TargetURL, &payload,
		&job.Attempt, &job.MaxAttempts, &job.NextReadyAt, &job.TerminalStatus,
		&job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return nil, fmt.Errorf("unmarshaling payload: %w", err)
		}
	}
	return &job, nil
}
