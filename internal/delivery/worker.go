package delivery

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Worker claims and delivers jobs from the delivery_jobs table. Sized
// independently from the workitem pool to isolate agent-call capacity from
// egress capacity (§5).
type Worker struct {
	id           string
	podID        string
	repo         *Repository
	deliverer    *Deliverer
	policy       RetryPolicy
	attemptDeadline time.Duration
	pollInterval time.Duration
	pollJitter   time.Duration
	stopCh       chan struct{}
}

// NewWorker creates a delivery worker.
func NewWorker(id, podID string, repo *Repository, deliverer *Deliverer, policy RetryPolicy, attemptDeadline, pollInterval, pollJitter time.Duration) *Worker {
	return &Worker{
		id:              id,
		podID:           podID,
		repo:            repo,
		deliverer:       deliverer,
		policy:          policy,
		attemptDeadline: attemptDeadline,
		pollInterval:    pollInterval,
		pollJitter:      pollJitter,
		stopCh:          make(chan struct{}),
	}
}

// Run polls until ctx is cancelled or Stop is called.
func (w *Worker) Run(ctx context.Context) {
	log := slog.With("delivery_worker_id", w.id, "pod_id", w.podID)
	log.Info("delivery worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("delivery worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, delivery worker shutting down")
			return
		default:
			if err := w.pollAndDeliver(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) {
					w.sleep(w.jitteredPollInterval())
					continue
				}
				log.Error("error delivering job", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

// Stop signals the worker's Run loop to exit.
func (w *Worker) Stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) pollAndDeliver(ctx context.Context) error {
	job, err := w.repo.ClaimNext(ctx, w.podID)
	if err != nil {
		return err
	}

	log := slog.With("delivery_id", job.ID, "conversation_id", job.ConversationID, "intent_class", job.IntentClass)

	attempt := job.Attempt + 1
	start := time.Now()
	outcome, reason := w.deliverer.Attempt(ctx, job, w.attemptDeadline)
	duration := time.Since(start)

	log.Info("delivery attempt complete",
		"attempt", attempt, "outcome", outcome, "duration_ms", duration.Milliseconds())

	switch outcome {
	case OutcomeSuccess:
		return w.repo.MarkDelivered(ctx, job.ID, attempt)

	case OutcomeRetry:
		if attempt >= job.MaxAttempts {
			return w.repo.MarkFailedPermanent(ctx, job, "attempts exhausted: "+reason)
		}
		delay := w.policy.Delay(attempt)
		return w.repo.ScheduleRetry(ctx, job.ID, attempt, time.Now().Add(delay), reason)

	default: // OutcomeTerminal
		return w.repo.MarkFailedPermanent(ctx, job, reason)
	}
}

func (w *Worker) jitteredPollInterval() time.Duration {
	if w.pollJitter <= 0 {
		return w.pollInterval
	}
	offset := time.Duration(rand.Int64N(int64(2 * w.pollJitter)))
	return w.pollInterval - w.pollJitter + offset
}
