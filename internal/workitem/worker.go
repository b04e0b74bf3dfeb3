package workitem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes work items.
type Worker struct {
	id            string
	podID         string
	repo          *Repository
	maxConcurrent int
	pollInterval  time.Duration
	pollJitter    time.Duration
	executor      Executor
	registry      ItemRegistry
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup

	mu             sync.RWMutex
	status         WorkerStatus
	currentItemID  string
	itemsProcessed int
	lastActivity   time.Time
}

// ItemRegistry is the subset of Pool used by Worker for cancellation registration.
type ItemRegistry interface {
	RegisterItem(itemID string, cancel context.CancelFunc)
	UnregisterItem(itemID string)
}

// NewWorker creates a new queue worker. maxConcurrent bounds the
// pre-claim capacity check in pollAndProcess.
func NewWorker(id, podID string, repo *Repository, maxConcurrent int, pollInterval, pollJitter time.Duration, executor Executor, registry ItemRegistry) *Worker {
	return &Worker{
		id:            id,
		podID:         podID,
		repo:          repo,
		maxConcurrent: maxConcurrent,
		pollInterval:  pollInterval,
		pollJitter:    pollJitter,
		executor:      executor,
		registry:      registry,
		stopCh:        make(chan struct{}),
		status:        WorkerStatusIdle,
		lastActivity:  time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for its current item to finish.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:             w.id,
		Status:         string(w.status),
		CurrentItemID:  w.currentItemID,
		ItemsProcessed: w.itemsProcessed,
		LastActivity:   w.lastActivity,
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("work item worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("work item worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, work item worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoWorkAvailable) || errors.Is(err, ErrAtCapacity) {
					w.sleep(w.jitteredPollInterval())
					continue
				}
				log.Error("error processing work item", "error", err)
				w.sleep(time.Second)
			}
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

func (w *Worker) pollAndProcess(ctx context.Context) error {
	// Check global capacity first; best-effort and racy with concurrent
	// workers, but bounded by worker count and smoothed by poll jitter.
	activeCount, err := w.repo.CountInProgress(ctx)
	if err != nil {
		return fmt.Errorf("checking active work items: %w", err)
	}
	if activeCount >= w.maxConcurrent {
		return ErrAtCapacity
	}

	item, err := w.repo.ClaimNext(ctx, w.podID)
	if err != nil {
		return err
	}

	log := slog.With("work_item_id", item.ID, "worker_id", w.id, "session_key", item.SessionKey)
	log.Info("work item claimed")

	w.setStatus(WorkerStatusWorking, item.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	itemCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	w.registry.RegisterItem(item.ID, cancel)
	defer w.registry.UnregisterItem(item.ID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(itemCtx)
	defer cancelHeartbeat()
	go w.runHeartbeat(heartbeatCtx, item.ID)

	result := w.executor.Execute(itemCtx, item)
	if result == nil {
		result = &ExecutionResult{Status: StatusFailed, Error: fmt.Errorf("executor returned nil result")}
	}
	cancelHeartbeat()

	errMsg := ""
	if result.Error != nil {
		errMsg = result.Error.Error()
	}
	if err := w.repo.CompleteTerminal(context.Background(), item.ID, result.Status, errMsg); err != nil {
		log.Error("failed to write terminal status", "error", err)
		return err
	}

	w.mu.Lock()
	w.itemsProcessed++
	w.mu.Unlock()

	log.Info("work item processing complete", "status", result.Status)
	return nil
}

func (w *Worker) runHeartbeat(ctx context.Context, itemID string) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.repo.Heartbeat(ctx, itemID); err != nil {
				slog.Warn("heartbeat update failed", "work_item_id", itemID, "error", err)
			}
		}
	}
}

func (w *Worker) jitteredPollInterval() time.Duration {
	if w.pollJitter <= 0 {
		return w.pollInterval
	}
	offset := time.Duration(rand.Int64N(int64(2 * w.pollJitter)))
	return w.pollInterval - w.pollJitter + offset
}

func (w *Worker) setStatus(status WorkerStatus, itemID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentItemID = itemID
	w.lastActivity = time.Now()
}
