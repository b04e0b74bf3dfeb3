package workitem

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Pool manages a pool of work-item workers claiming against the same
// Postgres table, the realization of §5.1's durable queue for C3.
type Pool struct {
	podID         string
	repo          *Repository
	workerCount   int
	maxConcurrent int
	pollInterval  time.Duration
	pollJitter    time.Duration
	executor      Executor

	workers  []*Worker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	activeItems map[string]context.CancelFunc
	mu          sync.RWMutex
	started     bool
}

// PoolConfig sizes one Pool instance.
type PoolConfig struct {
	WorkerCount           int
	MaxConcurrentSessions int
	PollInterval          time.Duration
	PollIntervalJitter    time.Duration
}

// NewPool creates a new work-item worker pool.
func NewPool(podID string, repo *Repository, cfg PoolConfig, executor Executor) *Pool {
	return &Pool{
		podID:         podID,
		repo:          repo,
		workerCount:   cfg.WorkerCount,
		maxConcurrent: cfg.MaxConcurrentSessions,
		pollInterval:  cfg.PollInterval,
		pollJitter:    cfg.PollIntervalJitter,
		executor:      executor,
		stopCh:        make(chan struct{}),
		activeItems:   make(map[string]context.CancelFunc),
	}
}

// Start spawns worker goroutines. Safe to call once; later calls are no-ops.
func (p *Pool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("work item pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return nil
	}
	p.started = true

	slog.Info("starting work item pool", "pod_id", p.podID, "worker_count", p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		workerID := fmt.Sprintf("%s-workitem-%d", p.podID, i)
		worker := NewWorker(workerID, p.podID, p.repo, p.maxConcurrent, p.pollInterval, p.pollJitter, p.executor, p)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}
	return nil
}

// Stop signals all workers to stop and waits for their current item to finish.
func (p *Pool) Stop() {
	slog.Info("stopping work item pool gracefully")

	active := p.activeItemIDs()
	if len(active) > 0 {
		slog.Info("waiting for active work items to complete", "count", len(active), "ids", active)
	}

	for _, worker := range p.workers {
		worker.Stop()
	}
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("work item pool stopped gracefully")
}

// RegisterItem stores a cancel function for manual cancellation.
func (p *Pool) RegisterItem(itemID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeItems[itemID] = cancel
}

// UnregisterItem removes the cancel function when processing ends.
func (p *Pool) UnregisterItem(itemID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeItems, itemID)
}

// CancelItem triggers context cancellation for a work item on this pod.
func (p *Pool) CancelItem(itemID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeItems[itemID]; ok {
		cancel()
		return true
	}
	return false
}

// Health reports the pool's current health, including Postgres reachability.
func (p *Pool) Health(ctx context.Context) *PoolHealth {
	queueDepth, errQ := p.repo.QueueDepth(ctx)
	if errQ != nil {
		slog.Error("failed to query queue depth for health check", "pod_id", p.podID, "error", errQ)
	}

	inProgress, errA := p.repo.CountInProgress(ctx)
	if errA != nil {
		slog.Error("failed to query in-progress count for health check", "pod_id", p.podID, "error", errA)
	}

	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	dbHealthy := errQ == nil && errA == nil
	isHealthy := len(p.workers) > 0 && inProgress <= p.maxConcurrent && dbHealthy

	var dbError string
	if !dbHealthy {
		if errQ != nil {
			dbError = fmt.Sprintf("queue depth query failed: %v", errQ)
		} else {
			dbError = fmt.Sprintf("in-progress query failed: %v", errA)
		}
	}

	return &PoolHealth{
		IsHealthy:     isHealthy,
		DBReachable:   dbHealthy,
		DBError:       dbError,
		ActiveWorkers: activeWorkers,
		TotalWorkers:  len(p.workers),
		InProgress:    inProgress,
		MaxConcurrent: p.maxConcurrent,
		QueueDepth:    queueDepth,
		WorkerStats:   workerStats,
	}
}

func (p *Pool) activeItemIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.activeItems))
	for id := range p.activeItems {
		ids = append(ids, id)
	}
	return ids
}
