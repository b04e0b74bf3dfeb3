package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Pool manages the independent worker pool claiming delivery_jobs, sized
// separately from the workitem pool per §5's isolation requirement.
type Pool struct {
	podID   string
	workers []*Worker
	wg      sync.WaitGroup
}

// PoolConfig sizes one delivery Pool.
type PoolConfig struct {
	WorkerCount     int
	AttemptDeadline time.Duration
	PollInterval    time.Duration
	PollJitter      time.Duration
	Retry           RetryPolicy
}

// NewPool creates a delivery worker pool.
func NewPool(podID string, repo *Repository, deliverer *Deliverer, cfg PoolConfig) *Pool {
	p := &Pool{podID: podID}
	for i := 0; i < cfg.WorkerCount; i++ {
		id := fmt.Sprintf("%s-delivery-%d", podID, i)
		p.workers = append(p.workers, NewWorker(id, podID, repo, deliverer, cfg.Retry, cfg.AttemptDeadline, cfg.PollInterval, cfg.PollJitter))
	}
	return p
}

// Start spawns all worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	slog.Info("starting delivery pool", "pod_id", p.podID, "worker_count", len(p.workers))
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Stop signals every worker to stop and waits for in-flight attempts to finish.
func (p *Pool) Stop() {
	slog.Info("stopping delivery pool gracefully")
	for _, w := range p.workers {
		w.Stop()
	}
	p.wg.Wait()
	slog.Info("delivery pool stopped gracefully")
}
