package workitem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkerJitteredPollInterval(t *testing.T) {
	w := NewWorker("test-worker", "test-pod", nil, 10, 1*time.Second, 500*time.Millisecond, nil, nil)

	for i := 0; i < 100; i++ {
		d := w.jitteredPollInterval()
		assert.GreaterOrEqual(t, d, 500*time.Millisecond)
		assert.LessOrEqual(t, d, 1500*time.Millisecond)
	}
}

func TestWorkerJitteredPollIntervalNoJitter(t *testing.T) {
	w := NewWorker("test-worker", "test-pod", nil, 10, 1*time.Second, 0, nil, nil)

	for i := 0; i < 10; i++ {
		assert.Equal(t, 1*time.Second, w.jitteredPollInterval())
	}
}

func TestWorkerJitteredPollIntervalNegativeJitter(t *testing.T) {
	w := NewWorker("test-worker", "test-pod", nil, 10, 1*time.Second, -100*time.Millisecond, nil, nil)

	for i := 0; i < 10; i++ {
		assert.Equal(t, 1*time.Second, w.jitteredPollInterval())
	}
}

func TestWorkerHealth(t *testing.T) {
	w := NewWorker("worker-1", "pod-1", nil, 10, time.Second, 0, nil, nil)

	h := w.Health()
	assert.Equal(t, "worker-1", h.ID)
	assert.Equal(t, string(WorkerStatusIdle), h.Status)
	assert.Equal(t, "", h.CurrentItemID)
	assert.Equal(t, 0, h.ItemsProcessed)

	w.setStatus(WorkerStatusWorking, "item-abc")
	h = w.Health()
	assert.Equal(t, string(WorkerStatusWorking), h.Status)
	assert.Equal(t, "item-abc", h.CurrentItemID)

	w.setStatus(WorkerStatusIdle, "")
	h = w.Health()
	assert.Equal(t, string(WorkerStatusIdle), h.Status)
	assert.Equal(t, "", h.CurrentItemID)
}

func TestWorkerStopIdempotent(t *testing.T) {
	w := NewWorker("worker-1", "pod-1", nil, 10, time.Second, 0, nil, nil)

	assert.NotPanics(t, func() { w.Stop() })
	assert.NotPanics(t, func() { w.Stop() })
}
