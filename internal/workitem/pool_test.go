package workitem

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool() *Pool {
	return &Pool{activeItems: make(map[string]context.CancelFunc)}
}

func TestPoolRegisterAndCancelItem(t *testing.T) {
	pool := newTestPool()

	ctx, cancel := context.WithCancel(context.Background())
	pool.RegisterItem("item-1", cancel)

	assert.True(t, pool.CancelItem("item-1"))
	assert.Error(t, ctx.Err())

	assert.False(t, pool.CancelItem("unknown"))
}

func TestPoolUnregisterItem(t *testing.T) {
	pool := newTestPool()

	_, cancel := context.WithCancel(context.Background())
	pool.RegisterItem("item-1", cancel)

	assert.True(t, pool.CancelItem("item-1"))

	pool.UnregisterItem("item-1")

	assert.False(t, pool.CancelItem("item-1"))
}

func TestPoolActiveItemIDs(t *testing.T) {
	pool := newTestPool()

	ids := pool.activeItemIDs()
	assert.Empty(t, ids)

	_, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	_, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	pool.RegisterItem("item-a", cancel1)
	pool.RegisterItem("item-b", cancel2)

	ids = pool.activeItemIDs()
	require.Len(t, ids, 2)
	assert.Contains(t, ids, "item-a")
	assert.Contains(t, ids, "item-b")
}

func TestPoolStopTwiceDoesNotPanic(t *testing.T) {
	pool := &Pool{
		stopCh:      make(chan struct{}),
		activeItems: make(map[string]context.CancelFunc),
	}

	pool.Stop()
	assert.NotPanics(t, func() { pool.Stop() })
}

func TestPoolRegisterItemConcurrency(t *testing.T) {
	pool := newTestPool()

	const numItems = 100
	for i := 0; i < numItems; i++ {
		go func(id int) {
			_, cancel := context.WithCancel(context.Background())
			defer cancel()
			pool.RegisterItem(fmt.Sprintf("item-%d", id), cancel)
		}(i)
	}

	require.Eventually(t, func() bool {
		pool.mu.RLock()
		defer pool.mu.RUnlock()
		return len(pool.activeItems) == numItems
	}, 1*time.Second, 10*time.Millisecond)
}

func TestPoolCancelNonExistentItem(t *testing.T) {
	pool := newTestPool()
	assert.False(t, pool.CancelItem("nonexistent"))
}

func TestPoolUnregisterNonExistentItem(t *testing.T) {
	pool := newTestPool()
	assert.NotPanics(t, func() { pool.UnregisterItem("nonexistent") })
}

func TestPoolMultipleItemLifecycle(t *testing.T) {
	pool := newTestPool()

	items := []string{"item-1", "item-2", "item-3"}
	for _, id := range items {
		_, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.RegisterItem(id, cancel)
	}

	ids := pool.activeItemIDs()
	require.Len(t, ids, 3)

	assert.True(t, pool.CancelItem("item-2"))
	pool.UnregisterItem("item-2")

	ids = pool.activeItemIDs()
	require.Len(t, ids, 2)
	assert.Contains(t, ids, "item-1")
	assert.Contains(t, ids, "item-3")
	assert.NotContains(t, ids, "item-2")
}

func TestPoolRegisterSameItemTwice(t *testing.T) {
	pool := newTestPool()

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()

	pool.RegisterItem("item-1", cancel1)
	pool.RegisterItem("item-1", cancel2) // overwrites

	assert.True(t, pool.CancelItem("item-1"))

	assert.Error(t, ctx2.Err())
	assert.NoError(t, ctx1.Err())
}

func TestPoolConcurrentCancellation(t *testing.T) {
	pool := newTestPool()

	ctx, cancel := context.WithCancel(context.Background())
	pool.RegisterItem("item-racy", cancel)

	const numGoroutines = 10
	results := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			results <- pool.CancelItem("item-racy")
		}()
	}

	var trueCount int
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			trueCount++
		}
	}

	assert.Equal(t, numGoroutines, trueCount)
	assert.Error(t, ctx.Err())
}
