package async

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPoolRunsAllJobs(t *testing.T) {
	p := NewPool(nil, WithWorkers(3), WithQueueSize(2))
	var n atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, p.Enqueue(context.Background(), Job{TaskID: "t", Run: func(context.Context) error {
			defer wg.Done()
			n.Add(1)
			return nil
		}}))
	}
	wg.Wait()
	p.Shutdown(context.Background())
	assert.Equal(t, int32(20), n.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(nil, WithWorkers(2))
	var cur, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, p.Enqueue(context.Background(), Job{Run: func(context.Context) error {
			defer wg.Done()
			v := cur.Add(1)
			for {
				old := peak.Load()
				if v <= old || peak.CompareAndSwap(old, v) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			cur.Add(-1)
			return nil
		}}))
	}
	wg.Wait()
	p.Shutdown(context.Background())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPoolJobContextCarriesTaskAndDeadline(t *testing.T) {
	p := NewPool(nil, WithWorkers(1), WithJobTimeout(time.Minute))
	got := make(chan context.Context, 1)
	require.NoError(t, p.Enqueue(context.Background(), Job{TaskID: "task-9", Run: func(ctx context.Context) error {
		got <- ctx
		return nil
	}}))
	ctx := <-got
	p.Shutdown(context.Background())

	assert.Equal(t, "task-9", common.TaskIDFromContext(ctx))
	_, ok := ctx.Deadline()
	assert.True(t, ok)
}

func TestPoolRecoversPanics(t *testing.T) {
	p := NewPool(nil, WithWorkers(1))
	done := make(chan struct{})
	require.NoError(t, p.Enqueue(context.Background(), Job{Run: func(context.Context) error { panic("boom") }}))
	require.NoError(t, p.Enqueue(context.Background(), Job{Run: func(context.Context) error { close(done); return nil }}))
	<-done
	p.Shutdown(context.Background())
}

func TestPoolEnqueueAfterShutdown(t *testing.T) {
	p := NewPool(nil, WithWorkers(1))
	p.Shutdown(context.Background())
	p.Shutdown(context.Background())
	assert.ErrorIs(t, p.Enqueue(context.Background(), Job{}), ErrQueueClosed)
}
