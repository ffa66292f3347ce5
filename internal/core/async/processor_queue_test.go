package async

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorQueue_ProcessesEachJobOnce(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := map[string]int{}
	var unstamped atomic.Int32
	q := NewProcessorQueue(context.Background(), func(ctx context.Context, job Job) {
		if job.SubmittedAt.IsZero() {
			unstamped.Add(1)
		}
		mu.Lock()
		seen[job.Path]++
		mu.Unlock()
	}, nil, WithWorkers(4), WithQueueSize(2))

	paths := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg", "g.jpg"}
	for _, p := range paths {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: p}))
	}
	q.Shutdown(context.Background())

	assert.Len(t, seen, len(paths))
	for _, p := range paths {
		assert.Equal(t, 1, seen[p], p)
	}
	assert.Zero(t, unstamped.Load(), "Enqueue stamps SubmittedAt")
	assert.ErrorIs(t, q.Enqueue(context.Background(), Job{Path: "late.jpg"}), ErrQueueClosed)
}

func TestProcessorQueue_JobTimeout(t *testing.T) {
	t.Parallel()

	var timedOut atomic.Bool
	q := NewProcessorQueue(context.Background(), func(ctx context.Context, job Job) {
		select {
		case <-ctx.Done():
			timedOut.Store(true)
		case <-time.After(5 * time.Second):
		}
	}, nil, WithProcessTimeout(20*time.Millisecond))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "slow.jpg"}))
	q.Shutdown(context.Background())
	assert.True(t, timedOut.Load())
}

func TestProcessorQueue_PanicDoesNotKillWorker(t *testing.T) {
	t.Parallel()

	var ran atomic.Int32
	q := NewProcessorQueue(context.Background(), func(ctx context.Context, job Job) {
		ran.Add(1)
		if job.Path == "bad.jpg" {
			panic("boom")
		}
	}, nil)

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "bad.jpg"}))
	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "good.jpg"}))
	q.Shutdown(context.Background())
	assert.Equal(t, int32(2), ran.Load())
}

func TestProcessorQueue_CancelledBaseSkipsRemaining(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Int32
	q := NewProcessorQueue(ctx, func(ctx context.Context, job Job) { ran.Add(1) }, nil)
	cancel()

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "a.jpg"}))
	q.Shutdown(context.Background())
	assert.Equal(t, int32(0), ran.Load())
}
