package workq

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOrderedPreservesSubmissionOrder(t *testing.T) {
	q := New[int](context.Background(), 4, true)
	const n = 50
	for i := 0; i < n; i++ {
		i := i
		q.Submit(func() (int, error) {
			// completion order is scrambled on purpose
			time.Sleep(time.Duration(n-i) * time.Microsecond)
			return i, nil
		})
	}
	q.Close()

	var got []int
	for r := range q.Results() {
		require.NoError(t, r.Err)
		got = append(got, r.Val)
	}
	require.Len(t, got, n)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestBoundedParallelism(t *testing.T) {
	const batch = 3
	q := New[struct{}](context.Background(), batch, true)

	var inflight, maxInflight atomic.Int64
	const n = 30
	for i := 0; i < n; i++ {
		q.Submit(func() (struct{}, error) {
			cur := inflight.Add(1)
			for {
				m := maxInflight.Load()
				if cur <= m || maxInflight.CompareAndSwap(m, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inflight.Add(-1)
			return struct{}{}, nil
		})
	}
	q.Close()
	for range q.Results() {
	}
	require.LessOrEqual(t, maxInflight.Load(), int64(batch))
}

func TestUnorderedYieldsEveryResult(t *testing.T) {
	q := New[int](context.Background(), 4, false)
	const n = 20
	for i := 0; i < n; i++ {
		i := i
		q.Submit(func() (int, error) { return i, nil })
	}
	q.Close()

	seen := map[int]bool{}
	for r := range q.Results() {
		seen[r.Val] = true
	}
	for i := 0; i < n; i++ {
		_, ok := seen[i]
		require.True(t, ok, "missing result %d", i)
	}
}

func TestCancellationStopsUnstartedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := New[int](ctx, 1, true)

	started := make(chan struct{})
	q.Submit(func() (int, error) {
		close(started)
		<-ctx.Done()
		return 0, nil
	})
	<-started
	cancel()

	ran := atomic.Bool{}
	q.Submit(func() (int, error) {
		ran.Store(true)
		return 1, nil
	})
	q.Close()
	for range q.Results() {
	}
	require.False(t, ran.Load())
}
