// Package workq implements the ordered, bounded-parallel work queue used
// by three stages of the extraction pipeline: PBZX chunk decode (ordered),
// CPIO-driven file materialization (unordered), and per-block LZFSE encode
// (ordered). See spec §4.2.
//
// The reorder strategy — buffer completed-but-out-of-turn results in a map
// keyed by submission index, and drain a prefix whenever the next expected
// index lands — is the same one github.com/cosnicolaou/pbzip2 uses (there,
// a container/heap; here, a map, since indices arrive densely from zero).
package workq

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/xcodereleases/unxip/xiperr"
)

// Result carries the outcome of one submitted task, tagged with its
// submission index so an unordered consumer can still recover order if it
// wants to.
type Result[T any] struct {
	Idx uint64
	Val T
	Err error
}

// Queue runs submitted closures with up to batchSize executing
// concurrently, and yields their results either in submission order
// (ordered) or in completion order (!ordered).
type Queue[T any] struct {
	ctx       context.Context
	ordered   bool
	sem       *semaphore.Weighted
	completed chan Result[T]
	out       chan Result[T]
	next      atomic.Uint64
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Queue. batchSize is clamped to at least 1; callers
// typically pass sys.NumCPU(). ctx cancellation is observed at each task's
// one suspension point (acquiring its execution slot); submitted-but-not-
// yet-started tasks are never started once ctx is done.
func New[T any](ctx context.Context, batchSize int, ordered bool) *Queue[T] {
	if batchSize < 1 {
		batchSize = 1
	}
	q := &Queue[T]{
		ctx:       ctx,
		ordered:   ordered,
		sem:       semaphore.NewWeighted(int64(batchSize)),
		completed: make(chan Result[T], batchSize),
		out:       make(chan Result[T], batchSize),
	}
	go q.dispatch()
	return q
}

// Submit schedules fn for eventual execution. Submit itself never blocks;
// the goroutine it starts for fn instead waits for a free execution slot, which is
// where bounded parallelism and backpressure (from a full result buffer)
// actually apply.
func (q *Queue[T]) Submit(fn func() (T, error)) {
	idx := q.next.Add(1) - 1
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.sem.Acquire(q.ctx, 1); err != nil {
			q.completed <- Result[T]{Idx: idx, Err: xiperr.ErrCancelled}
			return
		}
		defer q.sem.Release(1)
		if q.ctx.Err() != nil {
			q.completed <- Result[T]{Idx: idx, Err: xiperr.ErrCancelled}
			return
		}
		v, err := fn()
		q.completed <- Result[T]{Idx: idx, Val: v, Err: err}
	}()
}

// Close signals that no further Submit calls will be made. It is safe to
// call concurrently with draining Results(); Close does not itself block.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		go func() {
			q.wg.Wait()
			close(q.completed)
		}()
	})
}

// Results returns the queue's output stream. It closes once Close has been
// called and every submitted task has been accounted for.
func (q *Queue[T]) Results() <-chan Result[T] { return q.out }

func (q *Queue[T]) dispatch() {
	if !q.ordered {
		for r := range q.completed {
			q.out <- r
		}
		close(q.out)
		return
	}
	pending := make(map[uint64]Result[T])
	var nextOut uint64
	for r := range q.completed {
		pending[r.Idx] = r
		for {
			v, ok := pending[nextOut]
			if !ok {
				break
			}
			q.out <- v
			delete(pending, nextOut)
			nextOut++
		}
	}
	close(q.out)
}
