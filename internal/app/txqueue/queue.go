// Package txqueue admits tasks one at a time in submission order.
//
// The queue keeps a single tail channel that is closed when the most recently
// admitted task settles. Each submission swaps in its own channel under the lock,
// which fixes its position, then waits for the previous tail before running.
package txqueue

import (
	"context"
	"sync"
	"sync/atomic"
)

// Queue is safe for concurrent use. The zero value is ready to use.
type Queue struct {
	mu    sync.Mutex
	tail  chan struct{}
	depth atomic.Int64
}

// Do runs fn once every task submitted before it has settled, and returns fn's
// error. A failing or panicking fn never blocks later tasks.
//
// If ctx ends while the task is still waiting, Do returns ctx.Err() without
// running fn; later tasks still wait for this task's predecessor.
func (q *Queue) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan struct{})
	q.mu.Lock()
	prev := q.tail
	q.tail = done
	q.mu.Unlock()

	q.depth.Add(1)
	defer q.depth.Add(-1)

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				close(done)
			}()
			return ctx.Err()
		}
	}
	defer close(done)

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Depth reports tasks admitted but not yet settled, including the running one.
func (q *Queue) Depth() int {
	return int(q.depth.Load())
}
