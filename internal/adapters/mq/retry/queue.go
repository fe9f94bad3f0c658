// Package retry re-attempts failed event persistence with a bounded budget.
//
// Only event writes are retried: rating computation is synchronous and has
// no transient failure mode. A task whose budget is exhausted surfaces its
// event id through the exhaustion callback so it can be parked in the
// failed-writes set for manual resolution.
package retry

import (
	"context"
	"sync"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/pkg/metrics"
)

// defaultQueueCapacity bounds the pending retry backlog.
const defaultQueueCapacity = 1024

// Task is one failed event persist awaiting re-attempts.
type Task struct {
	EventID int64
	Changes repository.Changes
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics
// for retry tasks.
type Queue struct {
	tasks    chan Task
	capacity int

	mu     sync.RWMutex
	closed bool
}

// QueueOption applies a configuration option to the Queue.
type QueueOption func(*Queue)

// WithCapacity sets the maximum number of pending retry tasks.
func WithCapacity(capacity int) QueueOption {
	return func(q *Queue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// NewQueue creates a bounded retry queue.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)
	metrics.UpdateRetryQueueDepth(0)
	return q
}

// Enqueue adds a task. Returns false when the queue is full or closed.
func (q *Queue) Enqueue(ctx context.Context, t Task) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.tasks <- t:
		metrics.UpdateRetryQueueDepth(len(q.tasks))
		return true
	default:
		return false
	}
}

// Dequeue returns the channel workers receive tasks from. It is closed when
// the queue closes.
func (q *Queue) Dequeue(ctx context.Context) <-chan Task {
	return q.tasks
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Close stops the queue. Pending tasks are still delivered to workers.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.tasks)
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *Queue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
