package retry

import (
	"context"
	"time"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/pkg/logger"
	"github.com/horyu/NiconiCompare-sub000/pkg/metrics"
)

// Worker defaults.
const (
	defaultAttempts = 5
	defaultDelay    = 500 * time.Millisecond
)

// Writer is the narrow persistence capability the worker needs.
type Writer interface {
	Set(ctx context.Context, changes repository.Changes) error
}

// Worker drains the retry queue, re-attempting each task with a fixed delay
// between attempts until it succeeds or the budget runs out.
type Worker struct {
	queue    *Queue
	writer   Writer
	attempts int
	delay    time.Duration

	onExhausted func(eventID int64)

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// WorkerOption applies a configuration option to the Worker.
type WorkerOption func(*Worker)

// WithAttempts sets the per-task attempt budget.
func WithAttempts(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.attempts = n
		}
	}
}

// WithDelay sets the fixed delay between attempts.
func WithDelay(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d >= 0 {
			w.delay = d
		}
	}
}

// WithExhaustedFunc sets the callback invoked with the event id of a task
// whose budget ran out.
func WithExhaustedFunc(fn func(eventID int64)) WorkerOption {
	return func(w *Worker) {
		if fn != nil {
			w.onExhausted = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker creates a retry worker for the queue and writer.
func NewWorker(queue *Queue, writer Writer, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:       queue,
		writer:      writer,
		attempts:    defaultAttempts,
		delay:       defaultDelay,
		onExhausted: func(int64) {},
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("retry")
	}
	return w
}

// Run drains tasks until the context is canceled, the worker is shut down,
// or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			w.process(ctx, task)
			metrics.UpdateRetryQueueDepth(w.queue.Len())
		}
	}
}

// Shutdown stops the worker and waits for the in-flight task to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) process(ctx context.Context, task Task) {
	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		metrics.RecordRetryAttempt()
		lastErr = w.writer.Set(ctx, task.Changes)
		if lastErr == nil {
			w.logger.Info(ctx, "event persisted after retry",
				logger.Int64("eventID", task.EventID),
				logger.Int("attempt", attempt),
			)
			return
		}
		if attempt == w.attempts {
			break
		}
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		}
	}

	metrics.RecordFailedWrite()
	w.logger.Error(ctx, "event persistence retries exhausted",
		logger.Int64("eventID", task.EventID),
		logger.Int("attempts", w.attempts),
		logger.Error(lastErr),
	)
	w.onExhausted(task.EventID)
}
