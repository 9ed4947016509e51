package present

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

const (
	defaultQueueSize = 64
	drainTimeout     = 5 * time.Second
)

// QueuedSink runs a sink on its own goroutine behind a bounded queue, so the
// caller never waits on the wrapped sink's I/O. When the queue is full the
// new item is dropped and counted.
type QueuedSink struct {
	name   string
	sink   Sink
	jobs   chan func()
	done   chan struct{}
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
}

// NewQueuedSink starts the worker for sink. A non-positive size means the
// default of 64.
func NewQueuedSink(name string, sink Sink, size int, logger *slog.Logger) *QueuedSink {
	if size <= 0 {
		size = defaultQueueSize
	}
	q := &QueuedSink{
		name:   name,
		sink:   sink,
		jobs:   make(chan func(), size),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("component", "queued_sink"), slog.String("sink", name)),
	}
	go q.run()
	return q
}

// ShowState implements Sink.
func (q *QueuedSink) ShowState(ctx context.Context, state domain.MarketState) {
	q.enqueue(ctx, "state", func() { q.sink.ShowState(ctx, state) })
}

// ShowOpportunity implements Sink.
func (q *QueuedSink) ShowOpportunity(ctx context.Context, opp domain.Opportunity, state domain.MarketState) {
	q.enqueue(ctx, "opportunity", func() { q.sink.ShowOpportunity(ctx, opp, state) })
}

// Dropped returns how many items were discarded because the queue was full.
func (q *QueuedSink) Dropped() int64 {
	return q.dropped.Load()
}

// Close stops accepting items and waits up to 5s for the queue to drain.
func (q *QueuedSink) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
	case <-time.After(drainTimeout):
		q.logger.Warn("sink queue not drained", slog.Int("pending", len(q.jobs)))
	}
}

func (q *QueuedSink) enqueue(ctx context.Context, kind string, job func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.jobs <- job:
	default:
		n := q.dropped.Add(1)
		q.logger.WarnContext(ctx, "sink queue full, dropping",
			slog.String("kind", kind),
			slog.Int64("dropped_total", n),
		)
	}
}

func (q *QueuedSink) run() {
	defer close(q.done)
	for job := range q.jobs {
		job()
	}
}
