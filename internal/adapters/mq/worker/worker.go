// Package worker drains the ingestion queue into the event store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/gympulse/internal/domain/model"
	"github.com/okian/gympulse/pkg/logger"
	"github.com/okian/gympulse/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU(); appends are I/O bound
	defaultAppendTimeout    = 5 * time.Second
)

// Appender stores one event. It reports false when the event was already
// stored.
type Appender interface {
	Append(ctx context.Context, e model.Event) (bool, error)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Event
}

// StoredFunc is called after an event was newly stored.
type StoredFunc func(ctx context.Context, e model.Event)

// Worker stores events read from the queue.
type Worker interface {
	// Run processes events until ctx is cancelled, Shutdown is called or
	// the queue channel is closed and drained.
	Run(ctx context.Context)

	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue         Queue
	appender      Appender
	name          string
	appendTimeout time.Duration
	onStored      StoredFunc

	// shared with the pool
	active    *atomic.Int64
	processed *atomic.Int64
	failed    *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, appender Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         q,
		appender:      appender,
		name:          "worker",
		appendTimeout: defaultAppendTimeout,
		active:        new(atomic.Int64),
		processed:     new(atomic.Int64),
		failed:        new(atomic.Int64),
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		logger:        logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run implements Worker.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(logger.WithTenant(ctx, e.TenantID), "error storing event", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current event.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, e model.Event) error { //nolint:gocritic // hugeParam: events travel by value
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	actx, cancel := context.WithTimeout(ctx, w.appendTimeout)
	defer cancel()

	stored, err := w.appender.Append(actx, e)
	if err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "append_error")
		return fmt.Errorf("append event %s: %w", e.ID, err)
	}
	w.processed.Add(1)
	if !stored {
		metrics.RecordEventDuplicate()
		return nil
	}
	metrics.RecordEventStored()
	if w.onStored != nil {
		w.onStored(ctx, e)
	}
	return nil
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	active    atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers sharing q and appender. A
// non-positive count scales with the CPU count.
func NewPool(workerCount int, q Queue, appender Appender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, appender, wopts...)
		w.active, w.processed, w.failed = &p.active, &p.processed, &p.failed
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size is the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed is how many events the workers handled, duplicates included.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Failed is how many events could not be stored.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Shutdown closes the queue and lets workers drain it until ctx expires;
// workers still busy then are stopped after their current event.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = w.Shutdown(stopCtx)
			cancel()
		}
	}
	return nil
}
