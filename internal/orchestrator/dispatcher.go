package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"mosaic/internal/logging"
)

// ErrQueueFull is returned when the bounded operation queue cannot accept
// more work.
var ErrQueueFull = errors.New("operation queue is full")

// ErrNotRunning is returned when enqueueing against a stopped dispatcher.
var ErrNotRunning = errors.New("dispatcher is not running")

// QueueMetrics is an optional interface for observing dispatcher state.
type QueueMetrics interface {
	RecordQueueDepth(depth int)
	RecordDropped()
}

// Dispatcher executes operations on a fixed worker pool fed by a bounded
// queue. One enqueued operation is one unit of work; there is no retry and
// no per-job serialization at this layer.
type Dispatcher struct {
	queue   chan Operation
	workers int
	execute func(context.Context, Operation)
	logger  *slog.Logger
	metrics QueueMetrics

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDispatcher constructs a dispatcher. execute is invoked once per
// dequeued operation.
func NewDispatcher(workers, queueSize int, execute func(context.Context, Operation), logger *slog.Logger, metrics QueueMetrics) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Dispatcher{
		queue:   make(chan Operation, queueSize),
		workers: workers,
		execute: execute,
		logger:  logging.NewComponentLogger(logger, "dispatcher"),
		metrics: metrics,
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("dispatcher already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true

	d.wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go d.runWorker(runCtx)
	}
	d.logger.Info("dispatcher started",
		logging.Int("workers", d.workers),
		logging.Int("queue_size", cap(d.queue)),
	)
	return nil
}

// Stop terminates the workers and waits for in-flight operations.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
}

// Enqueue queues an operation for background execution. A full queue is a
// hard error rather than a blocking wait so request handlers stay bounded.
func (d *Dispatcher) Enqueue(op Operation) error {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	select {
	case d.queue <- op:
		if d.metrics != nil {
			d.metrics.RecordQueueDepth(len(d.queue))
		}
		return nil
	default:
		if d.metrics != nil {
			d.metrics.RecordDropped()
		}
		d.logger.Warn("operation dropped, queue full",
			logging.String(logging.FieldOperation, string(op.Kind)),
			logging.String(logging.FieldJobID, op.JobID),
		)
		return ErrQueueFull
	}
}

func (d *Dispatcher) runWorker(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-d.queue:
			if d.metrics != nil {
				d.metrics.RecordQueueDepth(len(d.queue))
			}
			d.execute(ctx, op)
		}
	}
}
