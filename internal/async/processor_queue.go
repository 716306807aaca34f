package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docparser/internal/common"
)

type ProcessorQueue struct {
	proc    Processor
	sink    Sink
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool

	pendingMu sync.Mutex
	pending   map[uuid.UUID]struct{}
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc Processor, sink Sink, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		sink:    sink,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		pending: make(map[uuid.UUID]struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.handle(workerID, job)
				}
				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) handle(workerID int, job Job) {
	defer q.done(job.DocumentID)

	ctx, cancel := context.WithTimeout(common.WithRequestID(context.Background(), job.RequestID), q.timeout)
	defer cancel()

	res, err := q.proc.Process(ctx, job.request())
	if err != nil {
		q.logger.Error("queue.job.failed", "worker_id", workerID, "document_id", job.DocumentID, "error", err)
		return
	}
	if err := q.sink.Put(ctx, res); err != nil {
		q.logger.Error("queue.job.store_failed", "worker_id", workerID, "document_id", job.DocumentID, "error", err)
		return
	}
	q.logger.Info("queue.job.done",
		"worker_id", workerID,
		"document_id", job.DocumentID,
		"status", res.Status,
		"waited_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
}

// Enqueue blocks while the queue is full until ctx is done. Callers assign
// job.DocumentID so they can poll for the result.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "document_id", job.DocumentID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.pendingMu.Lock()
	q.pending[job.DocumentID] = struct{}{}
	q.pendingMu.Unlock()

	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue.backpressure", "document_id", job.DocumentID, "size", cap(q.ch))
		select {
		case q.ch <- job:
		case <-ctx.Done():
			q.done(job.DocumentID)
			return ctx.Err()
		}
	}
	q.logger.Info("queue.enqueued", "document_id", job.DocumentID, "filename", job.Filename, "request_id", job.RequestID)
	return nil
}

// Pending reports whether id is queued or being processed.
func (q *ProcessorQueue) Pending(id uuid.UUID) bool {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	_, ok := q.pending[id]
	return ok
}

func (q *ProcessorQueue) done(id uuid.UUID) {
	q.pendingMu.Lock()
	delete(q.pending, id)
	q.pendingMu.Unlock()
}

// Shutdown stops accepting jobs and waits for queued ones until ctx is done.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
