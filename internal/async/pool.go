package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/course-extractor/internal/common"
)

// Pool runs jobs on a fixed number of workers. Each job gets its own deadline
// detached from the caller, so a finished HTTP request never cancels work.
type Pool struct {
	logger  *zap.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(q *Pool) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *Pool) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *Pool) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewPool(logger *zap.Logger, opts ...Option) *Pool {
	q := &Pool{
		logger:  common.OrNop(logger).Named("pool"),
		workers: 4,
		timeout: 10 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Pool) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", zap.Int("worker_id", workerID))

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", zap.Int("worker_id", workerID))
			}(i + 1)
		}
	})
}

func (q *Pool) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = common.WithTaskID(ctx, job.TaskID)

	start := time.Now()
	err := safeRun(ctx, job)
	fields := []zap.Field{
		zap.Int("worker_id", workerID),
		zap.String("task_id", job.TaskID),
		zap.String("job", job.Name),
		zap.Int64("wait_ms", start.Sub(job.SubmittedAt).Milliseconds()),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		q.logger.Warn("job failed", append(fields, zap.Error(err))...)
		return
	}
	q.logger.Debug("job done", fields...)
}

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	if job.Run == nil {
		return nil
	}
	return job.Run(ctx)
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *Pool) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", zap.String("task_id", job.TaskID), zap.String("job", job.Name))
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", zap.String("task_id", job.TaskID), zap.Int("depth", len(q.ch)))
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth is the number of buffered jobs not yet picked up.
func (q *Pool) Depth() int {
	return len(q.ch)
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
func (q *Pool) Shutdown(ctx context.Context) {
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
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
