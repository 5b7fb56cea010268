package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed fails submits after Close.
var ErrQueueClosed = errors.New("render queue closed")

// Job is one unit of render work. It receives the deadline-bound context the
// worker runs it under.
type Job func(ctx context.Context) ([]byte, error)

type jobResult struct {
	pdf []byte
	err error
}

type queuedJob struct {
	ctx    context.Context
	run    Job
	result chan jobResult
}

// Queue serializes render jobs: a single worker goroutine executes submitted
// jobs strictly in arrival order, so at most one engine session exists at a
// time however many export requests are in flight. One job's failure is
// confined to its own result; the worker always advances.
type Queue struct {
	jobs    chan queuedJob
	timeout time.Duration
	logger  *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewQueue starts the worker. timeout bounds each job so a hung engine fails
// that job instead of wedging the queue.
func NewQueue(size int, timeout time.Duration, logger *zap.Logger) *Queue {
	q := &Queue{
		jobs:    make(chan queuedJob, size),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Submit enqueues a job and blocks until it has run or the caller's context
// is cancelled. FIFO by arrival at the channel.
func (q *Queue) Submit(ctx context.Context, job Job) ([]byte, error) {
	queued := queuedJob{
		ctx:    ctx,
		run:    job,
		result: make(chan jobResult, 1),
	}

	select {
	case q.jobs <- queued:
	case <-q.done:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-queued.result:
		return res.pdf, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports how many jobs are waiting behind the one in flight.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close stops the worker after the job in flight finishes. Queued jobs that
// never ran receive ErrQueueClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			q.drain()
			return
		case job := <-q.jobs:
			job.result <- q.runJob(job)
		}
	}
}

func (q *Queue) runJob(job queuedJob) (res jobResult) {
	ctx, cancel := context.WithTimeout(job.ctx, q.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("render job panicked", zap.Any("panic", r))
			res = jobResult{err: fmt.Errorf("render job panicked: %v", r)}
		}
	}()

	pdf, err := job.run(ctx)
	return jobResult{pdf: pdf, err: err}
}

func (q *Queue) drain() {
	for {
		select {
		case job := <-q.jobs:
			job.result <- jobResult{err: ErrQueueClosed}
		default:
			return
		}
	}
}
