// Package dispatch provides the bounded FIFO lane that carries inbound
// channel events to their handlers. A single worker preserves
// server-delivery order for the lifetime of a connection; handler
// panics are isolated so one faulty consumer cannot stall the lane.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Job is a unit of work executed by the Queue.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to a Job.
type JobFunc func(ctx context.Context) error

// Run implements Job for JobFunc.
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

type queuedJob struct {
	ctx context.Context
	job Job
}

// Queue executes Jobs on one worker goroutine in submission order.
type Queue struct {
	cfg Config
	ch  chan queuedJob
	log zerolog.Logger

	done   chan struct{} // closed in Stop()
	closed uint32        // 0 → running, 1 → closed

	wg sync.WaitGroup
}

// NewQueue constructs the queue and starts its worker.
func NewQueue(cfg Config, log zerolog.Logger) *Queue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 100 * time.Millisecond
	}

	q := &Queue{
		cfg:  cfg,
		ch:   make(chan queuedJob, cfg.QueueSize),
		log:  log,
		done: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.runWorker()
	return q
}

// Submit enqueues job.
//
//   - Returns nil on success.
//   - Returns ErrQueueClosed if the queue is stopped.
//   - Returns *QueueFullError if no space frees up within
//     EnqueueTimeout.
//   - Returns ctx.Err() if the caller's context is cancelled first.
func (q *Queue) Submit(ctx context.Context, job Job) error {
	if atomic.LoadUint32(&q.closed) == 1 {
		return ErrQueueClosed
	}
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	timer := time.NewTimer(q.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case q.ch <- queuedJob{ctx: ctx, job: job}:
		eventsSubmittedTotal.Inc()
		queueDepth.Set(float64(len(q.ch)))
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		queueFullTotal.Inc()
		return &QueueFullError{Length: len(q.ch), Capacity: cap(q.ch)}
	}
}

// Barrier enqueues a no-op job and waits until it runs, guaranteeing
// every previously submitted job has completed. Used by tests and by
// teardown paths that must observe a flushed lane.
func (q *Queue) Barrier(ctx context.Context) error {
	done := make(chan struct{})
	j := JobFunc(func(context.Context) error {
		close(done)
		return nil
	})
	if err := q.Submit(ctx, j); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop drains the remaining jobs in order, waits for the worker to
// finish, and returns. Idempotent and safe for concurrent use.
func (q *Queue) Stop() {
	if !atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		return
	}
	close(q.done)
	q.wg.Wait()
}

func (q *Queue) runWorker() {
	defer q.wg.Done()

	for {
		select {
		case qj := <-q.ch:
			q.runOne(qj)
			queueDepth.Set(float64(len(q.ch)))

		case <-q.done:
			// Drain what is already queued, preserving order, then exit.
			for {
				select {
				case qj := <-q.ch:
					q.runOne(qj)
				default:
					queueDepth.Set(0)
					return
				}
			}
		}
	}
}

// runOne executes a single job, skipping it when its context is already
// cancelled. Events are fire-once: a failed or panicking job is logged
// and dropped, never retried, so the lane keeps moving.
func (q *Queue) runOne(qj queuedJob) {
	if qj.job == nil {
		return
	}
	select {
	case <-qj.ctx.Done():
		return
	default:
	}

	defer func() {
		if r := recover(); r != nil {
			eventsFailedTotal.Inc()
			q.log.Error().Interface("panic", r).Msg("dispatch: handler panicked")
		}
	}()
	if err := qj.job.Run(qj.ctx); err != nil {
		eventsFailedTotal.Inc()
		q.log.Warn().Err(err).Msg("dispatch: handler failed")
	}
}
