package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestQueue(cfg Config) *Queue {
	return NewQueue(cfg, zerolog.Nop())
}

func TestQueuePreservesSubmissionOrder(t *testing.T) {
	t.Parallel()
	q := newTestQueue(Config{})
	defer q.Stop()

	var order []int
	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		i := i
		job := JobFunc(func(context.Context) error {
			order = append(order, i) // single worker, no race
			if i == 49 {
				close(done)
			}
			return nil
		})
		if err := q.Submit(context.Background(), job); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not finish")
	}
	for i, got := range order {
		if got != i {
			t.Fatalf("order[%d] = %d, events reordered", i, got)
		}
	}
}

func TestQueueBarrierFlushes(t *testing.T) {
	t.Parallel()
	q := newTestQueue(Config{})
	defer q.Stop()

	var ran int32
	_ = q.Submit(context.Background(), JobFunc(func(context.Context) error {
		time.Sleep(30 * time.Millisecond)
		atomic.StoreInt32(&ran, 1)
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Barrier(ctx); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if atomic.LoadInt32(&ran) == 0 {
		t.Fatal("barrier returned before prior job executed")
	}
}

func TestQueueFull(t *testing.T) {
	t.Parallel()
	q := newTestQueue(Config{QueueSize: 1, EnqueueTimeout: 10 * time.Millisecond})
	defer q.Stop()

	blockCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var started int32
	_ = q.Submit(context.Background(), JobFunc(func(context.Context) error {
		atomic.StoreInt32(&started, 1)
		<-blockCtx.Done()
		return nil
	}))
	for atomic.LoadInt32(&started) == 0 {
		time.Sleep(time.Millisecond)
	}

	_ = q.Submit(context.Background(), JobFunc(func(context.Context) error { return nil }))
	err := q.Submit(context.Background(), JobFunc(func(context.Context) error { return nil }))
	if !IsQueueFull(err) {
		t.Fatalf("expected queue-full error, got %v", err)
	}
}

func TestQueueSubmitAfterStop(t *testing.T) {
	t.Parallel()
	q := newTestQueue(Config{})
	q.Stop()
	q.Stop() // idempotent

	if err := q.Submit(context.Background(), JobFunc(func(context.Context) error { return nil })); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueueStopDrainsPending(t *testing.T) {
	t.Parallel()
	q := newTestQueue(Config{QueueSize: 64})

	var ran int32
	for i := 0; i < 20; i++ {
		_ = q.Submit(context.Background(), JobFunc(func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}))
	}
	q.Stop()
	if got := atomic.LoadInt32(&ran); got != 20 {
		t.Fatalf("drained %d of 20 jobs", got)
	}
}

func TestQueueIsolatesPanicsAndErrors(t *testing.T) {
	t.Parallel()
	q := newTestQueue(Config{})
	defer q.Stop()

	var delivered int32
	_ = q.Submit(context.Background(), JobFunc(func(context.Context) error {
		panic("bad handler")
	}))
	_ = q.Submit(context.Background(), JobFunc(func(context.Context) error {
		return errors.New("also bad")
	}))
	_ = q.Submit(context.Background(), JobFunc(func(context.Context) error {
		atomic.StoreInt32(&delivered, 1)
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := q.Barrier(ctx); err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if atomic.LoadInt32(&delivered) == 0 {
		t.Fatal("panicking handler blocked later delivery")
	}
}

func TestQueueSkipsCancelledJobs(t *testing.T) {
	t.Parallel()
	q := newTestQueue(Config{})
	defer q.Stop()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	var ran int32
	_ = q.Submit(cancelled, JobFunc(func(context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	}))

	ctx, cancelBarrier := context.WithTimeout(context.Background(), time.Second)
	defer cancelBarrier()
	_ = q.Barrier(ctx)
	if atomic.LoadInt32(&ran) != 0 {
		t.Fatal("cancelled job should not run")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PS_DISPATCH_QUEUE_SIZE", "512")
	t.Setenv("PS_DISPATCH_ENQUEUE_TIMEOUT", "250ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.QueueSize != 512 {
		t.Fatalf("QueueSize = %d", cfg.QueueSize)
	}
	if cfg.EnqueueTimeout != 250*time.Millisecond {
		t.Fatalf("EnqueueTimeout = %v", cfg.EnqueueTimeout)
	}
}
