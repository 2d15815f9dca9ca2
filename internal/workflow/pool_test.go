package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"briefings/internal/workflow"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := workflow.NewPool(2, nil)
	release := make(chan struct{})
	var running, peak, finished atomic.Int64

	for range 6 {
		pool.Submit(context.Background(), "task", func(context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			<-release
			running.Add(-1)
			finished.Add(1)
			return nil
		}, nil)
	}
	close(release)
	pool.Wait()

	if got := finished.Load(); got != 6 {
		t.Fatalf("expected 6 tasks to finish, got %d", got)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, saw %d", got)
	}
	if pool.Active() != 0 {
		t.Fatalf("expected no active tasks after Wait, got %d", pool.Active())
	}
}

func TestPoolRecoversPanic(t *testing.T) {
	pool := workflow.NewPool(1, nil)
	var (
		mu  sync.Mutex
		got error
	)
	pool.Submit(context.Background(), "explodes", func(context.Context) error {
		panic("kaboom")
	}, func(_ context.Context, err error) {
		mu.Lock()
		got = err
		mu.Unlock()
	})
	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	if got == nil || !strings.Contains(got.Error(), "kaboom") {
		t.Fatalf("expected panic error mentioning kaboom, got %v", got)
	}
}

func TestPoolDetachesFromCallerCancellation(t *testing.T) {
	pool := workflow.NewPool(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var taskErr atomic.Value
	pool.Submit(ctx, "detached", func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			taskErr.Store(err)
		}
		return nil
	}, nil)
	pool.Wait()

	if v := taskErr.Load(); v != nil {
		t.Fatalf("expected task context to outlive the request, got %v", v)
	}
}

func TestPoolDefaultSizeToleratesTaskErrors(t *testing.T) {
	pool := workflow.NewPool(0, nil)
	if pool.Size() != workflow.DefaultWorkers {
		t.Fatalf("expected default size %d, got %d", workflow.DefaultWorkers, pool.Size())
	}
	done := make(chan struct{})
	pool.Submit(context.Background(), "fails", func(context.Context) error {
		defer close(done)
		return errors.New("nope")
	}, nil)
	<-done
	pool.Wait()
}
