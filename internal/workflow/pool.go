package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"briefings/internal/logging"
)

// DefaultWorkers bounds the pool when no size is configured.
const DefaultWorkers = 4

// Task is one unit of background work.
type Task func(ctx context.Context) error

// PanicHandler is told about a task that panicked.
type PanicHandler func(ctx context.Context, err error)

// Pool runs tasks with bounded concurrency. Submit never blocks the caller;
// each task waits for a slot in its own goroutine.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	wg     sync.WaitGroup
	active atomic.Int64
	logger *slog.Logger
}

// NewPool returns a pool that runs at most size tasks at once.
func NewPool(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = DefaultWorkers
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
		logger: logging.NewComponentLogger(logger, "workflow-pool"),
	}
}

// Size reports the concurrency bound.
func (p *Pool) Size() int {
	return p.size
}

// Active reports how many tasks hold a slot.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Submit schedules task. ctx supplies values only; its cancellation is
// ignored. onPanic may be nil.
func (p *Pool) Submit(ctx context.Context, name string, task Task, onPanic PanicHandler) {
	ctx = context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Acquire cannot fail: ctx is never cancelled.
		_ = p.sem.Acquire(ctx, 1)
		p.active.Add(1)
		defer func() {
			p.active.Add(-1)
			p.sem.Release(1)
		}()
		p.run(ctx, name, task, onPanic)
	}()
}

func (p *Pool) run(ctx context.Context, name string, task Task, onPanic PanicHandler) {
	logger := logging.WithContext(ctx, p.logger)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s panicked: %v", name, r)
			logging.ErrorWithContext(logger, "task panicked", "task_panic",
				logging.String("task", name),
				logging.Error(err),
				logging.String("stack", string(debug.Stack())),
				logging.String(logging.FieldErrorHint, "see stack for the failing call"),
			)
			if onPanic != nil {
				onPanic(ctx, err)
			}
		}
	}()
	if err := task(ctx); err != nil {
		logger.Debug("task finished with error",
			logging.String("task", name),
			logging.Error(err))
		return
	}
	logger.Debug("task finished", logging.String("task", name))
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
