// Package executor runs backend transfers on a bounded set of goroutines.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrShutdown is returned for work started after [Queue.Shutdown].
var ErrShutdown = errors.New("executor shut down")

// Func is the signature for queued work.
type Func func(ctx context.Context) error

// Queue manages concurrently running transfers.
type Queue struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	errs     []error
	logger   *slog.Logger
}

// New creates a Queue running at most maxConcurrent tasks at once.
// If maxConcurrent <= 0, concurrency is unlimited.
func New(maxConcurrent int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}

	q := &Queue{logger: logger}
	if maxConcurrent > 0 {
		q.sem = make(chan struct{}, maxConcurrent)
	}
	return q
}

// Wait blocks until every started task returns. It reports tasks that
// panicked, joined via errors.Join. Ordinary task errors are delivered
// through [Task.Err] only.
func (q *Queue) Wait() error {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()

	return errors.Join(q.errs...)
}

// Shutdown prevents tasks that have not started running from executing.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

// Start launches fn in a new goroutine once a slot is free and returns a
// Task for tracking it. fn's context is cancelled when ctx ends or the
// task is cancelled.
func (q *Queue) Start(ctx context.Context, fn Func) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	q.wg.Add(1)
	go func() {
		defer func() {
			cancel()
			close(t.done)
			q.wg.Done()
		}()

		if q.sem != nil {
			select {
			case q.sem <- struct{}{}:
				defer func() {
					<-q.sem
				}()
			case <-ctx.Done():
				t.err = ctx.Err()
				return
			}
		}

		if q.shutdown.Load() {
			t.err = ErrShutdown
			return
		}

		t.err = q.run(ctx, fn)
	}()

	return t
}

func (q *Queue) run(ctx context.Context, fn Func) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task panic: %v", rec)
			q.logger.Error("executor task panicked", "panic", rec)
			q.recordErr(err)
		}
	}()

	return fn(ctx)
}

func (q *Queue) recordErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = append(q.errs, err)
}

// Task is an in-flight or completed unit of work.
type Task struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// Done returns a channel that is closed when the task returns.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err blocks until the task returns and reports its error.
func (t *Task) Err() error {
	<-t.done
	return t.err
}

// Cancel cancels the task's context.
func (t *Task) Cancel() {
	t.cancel()
}

// Stop cancels the task and waits for it to return.
func (t *Task) Stop() error {
	t.cancel()
	return t.Err()
}
