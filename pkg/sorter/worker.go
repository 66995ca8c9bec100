package sorter

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-olivesort/internal/log"
)

// Runner executes one cycle. *Sorter implements it.
type Runner interface {
	RunCycle(ctx context.Context, id string) Result
}

// Worker runs cycles one at a time on its own goroutine. A trigger that
// arrives while a cycle is running is rejected, never queued.
type Worker struct {
	runner   Runner
	onDone   func(Result)
	triggers chan string
	busy     atomic.Bool
	logger   *slog.Logger

	mu   sync.RWMutex
	last *Result
}

// NewWorker creates a worker. onDone, if set, is called on the worker
// goroutine after every cycle, including ones that panicked.
func NewWorker(r Runner, onDone func(Result)) *Worker {
	return &Worker{
		runner:   r,
		onDone:   onDone,
		triggers: make(chan string, 1),
		logger:   log.Component("worker"),
	}
}

// Trigger requests a cycle and returns its ID. It returns false if a
// cycle is already pending or running.
func (w *Worker) Trigger() (string, bool) {
	if !w.busy.CompareAndSwap(false, true) {
		w.logger.Debug("trigger rejected, cycle in progress")
		return "", false
	}
	id := uuid.NewString()
	w.triggers <- id
	return id, true
}

// Busy reports whether a cycle is pending or running.
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// Last returns the most recent cycle result.
func (w *Worker) Last() (Result, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return Result{}, false
	}
	return *w.last, true
}

// Run processes triggers until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return ctx.Err()
		case id := <-w.triggers:
			res := w.runOne(ctx, id)

			w.mu.Lock()
			w.last = &res
			w.mu.Unlock()
			w.busy.Store(false)

			if w.onDone != nil {
				w.onDone(res)
			}
		}
	}
}

// runOne runs a cycle and turns a panic into a failed Result.
func (w *Worker) runOne(ctx context.Context, id string) (res Result) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("cycle panicked: %v", r)
			w.logger.Error("sorting cycle panicked", "cycle", id, "panic", r, "stack", string(debug.Stack()))
			res = Result{
				ID:       id,
				Status:   errorStatus(err),
				Err:      err,
				Started:  started,
				Finished: time.Now(),
			}
		}
	}()
	return w.runner.RunCycle(ctx, id)
}
