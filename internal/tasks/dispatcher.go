// Package tasks runs fire-and-forget side effects on a bounded worker pool.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"gigboard/internal/middleware"
	"gigboard/internal/observability"
)

// ErrQueueFull is returned by Submit when no slot is free.
var ErrQueueFull = errors.New("task queue full")

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("dispatcher stopped")

// Func is a unit of background work.
type Func func(ctx context.Context) error

type task struct {
	name string
	fn   Func
}

// Dispatcher executes submitted tasks on a fixed number of workers. Task
// failures and panics are logged and counted, never returned to the caller.
type Dispatcher struct {
	queue   chan task
	workers int
	timeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDispatcher builds a dispatcher with the given pool size, queue capacity
// and per-task timeout. Call Start before submitting work.
func NewDispatcher(workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		queue:   make(chan task, queueSize),
		workers: workers,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for t := range d.queue {
		observability.TaskQueueDepth.Dec()
		d.run(t)
	}
}

func (d *Dispatcher) run(t task) {
	ctx := d.ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			observability.TaskOutcomes.WithLabelValues(t.name, observability.OutcomePanic).Inc()
			middleware.Logger.Error("background task panicked",
				slog.String("task", t.name),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := t.fn(ctx); err != nil {
		observability.TaskOutcomes.WithLabelValues(t.name, observability.OutcomeError).Inc()
		middleware.Logger.Warn("background task failed",
			slog.String("task", t.name),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.TaskOutcomes.WithLabelValues(t.name, observability.OutcomeOK).Inc()
}

// Submit enqueues fn without blocking. A full queue drops the task.
func (d *Dispatcher) Submit(name string, fn Func) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}

	select {
	case d.queue <- task{name: name, fn: fn}:
		observability.TaskQueueDepth.Inc()
		return nil
	default:
		observability.TaskOutcomes.WithLabelValues(name, observability.OutcomeDropped).Inc()
		middleware.Logger.Warn("background task dropped", slog.String("task", name))
		return ErrQueueFull
	}
}

// Go submits fn and logs instead of returning submission errors.
func (d *Dispatcher) Go(name string, fn Func) {
	_ = d.Submit(name, fn)
}

// Stop refuses new tasks and waits for queued ones to finish. When ctx
// expires first, running tasks are cancelled and Stop returns ctx's error
// at once; a task that ignores cancellation is left to finish on its own.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		middleware.Logger.Warn("background tasks still running at shutdown",
			slog.Int("queued", len(d.queue)))
		return ctx.Err()
	}
}

// Inline runs tasks synchronously on the caller's goroutine. Tests use it to
// make side effects deterministic.
type Inline struct{}

// Go runs fn immediately, discarding its error after logging it.
func (Inline) Go(name string, fn Func) {
	if err := fn(context.Background()); err != nil {
		middleware.Logger.Warn("background task failed", slog.String("task", name), slog.String("error", err.Error()))
	}
}

// Runner is what services depend on to schedule side effects.
type Runner interface {
	Go(name string, fn Func)
}

var (
	_ Runner = (*Dispatcher)(nil)
	_ Runner = Inline{}
)
