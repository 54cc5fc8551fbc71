package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"aws-sqs-message-relay/internal/logger"
	"aws-sqs-message-relay/internal/metrics"
)

// Timer fires Callback every Interval. At most one callback runs at a time:
// a tick that arrives while a callback is executing is dropped, not queued.
type Timer struct {
	Interval time.Duration
	Callback func(ctx context.Context) error

	executing atomic.Bool
	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	cycles    sync.WaitGroup
}

// NewTimer creates a disarmed timer.
func NewTimer(interval time.Duration) *Timer {
	return &Timer{Interval: interval}
}

// Start arms the timer. Ticks stop when Stop is called or ctx is done.
// Cancelling ctx disarms the timer but never cancels a callback already
// executing. A timer disarmed by its context can be started again.
func (t *Timer) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		select {
		case <-t.done:
		default:
			return
		}
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(ctx, t.stop, t.done)
}

// Stop disarms the timer and returns once no further tick can fire. A
// callback already executing runs to completion.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop == nil {
		return
	}
	close(t.stop)
	<-t.done
	t.stop = nil
}

// Wait blocks until the callbacks started so far have returned.
func (t *Timer) Wait() {
	t.cycles.Wait()
}

// Executing reports whether a callback is in flight.
func (t *Timer) Executing() bool {
	return t.executing.Load()
}

func (t *Timer) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	ticker := time.NewTicker(t.Interval)
	defer close(done)
	defer ticker.Stop()

	// cycles keep the values of ctx (trace ids) but not its cancellation
	cycleCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			t.cycles.Add(1)
			go func() {
				defer t.cycles.Done()
				t.execute(cycleCtx)
			}()
		}
	}
}

// execute runs the callback unless one is already running, and reports
// whether it ran. The guard is released even if the callback fails or panics.
func (t *Timer) execute(ctx context.Context) bool {
	if !t.executing.CompareAndSwap(false, true) {
		metrics.TicksSkipped.Inc()
		return false
	}
	defer t.executing.Store(false)
	defer t.recoverCycle()

	if t.Callback == nil {
		return true
	}

	start := time.Now()
	if err := t.Callback(ctx); err != nil {
		metrics.CyclesFailed.Inc()
		logger.ErrorCtx(ctx, "Reader cycle failed: %s", err)
	}
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	return true
}

func (t *Timer) recoverCycle() {
	if r := recover(); r != nil {
		metrics.CyclesFailed.Inc()
		logger.Error("Reader cycle panic: %v\nStack: %s", r, string(debug.Stack()))
	}
}
