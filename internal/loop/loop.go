// Package loop provides the single cooperative event loop every kiosk
// component runs on. Callbacks posted from other goroutines (X11, DevTools,
// IPC, file watchers) are executed one at a time, in order, on the loop
// goroutine, so orchestration state needs no locks.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ErrStopped is returned by Call once the loop has exited.
var ErrStopped = errors.New("event loop stopped")

// Timer is a cancellable scheduled callback. Stop must be called from the
// loop; it reports whether the callback was prevented from running.
type Timer interface {
	Stop() bool
}

// Scheduler is the view of the loop handed to components.
type Scheduler interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// AfterFunc runs fn on the loop after d unless the timer is stopped first.
	AfterFunc(d time.Duration, fn func()) Timer
	// Async runs work off the loop and delivers its result to done on the loop.
	Async(work func() error, done func(error))
}

// Loop is the production Scheduler backed by a goroutine draining a queue.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending []func()
	stopped bool

	wake   chan struct{}
	exited chan struct{}
}

// New creates a loop. Run must be called to start executing callbacks.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		exited: make(chan struct{}),
	}
}

// Run executes queued callbacks until ctx is cancelled. It blocks.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.exited)
	for {
		l.drain()
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.pending = nil
			l.mu.Unlock()
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Post queues fn. Callbacks posted after the loop stops are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// AfterFunc schedules fn on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.done {
				return
			}
			lt.done = true
			fn()
		})
	})
	return lt
}

// Async runs work on its own goroutine and posts done(err) back to the loop.
func (l *Loop) Async(work func() error, done func(error)) {
	go func() {
		err := work()
		if done != nil {
			l.Post(func() { done(err) })
		}
	}()
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.exited:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event loop callback panic recovered", "error", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

type loopTimer struct {
	t    *time.Timer
	done bool
}

func (t *loopTimer) Stop() bool {
	if t.done {
		return false
	}
	t.done = true
	t.t.Stop()
	return true
}
