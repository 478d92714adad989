package daemon

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReconcileInterval is how often surface drift is checked.
const DefaultReconcileInterval = 15 * time.Second

// Poster queues work on the event loop.
type Poster interface {
	Post(fn func())
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically hands a drift check to the event loop. The check
// itself runs on the loop, never on the ticker goroutine.
type Reconciler struct {
	interval  time.Duration
	loop      Poster
	reconcile func()
	logger    *slog.Logger
}

// NewReconciler creates a reconciler that posts reconcile every interval.
func NewReconciler(cfg ReconcilerConfig, loop Poster, reconcile func()) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval:  interval,
		loop:      loop,
		reconcile: reconcile,
		logger:    logger.With("component", "reconciler"),
	}
}

// Run blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("reconciler stopped")
			return
		case <-ticker.C:
			r.loop.Post(r.reconcile)
		}
	}
}
