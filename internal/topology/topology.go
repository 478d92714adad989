// Package topology maps physical displays to the kiosk's logical roles and
// debounces bursts of change notifications.
package topology

import (
	"errors"
	"time"

	"github.com/flickpay/flickpos/internal/loop"
	"github.com/flickpay/flickpos/internal/platform"
)

// ErrNoDisplays is returned when the display server reports no displays.
var ErrNoDisplays = errors.New("no displays available")

// Roles binds displays to surfaces. Customer is nil on single-display
// terminals.
type Roles struct {
	Operator platform.Display
	Customer *platform.Display
}

// Resolve assigns the primary display to the operator and the first other
// display to the customer. When no display is flagged primary the first
// enumerated display is treated as primary.
func Resolve(displays []platform.Display) (Roles, error) {
	if len(displays) == 0 {
		return Roles{}, ErrNoDisplays
	}

	primary := displays[0]
	for _, d := range displays {
		if d.Primary {
			primary = d
			break
		}
	}

	roles := Roles{Operator: primary}
	for _, d := range displays {
		if d.ID != primary.ID {
			d := d
			roles.Customer = &d
			break
		}
	}
	return roles, nil
}

// Debouncer runs fn once a quiet period has passed since the last Trigger.
// All methods must be called on the loop.
type Debouncer struct {
	sched   loop.Scheduler
	quiet   time.Duration
	fn      func()
	timer   loop.Timer
	stopped bool
}

// NewDebouncer creates a debouncer firing fn after quiet.
func NewDebouncer(sched loop.Scheduler, quiet time.Duration, fn func()) *Debouncer {
	return &Debouncer{sched: sched, quiet: quiet, fn: fn}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.sched.AfterFunc(d.quiet, func() {
		d.timer = nil
		d.fn()
	})
}

// Pending reports whether a fire is scheduled.
func (d *Debouncer) Pending() bool {
	return d.timer != nil
}

// Stop cancels any pending fire and ignores later triggers.
func (d *Debouncer) Stop() {
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
