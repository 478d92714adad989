package kiosk

import (
	"github.com/flickpay/flickpos/internal/loop"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/surface"
)

// Partitions isolate browser state per screen 1 mode. The customer surface
// shares the operator partition.
const (
	PartitionOperator = "flickpay_operator"
	PartitionKiosk    = "flickpay_kiosk"
)

// BootPhase tracks a surface's loader-to-target sequence.
type BootPhase int

const (
	// BootLoader means loader.html is loading.
	BootLoader BootPhase = iota
	// BootArmed means the fade and navigate timers are pending.
	BootArmed
	// BootDone means the surface was sent to its target.
	BootDone
)

// String returns the string representation of the boot phase
func (p BootPhase) String() string {
	switch p {
	case BootLoader:
		return "loader"
	case BootArmed:
		return "armed"
	case BootDone:
		return "done"
	default:
		return "unknown"
	}
}

// Surface is a top-level window the kiosk manages.
type Surface struct {
	// ID is unique per instance; a rebuilt surface never reuses one.
	ID      string
	Role    surface.Role
	Window  surface.Window
	Display platform.Display
	Target  string
	Boot    BootPhase

	shown     bool
	destroyed bool
	fadeTimer loop.Timer
	navTimer  loop.Timer
	showTimer loop.Timer
}

func (s *Surface) live() bool {
	return s != nil && !s.destroyed && surface.Live(s.Window)
}

// stopBoot cancels the pending fade and navigation.
func (s *Surface) stopBoot() {
	stopTimer(&s.fadeTimer)
	stopTimer(&s.navTimer)
}

// stopTimers cancels every pending boot and show timer.
func (s *Surface) stopTimers() {
	s.stopBoot()
	stopTimer(&s.showTimer)
}

func stopTimer(t *loop.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (s *Surface) pendingTimers() int {
	n := 0
	for _, t := range []loop.Timer{s.fadeTimer, s.navTimer, s.showTimer} {
		if t != nil {
			n++
		}
	}
	return n
}

// Aux is a popup window opened by trusted content.
type Aux struct {
	ID     string
	Window surface.Window
	URL    string
}

// State is the orchestration state. It is only touched on the loop.
type State struct {
	Quitting   bool
	Rebuilding bool
	// InstallOnExit is set by CloseAll when a staged update is waiting.
	InstallOnExit bool

	Operator *Surface
	Customer *Surface
	Aux      []*Aux
}

// TopLevel returns the live top-level surfaces, operator first.
func (st *State) TopLevel() []*Surface {
	var out []*Surface
	for _, s := range []*Surface{st.Operator, st.Customer} {
		if s.live() {
			out = append(out, s)
		}
	}
	return out
}

func (st *State) owns(s *Surface) bool {
	return s.live() && (st.Operator == s || st.Customer == s)
}
