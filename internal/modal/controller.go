// Package modal owns the single embedded overlay layered over the operator
// window: the PIN prompt, the settings panel and the support page. All
// methods must be called on the event loop.
package modal

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/flickpay/flickpos/internal/loop"
	"github.com/flickpay/flickpos/internal/navpolicy"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/safe"
	"github.com/flickpay/flickpos/internal/surface"
)

// ErrNoOperator is returned by Open when there is no live operator window
// to host the overlay.
var ErrNoOperator = errors.New("no operator window")

// FallbackBounds are used when the operator bounds cannot be read.
var FallbackBounds = platform.Rect{X: 0, Y: 0, Width: 800, Height: 600}

// Host is the part of the window manager the overlay depends on.
type Host interface {
	OperatorWindow() surface.Window
	EnforceTopmost()
	OpenExternal(url string)
	Bridge(call surface.BridgeCall) (any, error)
}

// EscapeKey is a global Escape binding that is only grabbed while the
// overlay is up. fn may be called from any goroutine.
type EscapeKey interface {
	Arm(fn func()) error
	Disarm() error
}

// Pages locates the overlay content.
type Pages struct {
	PinFile      string
	SettingsFile string
	SupportURL   string
}

// Config wires a Controller.
type Config struct {
	Factory   surface.Factory
	Host      Host
	Escape    EscapeKey
	Policy    *navpolicy.Engine
	Sched     loop.Scheduler
	Pages     Pages
	Scale     float64
	Partition string
	Logger    *slog.Logger
}

// Controller runs the overlay state machine.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	mode   Mode
	phase  Phase
	view   surface.View
	parent surface.Window

	// epoch changes on every close so late async work can tell it is stale.
	epoch         uint64
	escapeArmed   bool
	backdropDirty bool
	focusPending  bool
}

// New creates a closed controller.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Scale <= 0 || cfg.Scale > 1 {
		cfg.Scale = 0.85
	}
	return &Controller{
		cfg:    cfg,
		logger: logger.With("component", "modal"),
		mode:   ModeNone,
		phase:  PhaseClosed,
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode { return c.mode }

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase { return c.phase }

// Partition returns the browser partition overlay views are created in.
func (c *Controller) Partition() string { return c.cfg.Partition }

// IsOpen reports whether an overlay is opening or open.
func (c *Controller) IsOpen() bool { return c.phase != PhaseClosed }

// View returns the live overlay view, or nil.
func (c *Controller) View() surface.View {
	if !surface.Live(c.view) {
		return nil
	}
	return c.view
}

// Open shows the overlay in mode. Opening while already open switches the
// content and reuses the view.
func (c *Controller) Open(mode Mode) error {
	if mode == ModeNone {
		c.Close()
		return nil
	}
	src, err := c.source(mode)
	if err != nil {
		return err
	}
	op := c.cfg.Host.OperatorWindow()
	if !surface.Live(op) {
		return ErrNoOperator
	}

	view, err := c.ensureView(op)
	if err != nil {
		// A switch that lost its view must not leave the old overlay's
		// backdrop and Escape grab behind.
		c.Close()
		return fmt.Errorf("create overlay view: %w", err)
	}
	c.armEscape()
	c.injectBackdrop(op)

	c.applyBounds()
	if err := src(view); err != nil {
		c.logger.Warn("overlay load failed", "mode", mode, "error", err)
	}
	safe.Do(c.logger, "raise overlay", func() error { return op.RaiseView(view) })

	c.mode = mode
	c.phase = PhaseOpening
	c.focusPending = true
	c.focus()

	c.logger.Debug("overlay opening", "mode", mode)
	c.cfg.Host.EnforceTopmost()
	return nil
}

// Close tears the overlay down. Closing when nothing is open does nothing.
func (c *Controller) Close() {
	if c.phase == PhaseClosed && c.view == nil && !c.escapeArmed {
		return
	}
	c.epoch++
	c.disarmEscape()
	c.destroyView(true)
	c.mode = ModeNone
	c.phase = PhaseClosed
	c.backdropDirty = false
	c.focusPending = false

	if op := c.cfg.Host.OperatorWindow(); surface.Live(op) {
		safe.Do(c.logger, "remove backdrop", func() error { return op.ExecuteScript(removeBackdropScript) })
	}
	c.logger.Debug("overlay closed")
	c.cfg.Host.EnforceTopmost()
}

// Reset drops the overlay without touching the operator document. It is
// used when the operator window itself is being destroyed.
func (c *Controller) Reset() {
	c.epoch++
	c.disarmEscape()
	c.destroyView(false)
	c.mode = ModeNone
	c.phase = PhaseClosed
	c.backdropDirty = false
	c.focusPending = false
}

// OperatorLoadStarted marks the backdrop as lost with the old document.
func (c *Controller) OperatorLoadStarted() {
	if c.IsOpen() {
		c.backdropDirty = true
	}
}

// OperatorLoadFinished restores the backdrop after an operator reload.
func (c *Controller) OperatorLoadFinished() {
	if !c.IsOpen() || !c.backdropDirty {
		return
	}
	c.backdropDirty = false
	if op := c.cfg.Host.OperatorWindow(); surface.Live(op) {
		c.injectBackdrop(op)
	}
}

// OperatorGeometryChanged re-centres the overlay.
func (c *Controller) OperatorGeometryChanged() {
	if c.IsOpen() {
		c.applyBounds()
	}
}

// Bounds computes the overlay rectangle relative to the operator window.
func (c *Controller) Bounds() platform.Rect {
	op := c.cfg.Host.OperatorWindow()
	if !surface.Live(op) {
		return FallbackBounds
	}
	b, err := op.Bounds()
	if err != nil || b.Empty() {
		return FallbackBounds
	}
	w := int(math.Round(float64(b.Width) * c.cfg.Scale))
	h := int(math.Round(float64(b.Height) * c.cfg.Scale))
	return platform.Rect{
		X:      int(math.Round(float64(b.Width-w) / 2)),
		Y:      int(math.Round(float64(b.Height-h) / 2)),
		Width:  w,
		Height: h,
	}
}

func (c *Controller) source(mode Mode) (func(surface.View) error, error) {
	switch mode {
	case ModePin:
		return func(v surface.View) error { return v.LoadFile(c.cfg.Pages.PinFile) }, nil
	case ModeSettings:
		return func(v surface.View) error { return v.LoadFile(c.cfg.Pages.SettingsFile) }, nil
	case ModeSupport:
		return func(v surface.View) error { return v.LoadURL(c.cfg.Pages.SupportURL) }, nil
	default:
		return nil, fmt.Errorf("unknown overlay mode %q", mode)
	}
}

func (c *Controller) ensureView(op surface.Window) (surface.View, error) {
	if surface.Live(c.view) && c.parent == op {
		return c.view, nil
	}
	c.destroyView(false)

	var view surface.View
	view, err := c.cfg.Factory.NewView(surface.ViewOptions{
		Partition: c.cfg.Partition,
		Bridge:    true,
	}, surface.Handlers{
		OnEvent:    func(ev surface.Event) { c.onViewEvent(view, ev) },
		OnNavigate: func(req surface.NavigationRequest) bool { return c.onViewNavigate(view, req) },
		OnBridge:   c.cfg.Host.Bridge,
	})
	if err != nil {
		return nil, err
	}
	if err := op.AttachView(view); err != nil {
		safe.Do(c.logger, "destroy unattached view", view.Destroy)
		return nil, err
	}
	c.view = view
	c.parent = op
	return view, nil
}

func (c *Controller) destroyView(detach bool) {
	view, parent := c.view, c.parent
	c.view, c.parent = nil, nil
	if view == nil || view.IsDestroyed() {
		return
	}
	safe.Do(c.logger, "stop overlay", view.Stop)
	if detach && surface.Live(parent) {
		safe.Do(c.logger, "detach overlay", func() error { return parent.DetachView(view) })
	}
	safe.Do(c.logger, "destroy overlay", view.Destroy)
}

func (c *Controller) applyBounds() {
	if !surface.Live(c.view) {
		return
	}
	b := c.Bounds()
	safe.Do(c.logger, "set overlay bounds", func() error { return c.view.SetBounds(b) })
}

func (c *Controller) focus() {
	view, mode := c.view, c.mode
	if !surface.Live(view) {
		return
	}
	safe.Do(c.logger, "focus overlay", view.Focus)
	safe.Do(c.logger, "focus overlay element", func() error { return view.ExecuteScript(focusScript(mode)) })
}

func (c *Controller) injectBackdrop(op surface.Window) {
	epoch := c.epoch
	c.cfg.Sched.Async(func() error {
		return op.ExecuteScript(backdropScript)
	}, func(err error) {
		if err != nil {
			safe.Ignore(c.logger, "inject backdrop", err)
			return
		}
		// Closed while the script was in flight: take it down again.
		if epoch != c.epoch && c.phase == PhaseClosed && surface.Live(op) {
			safe.Do(c.logger, "remove stale backdrop", func() error { return op.ExecuteScript(removeBackdropScript) })
		}
	})
}

func (c *Controller) armEscape() {
	if c.escapeArmed || c.cfg.Escape == nil {
		return
	}
	sched := c.cfg.Sched
	err := c.cfg.Escape.Arm(func() { sched.Post(c.Close) })
	if err != nil {
		c.logger.Warn("escape shortcut unavailable", "error", err)
		return
	}
	c.escapeArmed = true
}

func (c *Controller) disarmEscape() {
	if !c.escapeArmed {
		return
	}
	c.escapeArmed = false
	safe.Do(c.logger, "disarm escape", c.cfg.Escape.Disarm)
}

func (c *Controller) onViewEvent(view surface.View, ev surface.Event) {
	if view != c.view {
		return
	}
	switch ev.Kind {
	case surface.EventLoadFinished:
		if c.phase == PhaseOpening {
			c.phase = PhaseOpen
		}
		if c.focusPending {
			c.focusPending = false
			c.focus()
		}
	case surface.EventClosed:
		c.Close()
	}
}

func (c *Controller) onViewNavigate(view surface.View, req surface.NavigationRequest) bool {
	d := c.cfg.Policy.Decide(navpolicy.Modal, req.URL)
	switch d.Verdict {
	case navpolicy.Invoke:
		if d.Command == navpolicy.CommandCloseModal {
			c.cfg.Sched.Post(c.Close)
		}
		return false
	case navpolicy.Deny:
		return false
	case navpolicy.External:
		c.cfg.Host.OpenExternal(d.URL)
		return false
	}
	if req.Kind == surface.OpenPopup {
		// Popups from the overlay replace its content instead of opening
		// a second window above the kiosk.
		if view == c.view && surface.Live(view) {
			safe.Do(c.logger, "load overlay popup", func() error { return view.LoadURL(req.URL) })
		}
		return false
	}
	return true
}
