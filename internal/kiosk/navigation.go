package kiosk

import (
	"github.com/oklog/ulid/v2"

	"github.com/flickpay/flickpos/internal/modal"
	"github.com/flickpay/flickpos/internal/navpolicy"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/safe"
	"github.com/flickpay/flickpos/internal/surface"
)

// auxSize is the default popup size, centred on the operator display.
var auxSize = platform.Rect{Width: 800, Height: 600}

// onNavigate applies the navigation policy to a top-level or aux window.
// Commands run on a later loop turn so the content callback returns first.
func (m *Manager) onNavigate(req surface.NavigationRequest) bool {
	d := m.policy.Decide(navpolicy.TopLevel, req.URL)
	switch d.Verdict {
	case navpolicy.Invoke:
		cmd := d.Command
		m.sched.Post(func() { m.Invoke(cmd) })
		return false
	case navpolicy.Deny:
		m.logger.Debug("navigation denied", "url", req.URL)
		return false
	case navpolicy.External:
		m.OpenExternal(d.URL)
		return false
	}
	if req.Kind == surface.OpenPopup {
		m.openAux(req.URL)
		return false
	}
	return true
}

// Invoke runs a pseudo-URL command.
func (m *Manager) Invoke(cmd navpolicy.Command) {
	switch cmd {
	case navpolicy.CommandExit:
		m.CloseAll()
	case navpolicy.CommandSettings:
		m.OpenModal(modal.ModePin)
	case navpolicy.CommandSupport:
		m.OpenModal(modal.ModeSupport)
	case navpolicy.CommandCloseModal:
		m.CloseModal()
	}
}

func (m *Manager) openAux(url string) {
	if m.state.Quitting {
		return
	}
	a := &Aux{ID: ulid.Make().String(), URL: url}

	bounds := auxSize
	partition := m.modal.Partition()
	if op := m.state.Operator; op.live() {
		d := op.Display.Bounds
		bounds.X = d.X + max(0, (d.Width-bounds.Width)/2)
		bounds.Y = d.Y + max(0, (d.Height-bounds.Height)/2)
	}

	w, err := m.cfg.Factory.NewWindow(surface.WindowOptions{
		Role:       surface.RolePopup,
		Bounds:     bounds,
		Partition:  partition,
		Background: "#ffffff",
	}, surface.Handlers{
		OnEvent:    func(ev surface.Event) { m.onAuxEvent(a, ev) },
		OnNavigate: m.onNavigate,
		OnCloseRequested: func() bool {
			m.sched.Post(func() { m.closeAux(a) })
			return false
		},
	})
	if err != nil {
		m.logger.Warn("cannot open popup", "url", url, "error", err)
		return
	}
	a.Window = w
	m.state.Aux = append(m.state.Aux, a)
	safe.Do(m.logger, "load popup", func() error { return w.LoadURL(url) })
	m.logger.Info("popup opened", "url", url, "popup", a.ID)
}

func (m *Manager) onAuxEvent(a *Aux, ev surface.Event) {
	if !surface.Live(a.Window) {
		return
	}
	switch ev.Kind {
	case surface.EventReadyToShow:
		safe.Do(m.logger, "show popup", a.Window.Show)
		safe.Do(m.logger, "popup on top", func() error { return a.Window.SetAlwaysOnTop(true) })
		safe.Do(m.logger, "focus popup", a.Window.Focus)
	case surface.EventClosed:
		m.closeAux(a)
	}
}

func (m *Manager) closeAux(a *Aux) {
	kept := m.state.Aux[:0]
	for _, x := range m.state.Aux {
		if x != a {
			kept = append(kept, x)
		}
	}
	m.state.Aux = kept
	if surface.Live(a.Window) {
		safe.Do(m.logger, "destroy popup", a.Window.Destroy)
	}
}

func (m *Manager) destroyAux() {
	for _, a := range m.state.Aux {
		if surface.Live(a.Window) {
			safe.Do(m.logger, "destroy popup", a.Window.Destroy)
		}
	}
	m.state.Aux = nil
}
