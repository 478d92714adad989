package kiosk

import "github.com/flickpay/flickpos/internal/platform"

// SurfaceStatus describes one top-level surface.
type SurfaceStatus struct {
	ID      string        `json:"id"`
	Role    string        `json:"role"`
	Display string        `json:"display"`
	Bounds  platform.Rect `json:"bounds"`
	URL     string        `json:"url"`
	Target  string        `json:"target"`
	Boot    string        `json:"boot"`
	Loading bool          `json:"loading"`
}

// Status is a point-in-time snapshot for the control socket.
type Status struct {
	Quitting   bool            `json:"quitting"`
	Rebuilding bool            `json:"rebuilding"`
	Modal      string          `json:"modal"`
	ModalPhase string          `json:"modal_phase"`
	Surfaces   []SurfaceStatus `json:"surfaces"`
	Popups     int             `json:"popups"`
}

// Status snapshots the orchestration state.
func (m *Manager) Status() Status {
	st := Status{
		Quitting:   m.state.Quitting,
		Rebuilding: m.state.Rebuilding,
		Modal:      string(m.modal.Mode()),
		ModalPhase: m.modal.Phase().String(),
		Popups:     len(m.state.Aux),
	}
	for _, s := range m.state.TopLevel() {
		st.Surfaces = append(st.Surfaces, SurfaceStatus{
			ID:      s.ID,
			Role:    string(s.Role),
			Display: s.Display.Name,
			Bounds:  s.Display.Bounds,
			URL:     s.Window.URL(),
			Target:  s.Target,
			Boot:    s.Boot.String(),
			Loading: s.Window.IsLoading(),
		})
	}
	return st
}
