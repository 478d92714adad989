// Package kiosk orchestrates the operator and customer surfaces: boot,
// display-driven rebuilds, shortcuts, content commands and shutdown. The
// Manager and everything it owns runs on the event loop.
package kiosk

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/oklog/ulid/v2"

	"github.com/flickpay/flickpos/internal/config"
	"github.com/flickpay/flickpos/internal/loop"
	"github.com/flickpay/flickpos/internal/modal"
	"github.com/flickpay/flickpos/internal/navpolicy"
	"github.com/flickpay/flickpos/internal/pin"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/safe"
	"github.com/flickpay/flickpos/internal/surface"
	"github.com/flickpay/flickpos/internal/topology"
)

// DisplaySource enumerates the connected displays.
type DisplaySource interface {
	Displays() ([]platform.Display, error)
}

// Desktop hands URLs and files to the user's desktop environment.
type Desktop interface {
	OpenExternal(url string) error
	RevealFile(path string) error
}

// Updater reports a release that was downloaded in the background.
type Updater interface {
	Staged() bool
}

// LogReader returns the current application log.
type LogReader interface {
	Read() (string, error)
}

// Config wires a Manager. Desktop, Updates, Logs and Escape are optional.
type Config struct {
	Factory  surface.Factory
	Displays DisplaySource
	Store    *config.Store
	Settings *config.Settings
	Sched    loop.Scheduler
	Escape   modal.EscapeKey
	Desktop  Desktop
	Updates  Updater
	Logs     LogReader
	// Quit is called once, at the end of CloseAll.
	Quit    func()
	Version string
	Logger  *slog.Logger
}

// Manager owns the top-level surfaces and the modal overlay.
type Manager struct {
	cfg      Config
	settings *config.Settings
	sched    loop.Scheduler
	logger   *slog.Logger

	state     *State
	modal     *modal.Controller
	policy    *navpolicy.Engine
	gate      *pin.Gate
	debouncer *topology.Debouncer

	loaderPath string
	applied    config.URLs
}

// New creates a Manager with no surfaces. Call Start to create them.
func New(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	settings := cfg.Settings
	if settings == nil {
		settings = config.DefaultSettings()
	}

	m := &Manager{
		cfg:        cfg,
		settings:   settings,
		sched:      cfg.Sched,
		logger:     logger.With("component", "kiosk"),
		state:      &State{},
		policy:     navpolicy.New(settings.PseudoScheme, settings.TrustedDomain),
		gate:       pin.NewGate(pin.DefaultSecret),
		loaderPath: settings.AssetPath("loader.html"),
	}
	m.modal = m.newModal(PartitionOperator)
	m.debouncer = topology.NewDebouncer(cfg.Sched, settings.DebounceDuration(), func() {
		if err := m.Rebuild(); err != nil {
			m.logger.Error("rebuild after display change failed", "error", err)
		}
	})
	return m
}

// State exposes the orchestration state for inspection.
func (m *Manager) State() *State { return m.state }

// Modal exposes the overlay controller.
func (m *Manager) Modal() *modal.Controller { return m.modal }

// Start ensures the config file exists and creates the surfaces.
func (m *Manager) Start() error {
	if err := m.cfg.Store.Ensure(); err != nil {
		m.logger.Warn("cannot create config file", "path", m.cfg.Store.Path(), "error", err)
	}
	return m.Rebuild()
}

// DisplaysChanged schedules a debounced rebuild.
func (m *Manager) DisplaysChanged() {
	if m.state.Quitting {
		return
	}
	m.debouncer.Trigger()
}

// Rebuild destroys every surface and recreates them for the current
// displays and configuration. It does nothing once shutdown has begun.
func (m *Manager) Rebuild() error {
	if m.state.Quitting {
		return nil
	}
	m.state.Rebuilding = true
	defer func() { m.state.Rebuilding = false }()

	m.modal.Close()
	m.destroyAll()
	err := m.createSurfaces()
	m.EnforceTopmost()
	return err
}

// CloseAll shuts the kiosk down. Only the first call does anything.
func (m *Manager) CloseAll() {
	if m.state.Quitting {
		return
	}
	m.state.Quitting = true
	m.logger.Info("shutting down")

	m.modal.Close()
	m.destroyAux()
	m.destroyAll()
	m.debouncer.Stop()

	// The new process needs the socket, key grabs and browser profiles,
	// so the relaunch waits until the caller has torn everything down.
	if u := m.cfg.Updates; u != nil && u.Staged() {
		m.logger.Info("staged update installs after shutdown")
		m.state.InstallOnExit = true
	}
	if m.cfg.Quit != nil {
		m.cfg.Quit()
	}
}

// InstallOnExit reports whether CloseAll left a staged update to install
// once the runtime is torn down.
func (m *Manager) InstallOnExit() bool {
	return m.state.InstallOnExit
}

// OpenModal shows the overlay in mode.
func (m *Manager) OpenModal(mode modal.Mode) {
	if m.state.Quitting {
		return
	}
	if err := m.modal.Open(mode); err != nil {
		m.logger.Warn("cannot open overlay", "mode", mode, "error", err)
	}
}

// CloseModal closes the overlay if one is open.
func (m *Manager) CloseModal() {
	m.modal.Close()
}

// OpenSettings starts the PIN-gated settings flow.
func (m *Manager) OpenSettings() {
	m.OpenModal(modal.ModePin)
}

// ReloadAll reloads every top-level surface.
func (m *Manager) ReloadAll() {
	for _, s := range m.state.TopLevel() {
		safe.Do(m.logger, "reload "+string(s.Role), func() error { return s.Window.Reload(false) })
	}
}

// RevealConfig shows config.json in the file manager.
func (m *Manager) RevealConfig() {
	if err := m.cfg.Store.Ensure(); err != nil {
		m.logger.Warn("cannot create config file", "error", err)
	}
	if m.cfg.Desktop == nil {
		return
	}
	safe.Do(m.logger, "reveal config", func() error { return m.cfg.Desktop.RevealFile(m.cfg.Store.Path()) })
}

// ConfigChanged re-applies the URLs when config.json was edited on disk.
func (m *Manager) ConfigChanged() {
	if m.state.Quitting || m.state.Rebuilding {
		return
	}
	rt := m.cfg.Store.LoadRuntime()
	if rt.URLs == m.applied {
		return
	}
	m.logger.Info("config changed on disk, applying URLs")
	m.applyURLs(rt.URLs)
	m.EnforceTopmost()
}

// EnforceTopmost re-asserts always-on-top on every managed window.
func (m *Manager) EnforceTopmost() {
	for _, s := range m.state.TopLevel() {
		safe.Do(m.logger, "always on top", func() error { return s.Window.SetAlwaysOnTop(true) })
	}
	for _, a := range m.state.Aux {
		if surface.Live(a.Window) {
			safe.Do(m.logger, "aux always on top", func() error { return a.Window.SetAlwaysOnTop(true) })
		}
	}
}

// Reconcile corrects drift between the surfaces and the displays. A
// missing operator triggers a rebuild and a missing customer is recreated
// on its own. Always-on-top is re-asserted.
func (m *Manager) Reconcile() {
	if m.state.Quitting || m.state.Rebuilding || m.debouncer.Pending() {
		return
	}
	displays, err := m.cfg.Displays.Displays()
	if err != nil {
		m.logger.Debug("reconcile: enumerate displays", "error", err)
		return
	}
	roles, err := topology.Resolve(displays)
	if err != nil {
		m.logger.Debug("reconcile: resolve roles", "error", err)
		return
	}

	if !m.state.Operator.live() {
		m.logger.Warn("operator surface missing, rebuilding")
		if err := m.Rebuild(); err != nil {
			m.logger.Error("reconcile rebuild failed", "error", err)
		}
		return
	}
	if roles.Customer != nil && !m.state.Customer.live() {
		m.logger.Warn("customer surface missing, recreating", "display", roles.Customer.Name)
		if err := m.addCustomer(*roles.Customer, m.applied.Screen2, m.modal.Partition()); err != nil {
			m.logger.Error("recreate customer surface", "error", err)
		}
	}
	m.EnforceTopmost()
}

// OperatorWindow returns the live operator window, or nil.
func (m *Manager) OperatorWindow() surface.Window {
	if s := m.state.Operator; s.live() {
		return s.Window
	}
	return nil
}

// OpenExternal passes url to the desktop opener.
func (m *Manager) OpenExternal(url string) {
	m.logger.Info("opening externally", "url", url)
	if m.cfg.Desktop == nil {
		return
	}
	safe.Do(m.logger, "open external", func() error { return m.cfg.Desktop.OpenExternal(url) })
}

func (m *Manager) partition(mode string) string {
	if config.NormalizeMode(mode) == config.ModeSelf {
		return PartitionKiosk
	}
	return PartitionOperator
}

func (m *Manager) createSurfaces() error {
	displays, err := m.cfg.Displays.Displays()
	if err != nil {
		return fmt.Errorf("enumerate displays: %w", err)
	}
	roles, err := topology.Resolve(displays)
	if err != nil {
		return err
	}

	rt := m.cfg.Store.LoadRuntime()
	partition := m.partition(rt.Screen1Mode)
	m.modal = m.modalFor(partition)

	op, err := m.createSurface(surface.RoleOperator, roles.Operator, rt.Screen1, partition)
	if err != nil {
		return fmt.Errorf("create operator surface: %w", err)
	}
	m.state.Operator = op
	m.applied = rt.URLs
	m.boot(op)

	if roles.Customer != nil {
		// The operator stays up without it; Reconcile retries.
		if err := m.addCustomer(*roles.Customer, rt.Screen2, partition); err != nil {
			m.logger.Warn("customer surface not created", "display", roles.Customer.Name, "error", err)
		}
	}

	m.logger.Info("surfaces created",
		"operator", roles.Operator.Name,
		"customer", customerName(roles.Customer),
		"partition", partition)
	return nil
}

func (m *Manager) addCustomer(display platform.Display, target, partition string) error {
	cust, err := m.createSurface(surface.RoleCustomer, display, target, partition)
	if err != nil {
		return fmt.Errorf("create customer surface: %w", err)
	}
	m.state.Customer = cust
	m.boot(cust)
	return nil
}

// modalFor keeps the overlay on the operator's partition.
func (m *Manager) modalFor(partition string) *modal.Controller {
	if m.modal != nil && m.modal.Partition() == partition {
		return m.modal
	}
	m.modal.Reset()
	return m.newModal(partition)
}

func (m *Manager) newModal(partition string) *modal.Controller {
	return modal.New(modal.Config{
		Factory: m.cfg.Factory,
		Host:    m,
		Escape:  m.cfg.Escape,
		Policy:  m.policy,
		Sched:   m.sched,
		Pages: modal.Pages{
			PinFile:      m.settings.AssetPath("pin.html"),
			SettingsFile: m.settings.AssetPath("config.html"),
			SupportURL:   m.settings.SupportURL,
		},
		Scale:     m.settings.ModalScale(),
		Partition: partition,
		Logger:    m.cfg.Logger,
	})
}

func customerName(d *platform.Display) string {
	if d == nil {
		return "none"
	}
	return d.Name
}

func (m *Manager) createSurface(role surface.Role, display platform.Display, target, partition string) (*Surface, error) {
	s := &Surface{
		ID:      ulid.Make().String(),
		Role:    role,
		Display: display,
		Target:  target,
	}

	h := surface.Handlers{
		OnEvent:          func(ev surface.Event) { m.dispatch(s, ev) },
		OnNavigate:       func(req surface.NavigationRequest) bool { return m.onNavigate(req) },
		OnCloseRequested: m.onCloseRequested,
	}
	if role == surface.RoleOperator {
		h.OnBridge = m.Bridge
	}

	w, err := m.cfg.Factory.NewWindow(surface.WindowOptions{
		Role:       role,
		Bounds:     display.Bounds,
		Partition:  partition,
		Background: "#000000",
		Bridge:     role == surface.RoleOperator,
	}, h)
	if err != nil {
		return nil, err
	}
	s.Window = w

	safe.Do(m.logger, "always on top", func() error { return w.SetAlwaysOnTop(true) })
	if role == surface.RoleCustomer {
		safe.Do(m.logger, "skip taskbar", func() error { return w.SetSkipTaskbar(true) })
		s.showTimer = m.sched.AfterFunc(m.settings.CustomerShowFallback(), func() {
			s.showTimer = nil
			if m.state.owns(s) {
				m.logger.Debug("customer never became ready, showing anyway", "surface", s.ID)
				m.show(s)
			}
		})
	}
	return s, nil
}

func (m *Manager) show(s *Surface) {
	if s.shown {
		return
	}
	s.shown = true
	if s.showTimer != nil {
		s.showTimer.Stop()
		s.showTimer = nil
	}
	w := s.Window
	safe.Do(m.logger, "set bounds", func() error { return w.SetBounds(s.Display.Bounds) })
	safe.Do(m.logger, "fullscreen", func() error { return w.SetFullscreen(true) })
	safe.Do(m.logger, "show", w.Show)
	safe.Do(m.logger, "always on top", func() error { return w.SetAlwaysOnTop(true) })
	if s.Role == surface.RoleOperator {
		safe.Do(m.logger, "focus operator", w.Focus)
	}
}

// destroyAll removes the overlay and every top-level surface.
func (m *Manager) destroyAll() {
	m.modal.Reset()
	for _, s := range []*Surface{m.state.Operator, m.state.Customer} {
		m.destroySurface(s)
	}
	m.state.Operator = nil
	m.state.Customer = nil
}

func (m *Manager) destroySurface(s *Surface) {
	if s == nil || s.destroyed {
		return
	}
	s.stopTimers()
	s.destroyed = true
	if s.Window != nil {
		safe.Do(m.logger, "destroy "+string(s.Role), s.Window.Destroy)
	}
}

// dispatch routes a top-level surface event.
func (m *Manager) dispatch(s *Surface, ev surface.Event) {
	if !m.state.owns(s) {
		return
	}
	operator := s == m.state.Operator

	switch ev.Kind {
	case surface.EventReadyToShow:
		m.show(s)
	case surface.EventLoadStarted:
		if operator {
			m.modal.OperatorLoadStarted()
		}
	case surface.EventLoadFinished:
		if s.Boot == BootLoader {
			m.armBoot(s)
		}
		if operator {
			m.modal.OperatorLoadFinished()
		}
	case surface.EventMoved, surface.EventResized:
		if operator {
			m.modal.OperatorGeometryChanged()
		}
	case surface.EventClosed:
		m.logger.Warn("surface closed unexpectedly", "role", s.Role, "surface", s.ID)
		if operator {
			m.modal.Reset()
			m.state.Operator = nil
		} else {
			m.state.Customer = nil
		}
		m.destroySurface(s)
		// A close from outside has already queued the shutdown, which
		// runs first and turns this into a no-op.
		m.sched.Post(m.Reconcile)
	}
}

// onCloseRequested vetoes a close and turns it into a shutdown, except
// while the kiosk is itself destroying windows.
func (m *Manager) onCloseRequested() bool {
	if m.state.Quitting || m.state.Rebuilding {
		return true
	}
	m.sched.Post(m.CloseAll)
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
