package kiosk

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flickpay/flickpos/internal/config"
	"github.com/flickpay/flickpos/internal/loop"
	"github.com/flickpay/flickpos/internal/modal"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/surface"
	"github.com/flickpay/flickpos/internal/surface/surfacetest"
	"github.com/flickpay/flickpos/internal/topology"
)

var (
	primaryDisplay   = platform.Display{ID: 1, Name: "HDMI-1", Bounds: platform.Rect{Width: 1920, Height: 1080}, Primary: true}
	secondaryDisplay = platform.Display{ID: 2, Name: "HDMI-2", Bounds: platform.Rect{X: 1920, Width: 1024, Height: 768}}
)

type fakeDisplays struct {
	list []platform.Display
	err  error
}

func (d *fakeDisplays) Displays() ([]platform.Display, error) {
	return d.list, d.err
}

type fakeDesktop struct {
	opened   []string
	revealed []string
}

func (d *fakeDesktop) OpenExternal(url string) error {
	d.opened = append(d.opened, url)
	return nil
}

func (d *fakeDesktop) RevealFile(path string) error {
	d.revealed = append(d.revealed, path)
	return nil
}

type fakeUpdates struct{ staged bool }

func (u *fakeUpdates) Staged() bool { return u.staged }

type fakeLogs struct {
	text string
	err  error
}

func (l *fakeLogs) Read() (string, error) { return l.text, l.err }

type fakeEscape struct{ armed bool }

func (e *fakeEscape) Arm(func()) error {
	e.armed = true
	return nil
}

func (e *fakeEscape) Disarm() error {
	e.armed = false
	return nil
}

type fixture struct {
	t        *testing.T
	dir      string
	sched    *loop.Manual
	factory  *surfacetest.Factory
	displays *fakeDisplays
	desktop  *fakeDesktop
	updates  *fakeUpdates
	logs     *fakeLogs
	store    *config.Store
	settings *config.Settings
	quits    int
	mgr      *Manager
}

type fixtureOption func(*fixture)

func withoutLoader() fixtureOption {
	return func(f *fixture) {
		require.NoError(f.t, os.Remove(filepath.Join(f.dir, "assets", "loader.html")))
	}
}

func withDisplays(displays ...platform.Display) fixtureOption {
	return func(f *fixture) { f.displays.list = displays }
}

func withConfig(fields config.Fields) fixtureOption {
	return func(f *fixture) {
		_, err := f.store.Save(fields)
		require.NoError(f.t, err)
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	dir := t.TempDir()
	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(assets, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "loader.html"), []byte("<html></html>"), 0o644))

	settings := config.DefaultSettings()
	settings.AssetsDir = assets

	f := &fixture{
		t:        t,
		dir:      dir,
		sched:    loop.NewManual(),
		factory:  surfacetest.NewFactory(),
		displays: &fakeDisplays{list: []platform.Display{primaryDisplay, secondaryDisplay}},
		desktop:  &fakeDesktop{},
		updates:  &fakeUpdates{},
		logs:     &fakeLogs{text: "boot ok\n"},
		store:    config.NewStore(filepath.Join(dir, "config.json"), config.FileURL(settings.AssetPath("default.html"))),
		settings: settings,
	}
	for _, opt := range opts {
		opt(f)
	}

	f.mgr = New(Config{
		Factory:  f.factory,
		Displays: f.displays,
		Store:    f.store,
		Settings: settings,
		Sched:    f.sched,
		Escape:   &fakeEscape{},
		Desktop:  f.desktop,
		Updates:  f.updates,
		Logs:     f.logs,
		Quit:     func() { f.quits++ },
		Version:  "1.4.2",
	})
	return f
}

func (f *fixture) start() {
	f.t.Helper()
	require.NoError(f.t, f.mgr.Start())
	f.sched.Flush()
}

func (f *fixture) operator() *surfacetest.Window {
	f.t.Helper()
	w := f.factory.Live(surface.RoleOperator)
	require.NotNil(f.t, w, "no live operator window")
	return w
}

func (f *fixture) customer() *surfacetest.Window {
	return f.factory.Live(surface.RoleCustomer)
}

func (f *fixture) defaultURL() string {
	return config.FileURL(f.settings.AssetPath("default.html"))
}

func TestStartTwoDisplays(t *testing.T) {
	f := newFixture(t)
	f.start()

	op := f.operator()
	cust := f.customer()
	require.NotNil(t, cust)

	assert.Equal(t, primaryDisplay.Bounds, op.Opts.Bounds)
	assert.Equal(t, secondaryDisplay.Bounds, cust.Opts.Bounds)
	assert.Equal(t, PartitionOperator, op.Opts.Partition)
	assert.Equal(t, PartitionOperator, cust.Opts.Partition)
	assert.True(t, op.Opts.Bridge)
	assert.False(t, cust.Opts.Bridge)
	assert.True(t, cust.SkipTaskbar)
	assert.False(t, op.SkipTaskbar)
	assert.True(t, op.OnTop)
	assert.True(t, cust.OnTop)
	assert.Zero(t, op.Shown, "surfaces start hidden")

	assert.Equal(t, []string{"file://" + f.settings.AssetPath("loader.html")}, op.Loads)

	_, err := os.Stat(f.store.Path())
	assert.NoError(t, err, "config file is created on start")
}

func TestStartSingleDisplayHasNoCustomer(t *testing.T) {
	f := newFixture(t, withDisplays(platform.Display{ID: 7, Name: "eDP-1", Bounds: platform.Rect{Width: 1366, Height: 768}}))
	f.start()

	assert.NotNil(t, f.operator())
	assert.Nil(t, f.customer())
	assert.Nil(t, f.mgr.State().Customer)
	assert.Len(t, f.factory.Windows, 1)
}

func TestStartWithoutDisplays(t *testing.T) {
	f := newFixture(t, withDisplays())
	err := f.mgr.Start()
	assert.ErrorIs(t, err, topology.ErrNoDisplays)
	assert.False(t, f.mgr.State().Rebuilding)

	f.displays.err = errors.New("randr gone")
	assert.ErrorContains(t, f.mgr.Start(), "randr gone")
}

func TestReadyToShow(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()

	op.Emit(surface.EventReadyToShow)
	op.Emit(surface.EventReadyToShow)

	assert.Equal(t, 1, op.Shown)
	assert.True(t, op.Fullscreen)
	assert.True(t, op.OnTop)
	assert.Equal(t, 1, op.Focuses)
}

func TestCustomerForceShownWithoutReady(t *testing.T) {
	f := newFixture(t)
	f.start()
	cust := f.customer()

	f.sched.Advance(1499 * time.Millisecond)
	assert.Zero(t, cust.Shown)

	f.sched.Advance(time.Millisecond)
	assert.Equal(t, 1, cust.Shown)
	assert.True(t, cust.Fullscreen)

	cust.Emit(surface.EventReadyToShow)
	assert.Equal(t, 1, cust.Shown)
}

func TestCustomerReadyCancelsFallback(t *testing.T) {
	f := newFixture(t)
	f.start()
	cust := f.customer()

	cust.Emit(surface.EventReadyToShow)
	f.sched.Advance(2 * time.Second)

	assert.Equal(t, 1, cust.Shown)
}

func TestBootSequence(t *testing.T) {
	f := newFixture(t, withConfig(config.Fields{Account: "acme", PosID: "12", Screen1Mode: "pos"}))
	f.start()
	op := f.operator()
	cust := f.customer()

	// Timers only start once the loader has loaded.
	f.sched.Advance(10 * time.Second)
	assert.Len(t, op.Loads, 1)

	op.FinishLoad()
	cust.FinishLoad()
	assert.Equal(t, BootArmed, f.mgr.State().Operator.Boot)

	f.sched.Advance(4849 * time.Millisecond)
	assert.Empty(t, op.Scripts)

	f.sched.Advance(time.Millisecond)
	require.Len(t, op.Scripts, 1)
	assert.Contains(t, op.Scripts[0], "opacity 150ms")
	assert.Len(t, op.Loads, 1)

	f.sched.Advance(150 * time.Millisecond)
	assert.Equal(t, "https://acme.flickpay.co.uk/pos/ui/12", op.URL())
	assert.Equal(t, "https://acme.flickpay.co.uk/pos_customer_display/12/customer-display", cust.URL())
	assert.Equal(t, BootDone, f.mgr.State().Operator.Boot)

	// A later load finishing does not restart the sequence.
	op.FinishLoad()
	f.sched.Advance(10 * time.Second)
	assert.Len(t, op.Loads, 2)
}

func TestBootWithoutLoaderNavigatesImmediately(t *testing.T) {
	f := newFixture(t, withoutLoader())
	f.start()

	op := f.operator()
	assert.Equal(t, []string{f.defaultURL()}, op.Loads)
	assert.Equal(t, BootDone, f.mgr.State().Operator.Boot)
}

func TestSelfModeUsesKioskPartition(t *testing.T) {
	f := newFixture(t, withConfig(config.Fields{Account: "acme", PosID: "12", Screen1Mode: "self", AccessToken: "tok"}))
	f.start()

	assert.Equal(t, PartitionKiosk, f.operator().Opts.Partition)
	assert.Equal(t, PartitionKiosk, f.customer().Opts.Partition)

	f.mgr.OpenSettings()
	views := f.factory.LiveViews()
	require.Len(t, views, 1)
	assert.Equal(t, PartitionKiosk, views[0].Opts.Partition)
}

func TestRebuildAfterDisplayRemoved(t *testing.T) {
	f := newFixture(t)
	f.start()
	oldOp := f.operator()
	oldCust := f.customer()
	oldOp.FinishLoad()
	oldCust.FinishLoad()
	oldIDs := []string{f.mgr.State().Operator.ID, f.mgr.State().Customer.ID}

	f.displays.list = []platform.Display{primaryDisplay}
	f.mgr.DisplaysChanged()
	f.sched.Advance(300 * time.Millisecond)
	f.mgr.DisplaysChanged()
	f.sched.Advance(599 * time.Millisecond)
	assert.False(t, oldCust.IsDestroyed(), "debounce restarts on every change")

	f.sched.Advance(time.Millisecond)
	assert.True(t, oldOp.IsDestroyed())
	assert.True(t, oldCust.IsDestroyed())
	assert.Nil(t, f.mgr.State().Customer)
	assert.False(t, f.mgr.State().Rebuilding)
	assert.Zero(t, f.sched.PendingTimers(), "old boot and show timers are cancelled")

	newOp := f.operator()
	assert.NotSame(t, oldOp, newOp)
	assert.NotContains(t, oldIDs, f.mgr.State().Operator.ID)

	f.sched.Advance(10 * time.Second)
	assert.Len(t, oldCust.Loads, 1)
	assert.Empty(t, oldCust.Scripts)
	assert.Zero(t, oldCust.Shown)
	assert.Len(t, oldOp.Loads, 1)
}

func TestRebuildClosesModal(t *testing.T) {
	f := newFixture(t)
	f.start()
	f.mgr.OpenSettings()
	require.True(t, f.mgr.Modal().IsOpen())

	require.NoError(t, f.mgr.Rebuild())

	assert.False(t, f.mgr.Modal().IsOpen())
	assert.Empty(t, f.factory.LiveViews())
	assert.Len(t, f.factory.LiveWindows(), 2)
}

func TestExitTwiceShutsDownOnce(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()
	cust := f.customer()

	assert.False(t, op.Navigate("pos://exit", surface.NavigateInPlace))
	assert.False(t, op.Navigate("POS://EXIT", surface.OpenPopup))
	assert.Zero(t, f.quits, "commands run on a later loop turn")

	f.sched.Flush()

	assert.Equal(t, 1, f.quits)
	assert.True(t, f.mgr.State().Quitting)
	assert.True(t, op.IsDestroyed())
	assert.True(t, cust.IsDestroyed())
	assert.Empty(t, f.factory.LiveWindows())
}

func TestCloseAllTwice(t *testing.T) {
	f := newFixture(t)
	f.start()
	f.mgr.OpenSettings()

	f.mgr.CloseAll()
	f.mgr.CloseAll()

	assert.Equal(t, 1, f.quits)
	assert.Nil(t, f.mgr.State().Operator)
	assert.Nil(t, f.mgr.State().Customer)
	assert.Empty(t, f.factory.LiveViews())
	assert.Zero(t, f.sched.PendingTimers())
}

func TestCloseAllDefersStagedUpdate(t *testing.T) {
	f := newFixture(t)
	f.start()
	assert.False(t, f.mgr.InstallOnExit())

	f.updates.staged = true
	f.mgr.CloseAll()

	assert.True(t, f.mgr.InstallOnExit())
	assert.Equal(t, 1, f.quits)
}

func TestCloseAllWithoutStagedUpdate(t *testing.T) {
	f := newFixture(t)
	f.start()

	f.mgr.CloseAll()

	assert.False(t, f.mgr.InstallOnExit())
}

func TestCloseRequestRedirectsToCloseAll(t *testing.T) {
	f := newFixture(t)
	f.start()
	cust := f.customer()

	assert.False(t, cust.RequestClose())
	f.sched.Flush()

	assert.Equal(t, 1, f.quits)
	assert.True(t, cust.RequestClose(), "closes go through once quitting")
}

func TestCloseRequestAllowedWhileRebuilding(t *testing.T) {
	f := newFixture(t)
	f.start()

	f.mgr.State().Rebuilding = true
	assert.True(t, f.operator().RequestClose())
	f.sched.Flush()
	assert.Zero(t, f.quits)
}

func TestShutdownWinsOverPendingRebuild(t *testing.T) {
	f := newFixture(t)
	f.start()
	created := len(f.factory.Windows)

	f.mgr.DisplaysChanged()
	f.mgr.CloseAll()
	f.mgr.DisplaysChanged()
	f.sched.Advance(time.Second)

	assert.Len(t, f.factory.Windows, created)
	assert.NoError(t, f.mgr.Rebuild())
	assert.Len(t, f.factory.Windows, created)
}

func TestSettingsCommandOpensPin(t *testing.T) {
	f := newFixture(t)
	f.start()

	assert.False(t, f.operator().Navigate("pos://settings", surface.NavigateInPlace))
	f.sched.Flush()
	assert.Equal(t, modal.ModePin, f.mgr.Modal().Mode())

	assert.False(t, f.operator().Navigate("pos://getsupport", surface.OpenPopup))
	f.sched.Flush()
	assert.Equal(t, modal.ModeSupport, f.mgr.Modal().Mode())
	assert.Len(t, f.factory.LiveViews(), 1)
}

func TestExternalNavigationHandedToDesktop(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()

	assert.True(t, op.Navigate("https://acme.flickpay.co.uk/pos/ui/1", surface.NavigateInPlace))
	assert.False(t, op.Navigate("https://evil.example/pay", surface.NavigateInPlace))
	assert.False(t, op.Navigate("http://[::1", surface.NavigateInPlace))

	assert.Equal(t, []string{"https://evil.example/pay"}, f.desktop.opened)
}

func TestPopupOpensAuxWindow(t *testing.T) {
	f := newFixture(t)
	f.start()

	assert.False(t, f.operator().Navigate("https://help.flickpay.co.uk/doc", surface.OpenPopup))
	popup := f.factory.Live(surface.RolePopup)
	require.NotNil(t, popup)
	require.Len(t, f.mgr.State().Aux, 1)
	assert.Equal(t, []string{"https://help.flickpay.co.uk/doc"}, popup.Loads)
	assert.Equal(t, platform.Rect{X: 560, Y: 240, Width: 800, Height: 600}, popup.Opts.Bounds)

	popup.Emit(surface.EventReadyToShow)
	assert.Equal(t, 1, popup.Shown)
	assert.True(t, popup.OnTop)

	// Aux windows follow the same policy.
	assert.False(t, popup.Navigate("https://evil.example/", surface.NavigateInPlace))
	assert.Equal(t, []string{"https://evil.example/"}, f.desktop.opened)

	assert.False(t, popup.RequestClose())
	f.sched.Flush()
	assert.True(t, popup.IsDestroyed())
	assert.Empty(t, f.mgr.State().Aux)
}

func TestCloseAllDestroysPopups(t *testing.T) {
	f := newFixture(t)
	f.start()
	f.operator().Navigate("https://flickpay.co.uk/a", surface.OpenPopup)
	f.operator().Navigate("https://flickpay.co.uk/b", surface.OpenPopup)
	require.Len(t, f.mgr.State().Aux, 2)

	f.mgr.CloseAll()

	assert.Empty(t, f.mgr.State().Aux)
	assert.Empty(t, f.factory.LiveWindows())
}

func TestOperatorReloadReinjectsBackdrop(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()
	f.mgr.OpenSettings()
	f.sched.Flush()

	count := func() int {
		n := 0
		for _, s := range op.Scripts {
			if strings.Contains(s, "appendChild(el)") {
				n++
			}
		}
		return n
	}
	require.Equal(t, 1, count())

	op.StartNavigation("https://acme.flickpay.co.uk/pos/ui/12")
	op.FinishLoad()
	f.sched.Flush()

	assert.Equal(t, 2, count())
}

func TestOperatorGeometryRecentresModal(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()
	f.mgr.OpenSettings()
	view := f.factory.LiveViews()[0]

	op.Rect = platform.Rect{Width: 1000, Height: 800}
	op.Emit(surface.EventResized)

	assert.Equal(t, platform.Rect{X: 75, Y: 60, Width: 850, Height: 680}, view.Rect)
}

func TestCustomerCrashIsRebuilt(t *testing.T) {
	f := newFixture(t)
	f.start()
	cust := f.customer()
	lost := f.mgr.State().Customer
	require.Equal(t, 1, lost.pendingTimers(), "show fallback armed")

	cust.Lose(true)

	assert.Nil(t, f.mgr.State().Customer)
	assert.True(t, cust.IsDestroyed())
	assert.Zero(t, lost.pendingTimers())

	f.sched.Flush()
	assert.Zero(t, f.quits)
	assert.False(t, f.mgr.State().Quitting)
	next := f.customer()
	require.NotNil(t, next)
	assert.NotSame(t, cust, next)

	f.sched.Advance(2 * time.Second)
	assert.Zero(t, cust.Shown)
	assert.Equal(t, 1, next.Shown)
}

func TestOperatorCrashClosesModalAndIsRebuilt(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()
	f.mgr.OpenSettings()
	require.Equal(t, "pin", f.mgr.Status().Modal)

	op.Lose(true)
	assert.Nil(t, f.mgr.State().Operator)
	assert.Empty(t, f.factory.LiveViews())

	f.sched.Flush()
	assert.Zero(t, f.quits)
	assert.NotSame(t, op, f.operator())
}

func TestSurfaceClosedFromOutsideShutsDown(t *testing.T) {
	f := newFixture(t)
	f.start()
	cust := f.customer()

	cust.Lose(false)
	f.sched.Flush()

	assert.Equal(t, 1, f.quits)
	assert.True(t, f.mgr.State().Quitting)
	assert.Empty(t, f.factory.LiveWindows())
}

func TestReloadAll(t *testing.T) {
	f := newFixture(t)
	f.start()

	f.mgr.ReloadAll()

	assert.Equal(t, 1, f.operator().Reloads)
	assert.Equal(t, 1, f.customer().Reloads)
}

func TestRevealConfig(t *testing.T) {
	f := newFixture(t)
	f.start()

	f.mgr.RevealConfig()

	assert.Equal(t, []string{f.store.Path()}, f.desktop.revealed)
}

func TestConfigChangedAppliesOnlyDifferences(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()

	f.mgr.ConfigChanged()
	assert.Len(t, op.Loads, 1)

	_, err := f.store.Save(config.Fields{Account: "acme", PosID: "9"})
	require.NoError(t, err)
	f.mgr.ConfigChanged()

	assert.Equal(t, "https://acme.flickpay.co.uk/pos/ui/9", op.URL())
	assert.Equal(t, "https://acme.flickpay.co.uk/pos_customer_display/9/customer-display", f.customer().URL())

	f.mgr.ConfigChanged()
	assert.Len(t, op.Loads, 2)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.start()
	f.mgr.OpenSettings()

	st := f.mgr.Status()
	require.Len(t, st.Surfaces, 2)
	assert.Equal(t, "operator", st.Surfaces[0].Role)
	assert.Equal(t, "HDMI-1", st.Surfaces[0].Display)
	assert.Equal(t, "loader", st.Surfaces[0].Boot)
	assert.Equal(t, f.defaultURL(), st.Surfaces[0].Target)
	assert.Equal(t, "pin", st.Modal)
	assert.Equal(t, "opening", st.ModalPhase)
	assert.False(t, st.Quitting)
}

func TestReconcileRecreatesMissingCustomer(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()
	cust := f.customer()
	cust.Lose(true)
	require.Nil(t, f.mgr.State().Customer)

	f.mgr.Reconcile()

	replacement := f.customer()
	require.NotNil(t, replacement)
	assert.NotSame(t, cust, replacement)
	assert.Same(t, op, f.operator(), "the operator is left alone")
	assert.Equal(t, []string{"file://" + f.settings.AssetPath("loader.html")}, replacement.Loads)
	assert.Equal(t, PartitionOperator, replacement.Opts.Partition)
}

func TestReconcileRebuildsMissingOperator(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()
	op.Lose(true)

	f.mgr.Reconcile()

	assert.NotSame(t, op, f.operator())
	assert.NotNil(t, f.customer())
}

// failWindow fails the nth NewWindow call.
type failWindow struct {
	*surfacetest.Factory
	n     int
	calls int
}

func (f *failWindow) NewWindow(opts surface.WindowOptions, h surface.Handlers) (surface.Window, error) {
	f.calls++
	if f.calls == f.n {
		return nil, errors.New("window boom")
	}
	return f.Factory.NewWindow(opts, h)
}

func TestCustomerCreateFailureStillBootsOperator(t *testing.T) {
	f := newFixture(t, withConfig(config.Fields{Account: "acme", PosID: "7", Screen1Mode: "pos"}))
	f.mgr.cfg.Factory = &failWindow{Factory: f.factory, n: 2}

	require.NoError(t, f.mgr.Start())
	f.sched.Flush()

	op := f.operator()
	assert.Nil(t, f.customer())
	assert.Nil(t, f.mgr.State().Customer)
	assert.Equal(t, []string{"file://" + f.settings.AssetPath("loader.html")}, op.Loads)

	op.Emit(surface.EventReadyToShow)
	op.FinishLoad()
	f.sched.Advance(10 * time.Second)
	assert.Equal(t, 1, op.Shown)
	assert.Equal(t, "https://acme.flickpay.co.uk/pos/ui/7", op.URL())

	f.mgr.Reconcile()
	cust := f.customer()
	require.NotNil(t, cust)
	assert.Same(t, op, f.operator())
	assert.Equal(t, []string{"file://" + f.settings.AssetPath("loader.html")}, cust.Loads)
}

func TestReconcileReassertsTopmost(t *testing.T) {
	f := newFixture(t)
	f.start()
	op := f.operator()
	op.OnTop = false

	f.mgr.Reconcile()

	assert.True(t, op.OnTop)
	assert.Len(t, f.factory.Windows, 2, "nothing is recreated")
}

func TestReconcileIdleWhileQuitting(t *testing.T) {
	f := newFixture(t)
	f.start()
	f.mgr.CloseAll()
	windows := len(f.factory.Windows)

	f.mgr.Reconcile()

	assert.Len(t, f.factory.Windows, windows)
}

func TestReconcileSkipsPendingDisplayChange(t *testing.T) {
	f := newFixture(t)
	f.start()
	f.customer().Lose(true)
	f.mgr.DisplaysChanged()

	f.mgr.Reconcile()

	assert.Nil(t, f.mgr.State().Customer, "the debounced rebuild handles it")
}
