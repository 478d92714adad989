// Package daemon assembles the kiosk runtime: logging, the X11 backend, the
// browser-backed surfaces, desktop integration, updates, shortcuts and the
// control socket. Run blocks until the kiosk shuts down.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flickpay/flickpos/internal/browser"
	"github.com/flickpay/flickpos/internal/config"
	"github.com/flickpay/flickpos/internal/desktop"
	"github.com/flickpay/flickpos/internal/hotkeys"
	"github.com/flickpay/flickpos/internal/ipc"
	"github.com/flickpay/flickpos/internal/kiosk"
	"github.com/flickpay/flickpos/internal/logsink"
	"github.com/flickpay/flickpos/internal/loop"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/update"
)

// AppName identifies the kiosk to the desktop session.
const AppName = "flickpos"

// shutdownGrace bounds how long an external cancellation waits for CloseAll.
const shutdownGrace = 5 * time.Second

// Options configure Run.
type Options struct {
	DataDir    string
	SocketPath string
	Settings   *config.Settings
	Version    string
	// Stderr receives the log alongside the log file. Defaults to os.Stderr.
	Stderr io.Writer
}

// Run starts the kiosk and blocks until it has shut down, either through
// CloseAll or because ctx was cancelled. A staged update is launched only
// after the runtime has released the socket, the display and the browser.
func Run(ctx context.Context, opts Options) error {
	settings := opts.Settings
	if settings == nil {
		settings = config.DefaultSettings()
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	started := time.Now()

	sink, logger := openLog(opts.DataDir, settings, stderr)
	if sink != nil {
		defer sink.Close()
	}
	logger.Info("flickpos starting", "version", opts.Version, "data_dir", opts.DataDir, "pid", os.Getpid())

	updates := openUpdates(settings, opts.Version, logger)

	install, err := run(ctx, opts, settings, started, logger, sink, updates)
	if err != nil {
		return err
	}
	logger.Info("flickpos stopped")
	if install && updates != nil {
		return installStaged(updates, logger)
	}
	return nil
}

// Installer relaunches into a staged release.
type Installer interface {
	Install() error
}

func installStaged(u Installer, logger *slog.Logger) error {
	logger.Info("installing staged update")
	if err := u.Install(); err != nil {
		return fmt.Errorf("install update: %w", err)
	}
	return nil
}

// run owns everything that must be released before a relaunch. install
// reports that CloseAll asked for the staged update.
func run(ctx context.Context, opts Options, settings *config.Settings, started time.Time, logger *slog.Logger, sink *logsink.Sink, updates *update.Channel) (install bool, err error) {
	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		return false, fmt.Errorf("connect to display: %w", err)
	}
	defer backend.Disconnect()

	lp := loop.New(logger.With("component", "loop"))
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		lp.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	factory, err := browser.NewFactory(browser.Options{
		Binary:      settings.Browser.Binary,
		Args:        settings.Browser.Args,
		ProfileRoot: settings.ProfileRoot(opts.DataDir),
		Scheme:      settings.PseudoScheme,
		Methods:     kiosk.Methods,
		Backend:     backend,
		Sched:       lp,
		Logger:      logger,
	})
	if err != nil {
		return false, fmt.Errorf("browser: %w", err)
	}
	defer factory.Close()
	logger.Info("browser resolved", "binary", factory.Binary())

	desk := desktop.New(AppName, logger)
	defer desk.Close()

	keys := hotkeys.NewHandler(backend.Connection(), logger)
	store := config.NewStore(config.ConfigPath(opts.DataDir), config.FileURL(settings.AssetPath("default.html")))

	quit := make(chan struct{})
	kcfg := kiosk.Config{
		Factory:  factory,
		Displays: backend,
		Store:    store,
		Settings: settings,
		Sched:    lp,
		Escape:   keys.Toggle(settings.Hotkeys.Escape),
		Desktop:  desk,
		Quit:     func() { close(quit) },
		Version:  opts.Version,
		Logger:   logger,
	}
	// Interfaces stay nil rather than holding typed nil pointers.
	if updates != nil {
		kcfg.Updates = updates
	}
	if sink != nil {
		kcfg.Logs = sink
	}
	mgr := kiosk.New(kcfg)

	control := &Control{
		Loop:          lp,
		Kiosk:         mgr,
		DisplaySource: backend,
		Updates:       kcfg.Updates,
		Browser:       factory.Binary(),
		Version:       opts.Version,
		Started:       started,
	}
	if sink != nil {
		control.Log = sink
	}
	server := ipc.NewServer(opts.SocketPath, control, logger)
	if err := server.Start(); err != nil {
		return false, fmt.Errorf("control socket: %w", err)
	}
	defer server.Stop()

	bindShortcuts(keys, settings.Hotkeys, lp, mgr, logger)
	go backend.EventLoop()
	defer backend.Quit()

	var startErr error
	if err := lp.Call(ctx, func() { startErr = mgr.Start() }); err != nil {
		return false, fmt.Errorf("start kiosk: %w", err)
	}
	if startErr != nil {
		// A display hotplug rebuilds later.
		logger.Error("initial surfaces not created", "error", startErr)
	}

	if err := backend.WatchDisplays(func() { lp.Post(mgr.DisplaysChanged) }); err != nil {
		logger.Warn("display changes will not be followed", "error", err)
	}

	if settings.WatchConfig {
		w, err := config.NewWatcher(store.Path(), func() { lp.Post(mgr.ConfigChanged) }, logger.With("component", "config-watcher"))
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			logger.Warn("config watcher unavailable", "error", err)
		} else {
			defer w.Stop()
		}
	}

	if settings.InhibitScreensaver {
		if err := desk.Inhibit("Point of sale kiosk running"); err != nil {
			logger.Warn("screensaver inhibit failed", "error", err)
		}
	}

	bgCtx, cancelBackground := context.WithCancel(ctx)
	defer cancelBackground()

	if updates != nil {
		lp.Post(func() {
			lp.AfterFunc(settings.UpdateCheckDelay(), func() { stageUpdate(bgCtx, lp, updates, logger) })
		})
	}

	go NewReconciler(ReconcilerConfig{Logger: logger}, lp, mgr.Reconcile).Run(bgCtx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	logger.Info("flickpos running", "socket", opts.SocketPath)
	for {
		select {
		case <-quit:
			return mgr.InstallOnExit(), nil
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Info("received SIGHUP, re-reading config.json")
				lp.Post(mgr.ConfigChanged)
				continue
			}
			logger.Info("received signal, shutting down", "signal", sig.String())
			lp.Post(mgr.CloseAll)
		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			err := lp.Call(graceCtx, mgr.CloseAll)
			cancel()
			if err != nil {
				logger.Warn("shutdown did not complete", "error", err)
				return false, nil
			}
			return mgr.InstallOnExit(), nil
		}
	}
}

// openLog opens the rotating log file. When it cannot be opened the kiosk
// logs to stderr only.
func openLog(dataDir string, settings *config.Settings, stderr io.Writer) (*logsink.Sink, *slog.Logger) {
	level := logsink.ParseLevel(settings.Log.Level)
	sink, err := logsink.Open(logsink.Config{
		FilePath:  settings.LogFile(dataDir),
		MaxSizeMB: settings.Log.MaxSizeMB,
		MaxFiles:  settings.Log.MaxFiles,
	})
	if err != nil {
		logger := logsink.NewLogger(level, stderr)
		logger.Warn("log file unavailable", "error", err)
		return nil, logger
	}
	return sink, logsink.NewLogger(level, stderr, sink)
}

func openUpdates(settings *config.Settings, version string, logger *slog.Logger) *update.Channel {
	if !settings.Update.Enabled {
		return nil
	}
	ch, err := update.New(update.Config{
		Repository: settings.Update.Repository,
		Version:    version,
		Logger:     logger,
	})
	if err != nil {
		logger.Warn("update channel disabled", "error", err)
		return nil
	}
	return ch
}

// stageUpdate downloads a newer release off the loop. Run relaunches into
// it after shutdown.
func stageUpdate(ctx context.Context, sched loop.Scheduler, ch *update.Channel, logger *slog.Logger) {
	var st update.Status
	sched.Async(func() error {
		var err error
		st, err = ch.Stage(ctx)
		return err
	}, func(err error) {
		switch {
		case err != nil:
			logger.Info("update check failed", "error", err)
		case st.Staged && st.Latest != nil:
			logger.Info("update ready, installs on exit", "version", st.Latest.Version)
		default:
			logger.Debug("no update available", "current", st.Current)
		}
	})
}

// bindShortcuts registers the global shortcuts. X11 callbacks hop onto the
// loop before touching the kiosk.
func bindShortcuts(keys *hotkeys.Handler, hk config.HotkeySettings, lp loop.Scheduler, mgr *kiosk.Manager, logger *slog.Logger) {
	post := func(fn func()) func() {
		return func() { lp.Post(fn) }
	}
	err := keys.Register([]hotkeys.Binding{
		{Name: "open_settings", Keys: hk.OpenSettings, Action: post(mgr.OpenSettings)},
		{Name: "reload", Keys: hk.Reload, Action: post(mgr.ReloadAll)},
		{Name: "quit", Keys: hk.Quit, Action: post(mgr.CloseAll)},
		{Name: "reveal_config", Keys: hk.RevealConfig, Action: post(mgr.RevealConfig)},
	})
	if err != nil {
		logger.Warn("global shortcuts unavailable", "error", err)
	}
}
