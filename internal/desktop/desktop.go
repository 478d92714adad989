// Package desktop talks to the user session: opening links in the default
// browser, revealing files in the file manager and holding off the
// screensaver. D-Bus is tried first; xdg-open is the fallback.
package desktop

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = "/org/freedesktop/portal/desktop"
	portalOpenURI   = "org.freedesktop.portal.OpenURI.OpenURI"
	fileManagerDest = "org.freedesktop.FileManager1"
	fileManagerPath = "/org/freedesktop/FileManager1"
	showItems       = "org.freedesktop.FileManager1.ShowItems"
	screenSaverDest = "org.freedesktop.ScreenSaver"
	screenSaverPath = "/org/freedesktop/ScreenSaver"
	inhibitMethod   = "org.freedesktop.ScreenSaver.Inhibit"
	uninhibitMethod = "org.freedesktop.ScreenSaver.UnInhibit"
)

// callFunc performs one D-Bus method call and returns the reply body.
type callFunc func(dest string, path dbus.ObjectPath, method string, args ...any) ([]any, error)

// Desktop is the session integration. Methods are safe for concurrent use.
type Desktop struct {
	app    string
	logger *slog.Logger
	call   callFunc
	open   func(target string) error

	mu     sync.Mutex
	cookie uint32
	held   bool
}

// New connects to the session bus. A missing bus is not an error: every
// call then goes through xdg-open or fails quietly.
func New(app string, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Desktop{
		app:    app,
		logger: logger.With("component", "desktop"),
		open:   xdgOpen,
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		d.logger.Warn("session bus unavailable, using xdg-open", "error", err)
		d.call = func(string, dbus.ObjectPath, string, ...any) ([]any, error) {
			return nil, fmt.Errorf("no session bus: %w", err)
		}
		return d
	}
	d.call = func(dest string, path dbus.ObjectPath, method string, args ...any) ([]any, error) {
		c := conn.Object(dest, path).Call(method, 0, args...)
		if c.Err != nil {
			return nil, c.Err
		}
		return c.Body, nil
	}
	return d
}

// OpenExternal opens an http(s) or mailto link with the user's default
// handler.
func (d *Desktop) OpenExternal(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "mailto":
	default:
		return fmt.Errorf("refusing to open %q scheme externally", u.Scheme)
	}
	_, err = d.call(portalDest, portalPath, portalOpenURI, "", u.String(), map[string]dbus.Variant{})
	if err == nil {
		return nil
	}
	d.logger.Debug("portal OpenURI failed", "error", err)
	return d.open(u.String())
}

// RevealFile shows path selected in the file manager, or opens its
// directory when no file manager implements ShowItems.
func (d *Desktop) RevealFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	uri := (&url.URL{Scheme: "file", Path: abs}).String()
	_, err = d.call(fileManagerDest, fileManagerPath, showItems, []string{uri}, "")
	if err == nil {
		return nil
	}
	d.logger.Debug("ShowItems failed", "error", err)
	return d.open(filepath.Dir(abs))
}

// Inhibit keeps the screensaver and display blanking off until Release.
// Calling it again while held does nothing.
func (d *Desktop) Inhibit(reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held {
		return nil
	}
	body, err := d.call(screenSaverDest, screenSaverPath, inhibitMethod, d.app, reason)
	if err != nil {
		return fmt.Errorf("inhibit screensaver: %w", err)
	}
	if len(body) != 1 {
		return errors.New("inhibit screensaver: unexpected reply")
	}
	cookie, ok := body[0].(uint32)
	if !ok {
		return fmt.Errorf("inhibit screensaver: cookie is %T", body[0])
	}
	d.cookie, d.held = cookie, true
	return nil
}

// Release drops the screensaver inhibition.
func (d *Desktop) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.held {
		return nil
	}
	d.held = false
	if _, err := d.call(screenSaverDest, screenSaverPath, uninhibitMethod, d.cookie); err != nil {
		return fmt.Errorf("release screensaver: %w", err)
	}
	return nil
}

// Close releases the inhibition. The shared session bus connection stays
// open.
func (d *Desktop) Close() error {
	return d.Release()
}

func xdgOpen(target string) error {
	cmd := exec.Command("xdg-open", target)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("xdg-open: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
