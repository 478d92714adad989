//go:build linux

package platform

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/flickpay/flickpos/internal/x11"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Connection exposes the X11 connection for hotkey registration.
func (b *LinuxBackend) Connection() *x11.Connection {
	if b == nil {
		return nil
	}
	return b.conn
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit stops EventLoop.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// Displays returns all active displays ordered by RandR CRTC index.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

// WatchDisplays subscribes to RandR change notifications.
func (b *LinuxBackend) WatchDisplays(fn func()) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.WatchMonitors(fn)
}

// FindWindowByTitle returns the first client whose title contains substring.
func (b *LinuxBackend) FindWindowByTitle(substring string) (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	win, err := conn.FindWindowByTitle(substring)
	return WindowID(win), err
}

func (b *LinuxBackend) Map(windowID WindowID) error {
	return b.with(func(c *x11.Connection) error { return c.MapWindow(xproto.Window(windowID)) })
}

func (b *LinuxBackend) Unmap(windowID WindowID) error {
	return b.with(func(c *x11.Connection) error { return c.UnmapWindow(xproto.Window(windowID)) })
}

func (b *LinuxBackend) Raise(windowID WindowID) error {
	return b.with(func(c *x11.Connection) error { return c.RaiseWindow(xproto.Window(windowID)) })
}

func (b *LinuxBackend) Focus(windowID WindowID) error {
	return b.with(func(c *x11.Connection) error { return c.FocusWindow(xproto.Window(windowID)) })
}

// MoveResize moves and resizes a window to the specified bounds.
func (b *LinuxBackend) MoveResize(windowID WindowID, bounds Rect) error {
	return b.with(func(c *x11.Connection) error {
		return c.MoveResizeWindow(xproto.Window(windowID), bounds.X, bounds.Y, bounds.Width, bounds.Height)
	})
}

// Geometry returns the window rectangle in root coordinates.
func (b *LinuxBackend) Geometry(windowID WindowID) (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}
	x, y, w, h, err := conn.WindowGeometry(xproto.Window(windowID))
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: x, Y: y, Width: w, Height: h}, nil
}

// WatchGeometry reports configure notifications for the window.
func (b *LinuxBackend) WatchGeometry(windowID WindowID, fn func(Rect)) (func(), error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	return conn.WatchGeometry(xproto.Window(windowID), func(x, y, w, h int) {
		fn(Rect{X: x, Y: y, Width: w, Height: h})
	})
}

// SetAlwaysOnTop requests the strongest stacking the window manager offers.
func (b *LinuxBackend) SetAlwaysOnTop(windowID WindowID, on bool) error {
	return b.with(func(c *x11.Connection) error {
		return c.SetWindowState(xproto.Window(windowID), on, x11.StateAbove, x11.StateStaysOnTop)
	})
}

func (b *LinuxBackend) SetFullscreen(windowID WindowID, on bool) error {
	return b.with(func(c *x11.Connection) error {
		return c.SetWindowState(xproto.Window(windowID), on, x11.StateFullscreen)
	})
}

func (b *LinuxBackend) SetSkipTaskbar(windowID WindowID, on bool) error {
	return b.with(func(c *x11.Connection) error {
		return c.SetWindowState(xproto.Window(windowID), on, x11.StateSkipTaskbar, x11.StateSkipPager)
	})
}

// Embed reparents child into parent and shows it on top.
func (b *LinuxBackend) Embed(child, parent WindowID, bounds Rect) error {
	return b.with(func(c *x11.Connection) error {
		if err := c.ReparentWindow(xproto.Window(child), xproto.Window(parent), bounds.X, bounds.Y); err != nil {
			return fmt.Errorf("reparent: %w", err)
		}
		if err := c.ConfigureChild(xproto.Window(child), bounds.X, bounds.Y, bounds.Width, bounds.Height); err != nil {
			return fmt.Errorf("configure child: %w", err)
		}
		if err := c.MapWindow(xproto.Window(child)); err != nil {
			return err
		}
		return c.RaiseWindow(xproto.Window(child))
	})
}

// Unembed hides child and moves it back under the root window.
func (b *LinuxBackend) Unembed(child WindowID) error {
	return b.with(func(c *x11.Connection) error {
		if err := c.UnmapWindow(xproto.Window(child)); err != nil {
			return err
		}
		return c.ReparentWindow(xproto.Window(child), 0, 0, 0)
	})
}

func (b *LinuxBackend) PlaceChild(child WindowID, bounds Rect) error {
	return b.with(func(c *x11.Connection) error {
		return c.ConfigureChild(xproto.Window(child), bounds.X, bounds.Y, bounds.Width, bounds.Height)
	})
}

func (b *LinuxBackend) with(fn func(*x11.Connection) error) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return fn(conn)
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:   m.ID,
		Name: m.Name,
		Bounds: Rect{
			X:      m.X,
			Y:      m.Y,
			Width:  m.Width,
			Height: m.Height,
		},
		Primary: m.Primary,
	}
}
