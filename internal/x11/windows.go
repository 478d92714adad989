package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// EWMH state atoms used to pin kiosk windows.
const (
	StateAbove       = "_NET_WM_STATE_ABOVE"
	StateStaysOnTop  = "_NET_WM_STATE_STAYS_ON_TOP"
	StateFullscreen  = "_NET_WM_STATE_FULLSCREEN"
	StateSkipTaskbar = "_NET_WM_STATE_SKIP_TASKBAR"
	StateSkipPager   = "_NET_WM_STATE_SKIP_PAGER"
)

const (
	stateRemove = 0
	stateAdd    = 1
)

// MoveResizeWindow moves and resizes a top-level window through the window
// manager, falling back to a direct configure.
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// SetWindowState adds or removes EWMH states. Mapped windows get a
// _NET_WM_STATE client message; unmapped windows get the property written
// directly so the window manager picks it up on map.
func (c *Connection) SetWindowState(windowID xproto.Window, add bool, states ...string) error {
	if !c.isViewable(windowID) {
		return c.writeStateProperty(windowID, add, states)
	}

	action := stateRemove
	if add {
		action = stateAdd
	}
	for _, state := range states {
		if err := ewmh.WmStateReq(c.XUtil, windowID, action, state); err != nil {
			return fmt.Errorf("set %s: %w", state, err)
		}
	}
	return nil
}

func (c *Connection) writeStateProperty(windowID xproto.Window, add bool, states []string) error {
	current, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		current = nil
	}

	set := make(map[string]bool, len(current)+len(states))
	var ordered []string
	for _, s := range current {
		if !set[s] {
			set[s] = true
			ordered = append(ordered, s)
		}
	}
	for _, s := range states {
		switch {
		case add && !set[s]:
			set[s] = true
			ordered = append(ordered, s)
		case !add:
			delete(set, s)
		}
	}

	next := ordered[:0]
	for _, s := range ordered {
		if set[s] {
			next = append(next, s)
		}
	}
	return ewmh.WmStateSet(c.XUtil, windowID, next)
}

func (c *Connection) isViewable(windowID xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// MapWindow makes a window visible.
func (c *Connection) MapWindow(windowID xproto.Window) error {
	return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// UnmapWindow hides a window.
func (c *Connection) UnmapWindow(windowID xproto.Window) error {
	return xproto.UnmapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// RaiseWindow restacks a window above its siblings.
func (c *Connection) RaiseWindow(windowID xproto.Window) error {
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), windowID,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check()
}

// ReparentWindow moves windowID under parent at (x, y) relative to the
// parent. A parent of 0 means the root window.
func (c *Connection) ReparentWindow(windowID, parent xproto.Window, x, y int) error {
	if parent == 0 {
		parent = c.Root
	}
	return xproto.ReparentWindowChecked(c.XUtil.Conn(), windowID, parent, int16(x), int16(y)).Check()
}

// ConfigureChild positions a window directly, bypassing the window manager.
// Used for windows reparented into another client.
func (c *Connection) ConfigureChild(windowID xproto.Window, x, y, width, height int) error {
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), windowID,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(int32(x)), uint32(int32(y)), uint32(width), uint32(height)}).Check()
}

// WindowGeometry returns the window rectangle in root coordinates.
func (c *Connection) WindowGeometry(windowID xproto.Window) (x, y, width, height int, err error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}

	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, 0, 0, err
	}

	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), nil
}

// WatchGeometry reports ConfigureNotify events for windowID. fn runs on the
// X event goroutine. The returned func detaches the callback.
func (c *Connection) WatchGeometry(windowID xproto.Window, fn func(x, y, width, height int)) (func(), error) {
	if err := xwindow.New(c.XUtil, windowID).Listen(xproto.EventMaskStructureNotify); err != nil {
		return nil, fmt.Errorf("listen structure notify: %w", err)
	}

	xevent.ConfigureNotifyFun(func(_ *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		fn(int(ev.X), int(ev.Y), int(ev.Width), int(ev.Height))
	}).Connect(c.XUtil, windowID)

	return func() { xevent.Detach(c.XUtil, windowID) }, nil
}
