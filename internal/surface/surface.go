// Package surface defines the rendering surfaces the kiosk orchestrates:
// top-level windows bound to a display and embedded views layered inside a
// window. Implementations deliver every handler callback on the event loop
// and expect their methods to be called from it, except ExecuteScript and
// ClearSessionData which may also run from loop.Scheduler.Async work.
package surface

import (
	"encoding/json"
	"errors"

	"github.com/flickpay/flickpos/internal/platform"
)

// ErrDestroyed is returned by operations on destroyed content. Destroy on
// destroyed content is a no-op.
var ErrDestroyed = errors.New("surface destroyed")

// Role names what a surface is for.
type Role string

const (
	RoleOperator Role = "operator"
	RoleCustomer Role = "customer"
	RoleModal    Role = "modal"
	RolePopup    Role = "popup"
)

// EventKind is a named lifecycle event of a surface.
type EventKind int

const (
	EventReadyToShow EventKind = iota + 1
	EventLoadStarted
	EventLoadFinished
	EventMoved
	EventResized
	// EventClosed fires when the surface disappears without Destroy being
	// called, e.g. the browser process died. It is delivered while the
	// surface still reports live; see Lost.
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventReadyToShow:
		return "ready-to-show"
	case EventLoadStarted:
		return "load-started"
	case EventLoadFinished:
		return "load-finished"
	case EventMoved:
		return "moved"
	case EventResized:
		return "resized"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is delivered to Handlers.OnEvent.
type Event struct {
	Kind EventKind
	URL  string
}

// NavigationKind distinguishes in-place navigation from popups.
type NavigationKind int

const (
	NavigateInPlace NavigationKind = iota
	OpenPopup
)

// NavigationRequest is an outbound navigation or popup from content.
type NavigationRequest struct {
	URL  string
	Kind NavigationKind
}

// BridgeCall is a message from content through the host bridge.
type BridgeCall struct {
	Method string
	Args   json.RawMessage
}

// Handlers receive surface notifications. Any field may be nil.
type Handlers struct {
	OnEvent func(Event)
	// OnNavigate returns true to let the navigation or popup proceed.
	OnNavigate func(NavigationRequest) bool
	// OnCloseRequested returns true to let a user or OS close proceed.
	// Backends that cannot veto a close report it through Lost.
	OnCloseRequested func() bool
	// OnBridge answers a bridge call. A nil result with nil error is sent
	// back as null.
	OnBridge func(BridgeCall) (any, error)
}

// Content is what windows and views have in common.
type Content interface {
	ID() string
	LoadURL(url string) error
	LoadFile(path string) error
	Reload(ignoreCache bool) error
	Stop() error
	URL() string
	IsLoading() bool
	ExecuteScript(js string) error
	Focus() error
	// ClearSessionData drops cache, cookies and storage of the content's
	// partition.
	ClearSessionData() error
	IsDestroyed() bool
	Destroy() error
}

// Window is a borderless top-level surface.
type Window interface {
	Content
	Show() error
	Bounds() (platform.Rect, error)
	SetBounds(platform.Rect) error
	SetFullscreen(on bool) error
	SetAlwaysOnTop(on bool) error
	SetSkipTaskbar(on bool) error
	// AttachView embeds v into the window. Bounds are relative to the window.
	AttachView(v View) error
	DetachView(v View) error
	// RaiseView makes v the topmost attached view.
	RaiseView(v View) error
}

// View is an embedded surface owned by a Window.
type View interface {
	Content
	SetBounds(platform.Rect) error
}

// WindowOptions configure a new window. Windows are always created
// frameless and hidden.
type WindowOptions struct {
	Role       Role
	Bounds     platform.Rect
	Partition  string
	Background string
	// Bridge exposes the host bridge to the window's content.
	Bridge bool
}

// ViewOptions configure a new embedded view.
type ViewOptions struct {
	Partition string
	Bridge    bool
}

// Factory creates surfaces.
type Factory interface {
	NewWindow(opts WindowOptions, h Handlers) (Window, error)
	NewView(opts ViewOptions, h Handlers) (View, error)
}

// Live reports whether c is non-nil and not destroyed.
func Live(c Content) bool {
	return c != nil && !c.IsDestroyed()
}

// Lost reports a surface the backend could not keep. A close the user made
// is offered to OnCloseRequested first; a crash is not. EventClosed follows
// while the surface is still live, and markDestroyed runs last.
func Lost(h Handlers, crashed bool, url string, markDestroyed func()) {
	if !crashed && h.OnCloseRequested != nil {
		h.OnCloseRequested()
	}
	if h.OnEvent != nil {
		h.OnEvent(Event{Kind: EventClosed, URL: url})
	}
	markDestroyed()
}
