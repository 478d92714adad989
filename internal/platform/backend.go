package platform

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Display describes a physical display.
type Display struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Bounds  Rect   `json:"bounds"`
	Primary bool   `json:"primary"`
}

// Backend abstracts the window-system operations the kiosk needs.
type Backend interface {
	Displays() ([]Display, error)
	// WatchDisplays calls fn on every topology change notification. fn may
	// run on any goroutine.
	WatchDisplays(fn func()) error

	FindWindowByTitle(substring string) (WindowID, error)
	Map(windowID WindowID) error
	Unmap(windowID WindowID) error
	Raise(windowID WindowID) error
	Focus(windowID WindowID) error
	MoveResize(windowID WindowID, bounds Rect) error
	Geometry(windowID WindowID) (Rect, error)
	// WatchGeometry calls fn when the window is moved or resized. The
	// returned func stops the watch.
	WatchGeometry(windowID WindowID, fn func(Rect)) (func(), error)

	SetAlwaysOnTop(windowID WindowID, on bool) error
	SetFullscreen(windowID WindowID, on bool) error
	SetSkipTaskbar(windowID WindowID, on bool) error

	// Embed reparents child into parent at bounds relative to parent.
	Embed(child, parent WindowID, bounds Rect) error
	// Unembed returns child to the root window and hides it.
	Unembed(child WindowID) error
	// PlaceChild repositions an embedded child relative to its parent.
	PlaceChild(child WindowID, bounds Rect) error
}
