// Package surfacetest provides in-memory surfaces for orchestration tests.
// Nothing happens on its own: tests drive loads, events, navigation and
// bridge calls explicitly.
package surfacetest

import (
	"encoding/json"
	"fmt"

	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/surface"
)

// Factory records every surface it creates.
type Factory struct {
	Windows []*Window
	Views   []*View

	// WindowErr, when set, fails the next NewWindow call.
	WindowErr error
	// ViewErr, when set, fails the next NewView call.
	ViewErr error

	seq int
}

var _ surface.Factory = (*Factory)(nil)

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) NewWindow(opts surface.WindowOptions, h surface.Handlers) (surface.Window, error) {
	if err := f.WindowErr; err != nil {
		f.WindowErr = nil
		return nil, err
	}
	f.seq++
	w := &Window{
		Content: Content{id: fmt.Sprintf("%s-%d", opts.Role, f.seq), handlers: h},
		Opts:    opts,
		Rect:    opts.Bounds,
	}
	f.Windows = append(f.Windows, w)
	return w, nil
}

func (f *Factory) NewView(opts surface.ViewOptions, h surface.Handlers) (surface.View, error) {
	if err := f.ViewErr; err != nil {
		f.ViewErr = nil
		return nil, err
	}
	f.seq++
	v := &View{
		Content: Content{id: fmt.Sprintf("view-%d", f.seq), handlers: h},
		Opts:    opts,
	}
	f.Views = append(f.Views, v)
	return v, nil
}

// LiveWindows returns windows that have not been destroyed.
func (f *Factory) LiveWindows() []*Window {
	var out []*Window
	for _, w := range f.Windows {
		if !w.destroyed {
			out = append(out, w)
		}
	}
	return out
}

// LiveViews returns views that have not been destroyed.
func (f *Factory) LiveViews() []*View {
	var out []*View
	for _, v := range f.Views {
		if !v.destroyed {
			out = append(out, v)
		}
	}
	return out
}

// Live returns the most recent live window with role, or nil.
func (f *Factory) Live(role surface.Role) *Window {
	for i := len(f.Windows) - 1; i >= 0; i-- {
		if w := f.Windows[i]; !w.destroyed && w.Opts.Role == role {
			return w
		}
	}
	return nil
}

// Content is the shared fake behaviour of windows and views.
type Content struct {
	id       string
	handlers surface.Handlers

	url       string
	loading   bool
	destroyed bool

	Loads     []string
	Scripts   []string
	Reloads   int
	Stops     int
	Focuses   int
	Cleared   int
	LoadErr   error
	ScriptErr error
}

func (c *Content) ID() string { return c.id }

func (c *Content) LoadURL(url string) error {
	if c.destroyed {
		return surface.ErrDestroyed
	}
	if c.LoadErr != nil {
		return c.LoadErr
	}
	c.url = url
	c.loading = true
	c.Loads = append(c.Loads, url)
	return nil
}

func (c *Content) LoadFile(path string) error {
	return c.LoadURL("file://" + path)
}

func (c *Content) Reload(bool) error {
	if c.destroyed {
		return surface.ErrDestroyed
	}
	c.Reloads++
	c.loading = true
	return nil
}

func (c *Content) Stop() error {
	if c.destroyed {
		return surface.ErrDestroyed
	}
	c.Stops++
	c.loading = false
	return nil
}

func (c *Content) URL() string { return c.url }

func (c *Content) IsLoading() bool { return c.loading }

func (c *Content) ExecuteScript(js string) error {
	if c.destroyed {
		return surface.ErrDestroyed
	}
	c.Scripts = append(c.Scripts, js)
	return c.ScriptErr
}

func (c *Content) Focus() error {
	if c.destroyed {
		return surface.ErrDestroyed
	}
	c.Focuses++
	return nil
}

func (c *Content) ClearSessionData() error {
	if c.destroyed {
		return surface.ErrDestroyed
	}
	c.Cleared++
	return nil
}

func (c *Content) IsDestroyed() bool { return c.destroyed }

func (c *Content) Destroy() error {
	c.destroyed = true
	c.loading = false
	return nil
}

// Emit delivers an event to the surface's handler.
func (c *Content) Emit(kind surface.EventKind) {
	if c.handlers.OnEvent != nil {
		c.handlers.OnEvent(surface.Event{Kind: kind, URL: c.url})
	}
}

// StartNavigation simulates content navigating to url on its own.
func (c *Content) StartNavigation(url string) {
	c.url = url
	c.loading = true
	c.Emit(surface.EventLoadStarted)
}

// FinishLoad completes the current load.
func (c *Content) FinishLoad() {
	c.loading = false
	c.Emit(surface.EventLoadFinished)
}

// Navigate asks the handler whether content may navigate to url.
func (c *Content) Navigate(url string, kind surface.NavigationKind) bool {
	if c.handlers.OnNavigate == nil {
		return true
	}
	return c.handlers.OnNavigate(surface.NavigationRequest{URL: url, Kind: kind})
}

// RequestClose simulates a user or window-manager close.
func (c *Content) RequestClose() bool {
	if c.handlers.OnCloseRequested == nil {
		return true
	}
	return c.handlers.OnCloseRequested()
}

// Lose simulates the backend losing the surface, in the order the real
// backend reports it.
func (c *Content) Lose(crashed bool) {
	surface.Lost(c.handlers, crashed, c.url, func() {
		c.destroyed = true
		c.loading = false
	})
}

// Call invokes a bridge method with args encoded as JSON.
func (c *Content) Call(method string, args any) (any, error) {
	if c.handlers.OnBridge == nil {
		return nil, fmt.Errorf("no bridge")
	}
	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return c.handlers.OnBridge(surface.BridgeCall{Method: method, Args: raw})
}

// Window is a fake top-level window.
type Window struct {
	Content
	Opts surface.WindowOptions

	Rect        platform.Rect
	Shown       int
	Fullscreen  bool
	OnTop       bool
	OnTopCalls  int
	SkipTaskbar bool
	Attached    []*View
	Raised      *View
}

var _ surface.Window = (*Window)(nil)

func (w *Window) Show() error {
	if w.destroyed {
		return surface.ErrDestroyed
	}
	w.Shown++
	return nil
}

func (w *Window) Bounds() (platform.Rect, error) {
	if w.destroyed {
		return platform.Rect{}, surface.ErrDestroyed
	}
	return w.Rect, nil
}

func (w *Window) SetBounds(r platform.Rect) error {
	if w.destroyed {
		return surface.ErrDestroyed
	}
	w.Rect = r
	return nil
}

func (w *Window) SetFullscreen(on bool) error {
	if w.destroyed {
		return surface.ErrDestroyed
	}
	w.Fullscreen = on
	return nil
}

func (w *Window) SetAlwaysOnTop(on bool) error {
	if w.destroyed {
		return surface.ErrDestroyed
	}
	w.OnTop = on
	w.OnTopCalls++
	return nil
}

func (w *Window) SetSkipTaskbar(on bool) error {
	if w.destroyed {
		return surface.ErrDestroyed
	}
	w.SkipTaskbar = on
	return nil
}

func (w *Window) AttachView(v surface.View) error {
	if w.destroyed {
		return surface.ErrDestroyed
	}
	fv := v.(*View)
	for _, a := range w.Attached {
		if a == fv {
			return nil
		}
	}
	w.Attached = append(w.Attached, fv)
	fv.Parent = w
	return nil
}

func (w *Window) DetachView(v surface.View) error {
	if w.destroyed {
		return surface.ErrDestroyed
	}
	fv := v.(*View)
	kept := w.Attached[:0]
	for _, a := range w.Attached {
		if a != fv {
			kept = append(kept, a)
		}
	}
	w.Attached = kept
	if w.Raised == fv {
		w.Raised = nil
	}
	fv.Parent = nil
	return nil
}

func (w *Window) RaiseView(v surface.View) error {
	if w.destroyed {
		return surface.ErrDestroyed
	}
	w.Raised = v.(*View)
	return nil
}

// View is a fake embedded view.
type View struct {
	Content
	Opts   surface.ViewOptions
	Rect   platform.Rect
	Parent *Window
}

var _ surface.View = (*View)(nil)

func (v *View) SetBounds(r platform.Rect) error {
	if v.destroyed {
		return surface.ErrDestroyed
	}
	v.Rect = r
	return nil
}
