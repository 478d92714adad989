package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/flickpay/flickpos/internal/cdp"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/surface"
)

// content is one Chromium page target shown in its own X11 window. Window
// and View wrap it.
type content struct {
	f        *Factory
	p        *process
	id       string
	role     surface.Role
	handlers surface.Handlers
	targetID string
	session  cdp.Session
	xid      platform.WindowID
	logger   *slog.Logger

	// Guarded by mu: written from the devtools goroutine, read on the loop.
	mu        sync.Mutex
	url       string
	loading   bool
	destroyed bool
	closing   bool
	ready     bool
	expect    string
	stopWatch func()
}

func (c *content) ID() string { return c.id }

func (c *content) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

func (c *content) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *content) IsDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *content) call(method string, params, result any) error {
	if c.IsDestroyed() {
		return surface.ErrDestroyed
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.f.callTimeout)
	defer cancel()
	return c.session.Call(ctx, method, params, result)
}

func (c *content) LoadURL(u string) error {
	c.mu.Lock()
	c.expect = u
	c.mu.Unlock()
	var res struct {
		ErrorText string `json:"errorText"`
	}
	if err := c.call("Page.navigate", map[string]any{"url": u}, &res); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if res.ErrorText != "" {
		return fmt.Errorf("navigate %s: %s", u, res.ErrorText)
	}
	return nil
}

func (c *content) LoadFile(path string) error {
	return c.LoadURL((&url.URL{Scheme: "file", Path: path}).String())
}

func (c *content) Reload(ignoreCache bool) error {
	return c.call("Page.reload", map[string]any{"ignoreCache": ignoreCache}, nil)
}

func (c *content) Stop() error {
	return c.call("Page.stopLoading", nil, nil)
}

func (c *content) ExecuteScript(js string) error {
	return c.evaluate(js)
}

func (c *content) evaluate(expr string) error {
	var res struct {
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	err := c.call("Runtime.evaluate", map[string]any{
		"expression":   expr,
		"userGesture":  true,
		"awaitPromise": false,
	}, &res)
	if err != nil {
		return err
	}
	if d := res.ExceptionDetails; d != nil {
		if d.Exception != nil && d.Exception.Description != "" {
			return fmt.Errorf("script: %s", d.Exception.Description)
		}
		return fmt.Errorf("script: %s", d.Text)
	}
	return nil
}

func (c *content) Focus() error {
	if err := c.call("Page.bringToFront", nil, nil); err != nil {
		return err
	}
	return c.f.backend.Focus(c.xid)
}

func (c *content) ClearSessionData() error {
	var errs []error
	for _, method := range []string{"Network.clearBrowserCache", "Network.clearBrowserCookies"} {
		if err := c.call(method, nil, nil); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", method, err))
		}
	}
	if origin := originOf(c.URL()); origin != "" {
		err := c.call("Storage.clearDataForOrigin", map[string]any{
			"origin":       origin,
			"storageTypes": "all",
		}, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("clear storage for %s: %w", origin, err))
		}
	}
	return errors.Join(errs...)
}

// Destroy closes the target. Destroying twice is a no-op.
func (c *content) Destroy() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	stop := c.stopWatch
	c.stopWatch = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.f.callTimeout)
	defer cancel()
	err := c.p.conn.Call(ctx, "", "Target.closeTarget", map[string]any{"targetId": c.targetID}, nil)
	c.markDestroyed()
	if errors.Is(err, cdp.ErrClosed) {
		return nil
	}
	return err
}

func (c *content) markDestroyed() {
	c.mu.Lock()
	c.destroyed = true
	c.mu.Unlock()
	c.p.unregister(c)
	c.f.forget(c)
}

// setup enables the domains the surface contract needs on a fresh session.
func (c *content) setup(ctx context.Context, bridge bool) error {
	steps := []struct {
		method string
		params any
	}{
		{"Page.enable", nil},
		{"Runtime.enable", nil},
		{"Page.setLifecycleEventsEnabled", map[string]any{"enabled": true}},
		{"Runtime.addBinding", map[string]any{"name": bindingName}},
		{"Page.addScriptToEvaluateOnNewDocument", map[string]any{
			"source": hostScript(c.f.scheme, bridge, c.f.methods),
		}},
		{"Fetch.enable", map[string]any{
			"patterns": []map[string]any{{"urlPattern": "*", "resourceType": "Document", "requestStage": "Request"}},
		}},
	}
	for _, s := range steps {
		if err := c.session.Call(ctx, s.method, s.params, nil); err != nil {
			return fmt.Errorf("%s: %w", s.method, err)
		}
	}
	return nil
}

// handleEvent runs on the devtools goroutine. Handler calls are posted to
// the loop.
func (c *content) handleEvent(ev cdp.Event) {
	switch ev.Method {
	case "Page.frameStartedLoading":
		if c.isMainFrame(ev, "frameId") {
			c.setLoading(true)
			c.emit(surface.EventLoadStarted)
		}
	case "Page.frameNavigated":
		var params struct {
			Frame struct {
				ID       string `json:"id"`
				ParentID string `json:"parentId"`
				URL      string `json:"url"`
			} `json:"frame"`
		}
		if ev.Unmarshal(&params) == nil && params.Frame.ParentID == "" {
			c.mu.Lock()
			c.url = params.Frame.URL
			c.mu.Unlock()
		}
	case "Page.frameStoppedLoading":
		if c.isMainFrame(ev, "frameId") {
			c.setLoading(false)
		}
	case "Page.domContentEventFired":
		c.readyOnce()
	case "Page.loadEventFired":
		c.setLoading(false)
		c.readyOnce()
		c.emit(surface.EventLoadFinished)
	case "Page.frameRequestedNavigation":
		c.onRequestedNavigation(ev)
	case "Fetch.requestPaused":
		c.onRequestPaused(ev)
	case "Runtime.bindingCalled":
		c.onBinding(ev)
	case "Target.targetCrashed", "Inspector.targetCrashed":
		c.lost(true)
	case "Target.targetDestroyed", "Target.detachedFromTarget", "Inspector.detached":
		c.lost(false)
	}
}

func (c *content) isMainFrame(ev cdp.Event, key string) bool {
	var params map[string]json.RawMessage
	if ev.Unmarshal(&params) != nil {
		return false
	}
	var id string
	if json.Unmarshal(params[key], &id) != nil {
		return false
	}
	return id == c.targetID
}

func (c *content) setLoading(on bool) {
	c.mu.Lock()
	c.loading = on
	c.mu.Unlock()
}

func (c *content) readyOnce() {
	c.mu.Lock()
	first := !c.ready
	c.ready = true
	c.mu.Unlock()
	if first {
		c.emit(surface.EventReadyToShow)
	}
}

func (c *content) emit(kind surface.EventKind) {
	url := c.URL()
	c.f.sched.Post(func() {
		if c.IsDestroyed() || c.handlers.OnEvent == nil {
			return
		}
		c.handlers.OnEvent(surface.Event{Kind: kind, URL: url})
	})
}

// lost handles a target that went away without Destroy. crashed is false
// when the page was closed from outside the kiosk.
func (c *content) lost(crashed bool) {
	c.mu.Lock()
	if c.closing || c.destroyed {
		c.mu.Unlock()
		return
	}
	c.closing = true
	stop := c.stopWatch
	c.stopWatch = nil
	c.mu.Unlock()
	if stop != nil {
		stop()
	}

	url := c.URL()
	c.f.sched.Post(func() {
		surface.Lost(c.handlers, crashed, url, c.markDestroyed)
	})
}

// navigate asks the handler on the loop and reports the answer to done
// off the loop.
func (c *content) navigate(req surface.NavigationRequest, done func(allow bool) error) {
	c.f.sched.Post(func() {
		allow := true
		if c.IsDestroyed() {
			allow = false
		} else if c.handlers.OnNavigate != nil {
			allow = c.handlers.OnNavigate(req)
		}
		c.f.sched.Async(func() error { return done(allow) }, func(err error) {
			if err != nil {
				c.logger.Debug("navigation response failed", "url", req.URL, "error", err)
			}
		})
	})
}

func (c *content) onRequestPaused(ev cdp.Event) {
	var params struct {
		RequestID string `json:"requestId"`
		FrameID   string `json:"frameId"`
		Request   struct {
			URL string `json:"url"`
		} `json:"request"`
	}
	if err := ev.Unmarshal(&params); err != nil {
		c.logger.Debug("bad requestPaused", "error", err)
		return
	}
	resume := func(allow bool) error {
		if allow {
			return c.call("Fetch.continueRequest", map[string]any{"requestId": params.RequestID}, nil)
		}
		return c.call("Fetch.failRequest", map[string]any{"requestId": params.RequestID, "errorReason": "Aborted"}, nil)
	}

	c.mu.Lock()
	ours := params.Request.URL == c.expect
	if ours {
		c.expect = ""
	}
	c.mu.Unlock()
	if ours || params.FrameID != c.targetID {
		go func() {
			if err := resume(true); err != nil {
				c.logger.Debug("continue request", "error", err)
			}
		}()
		return
	}
	c.navigate(surface.NavigationRequest{URL: params.Request.URL, Kind: surface.NavigateInPlace}, resume)
}

// onRequestedNavigation catches navigations to schemes the network stack
// never sees, such as the pseudo-command scheme.
func (c *content) onRequestedNavigation(ev cdp.Event) {
	var params struct {
		FrameID string `json:"frameId"`
		URL     string `json:"url"`
	}
	if ev.Unmarshal(&params) != nil || params.FrameID != c.targetID {
		return
	}
	if !strings.EqualFold(schemeOf(params.URL), c.f.scheme) {
		return
	}
	c.navigate(surface.NavigationRequest{URL: params.URL, Kind: surface.NavigateInPlace}, func(bool) error { return nil })
}

func (c *content) onBinding(ev cdp.Event) {
	var params struct {
		Name    string `json:"name"`
		Payload string `json:"payload"`
	}
	if ev.Unmarshal(&params) != nil || params.Name != bindingName {
		return
	}
	msg, err := decodePayload(params.Payload)
	if err != nil {
		c.logger.Debug("ignoring binding payload", "error", err)
		return
	}

	switch msg.Kind {
	case payloadNavigate:
		c.navigate(surface.NavigationRequest{URL: msg.URL, Kind: surface.NavigateInPlace}, func(allow bool) error {
			if allow && !strings.EqualFold(schemeOf(msg.URL), c.f.scheme) {
				return c.LoadURL(msg.URL)
			}
			return nil
		})
	case payloadPopup:
		// No second page is created here: an allowed popup replaces the
		// current document.
		c.navigate(surface.NavigationRequest{URL: msg.URL, Kind: surface.OpenPopup}, func(allow bool) error {
			if allow {
				return c.LoadURL(msg.URL)
			}
			return nil
		})
	case payloadCall:
		call := surface.BridgeCall{Method: msg.Method, Args: msg.Args}
		c.f.sched.Post(func() {
			if c.IsDestroyed() {
				return
			}
			var result any
			err := fmt.Errorf("bridge not available")
			if c.handlers.OnBridge != nil {
				result, err = c.handlers.OnBridge(call)
			}
			expr := replyExpression(msg.ID, result, err)
			c.f.sched.Async(func() error { return c.evaluate(expr) }, func(err error) {
				if err != nil {
					c.logger.Debug("bridge reply failed", "method", call.Method, "error", err)
				}
			})
		})
	}
}

// watchGeometry reports moves and resizes of the X11 window.
func (c *content) watchGeometry() {
	last, _ := c.f.backend.Geometry(c.xid)
	var mu sync.Mutex
	stop, err := c.f.backend.WatchGeometry(c.xid, func(r platform.Rect) {
		mu.Lock()
		prev := last
		last = r
		mu.Unlock()
		switch {
		case r.Width != prev.Width || r.Height != prev.Height:
			c.emit(surface.EventResized)
		case r.X != prev.X || r.Y != prev.Y:
			c.emit(surface.EventMoved)
		}
	})
	if err != nil {
		c.logger.Debug("geometry watch unavailable", "error", err)
		return
	}
	c.mu.Lock()
	c.stopWatch = stop
	c.mu.Unlock()
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func schemeOf(raw string) string {
	i := strings.Index(raw, ":")
	if i <= 0 {
		return ""
	}
	return raw[:i]
}
