// Package browser renders surfaces with Chromium. Each partition runs in
// its own browser process with its own profile directory, driven over the
// DevTools protocol. Every page gets a dedicated X11 window which the
// platform backend positions, stacks and embeds.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flickpay/flickpos/internal/cdp"
	"github.com/flickpay/flickpos/internal/loop"
	"github.com/flickpay/flickpos/internal/platform"
	"github.com/flickpay/flickpos/internal/surface"
)

// Options configure a Factory.
type Options struct {
	// Binary is the Chromium executable. Empty searches Candidates.
	Binary string
	// Args are appended to every browser command line.
	Args []string
	// ProfileRoot holds one profile directory per partition.
	ProfileRoot string
	// Scheme is the pseudo-command scheme links are rerouted for.
	Scheme string
	// Methods are published on the content bridge.
	Methods []string

	Backend platform.Backend
	Sched   loop.Scheduler
	Logger  *slog.Logger

	StartTimeout time.Duration
	CallTimeout  time.Duration
	// FindTimeout bounds the wait for a new page's X11 window.
	FindTimeout time.Duration
}

// Factory implements surface.Factory.
type Factory struct {
	binary      string
	args        []string
	root        string
	scheme      string
	methods     []string
	backend     platform.Backend
	sched       loop.Scheduler
	logger      *slog.Logger
	start       time.Duration
	callTimeout time.Duration
	find        time.Duration

	mu        sync.Mutex
	processes map[string]*process
	contents  map[*content]struct{}
	closed    bool
}

// NewFactory resolves the browser binary. Processes start lazily, one per
// partition, on first use.
func NewFactory(opts Options) (*Factory, error) {
	if opts.Backend == nil || opts.Sched == nil {
		return nil, errors.New("browser factory needs a backend and a scheduler")
	}
	binary, err := ResolveBinary(opts.Binary)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	f := &Factory{
		binary:      binary,
		args:        opts.Args,
		root:        opts.ProfileRoot,
		scheme:      opts.Scheme,
		methods:     opts.Methods,
		backend:     opts.Backend,
		sched:       opts.Sched,
		logger:      logger.With("component", "browser"),
		start:       orDefault(opts.StartTimeout, 20*time.Second),
		callTimeout: orDefault(opts.CallTimeout, 10*time.Second),
		find:        orDefault(opts.FindTimeout, 5*time.Second),
		processes:   make(map[string]*process),
		contents:    make(map[*content]struct{}),
	}
	if f.scheme == "" {
		f.scheme = "pos"
	}
	return f, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Binary returns the resolved browser executable.
func (f *Factory) Binary() string { return f.binary }

// NewWindow opens a hidden top-level page.
func (f *Factory) NewWindow(opts surface.WindowOptions, h surface.Handlers) (surface.Window, error) {
	c, err := f.open(opts.Partition, opts.Role, opts.Bridge, h)
	if err != nil {
		return nil, err
	}
	w := &Window{content: c}
	if !opts.Bounds.Empty() {
		if err := f.backend.MoveResize(c.xid, opts.Bounds); err != nil {
			c.logger.Debug("initial bounds", "error", err)
		}
	}
	if opts.Background != "" {
		bg := fmt.Sprintf("document.documentElement && (document.documentElement.style.background = %s)", jsString(opts.Background))
		if err := c.evaluate(bg); err != nil {
			c.logger.Debug("initial background", "error", err)
		}
	}
	c.watchGeometry()
	return w, nil
}

// NewView opens a hidden page to be embedded with Window.AttachView.
func (f *Factory) NewView(opts surface.ViewOptions, h surface.Handlers) (surface.View, error) {
	c, err := f.open(opts.Partition, surface.RoleModal, opts.Bridge, h)
	if err != nil {
		return nil, err
	}
	return &View{content: c}, nil
}

func (f *Factory) open(partition string, role surface.Role, bridge bool, h surface.Handlers) (*content, error) {
	p, err := f.process(partition)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.callTimeout+f.find)
	defer cancel()

	var created struct {
		TargetID string `json:"targetId"`
	}
	err = p.conn.Call(ctx, "", "Target.createTarget", map[string]any{
		"url":       "about:blank",
		"newWindow": true,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	var attached struct {
		SessionID string `json:"sessionId"`
	}
	err = p.conn.Call(ctx, "", "Target.attachToTarget", map[string]any{
		"targetId": created.TargetID,
		"flatten":  true,
	}, &attached)
	if err != nil {
		f.closeTarget(p, created.TargetID)
		return nil, fmt.Errorf("attach page: %w", err)
	}

	id := ulid.Make().String()
	c := &content{
		f:        f,
		p:        p,
		id:       id,
		role:     role,
		handlers: h,
		targetID: created.TargetID,
		session:  cdp.Session{Conn: p.conn, ID: attached.SessionID},
		logger:   f.logger.With("surface", id, "role", role),
		url:      "about:blank",
	}
	p.register(c)

	fail := func(err error) (*content, error) {
		p.unregister(c)
		f.closeTarget(p, created.TargetID)
		return nil, err
	}
	if err := c.setup(ctx, bridge); err != nil {
		return fail(err)
	}
	xid, err := f.findWindow(ctx, c)
	if err != nil {
		return fail(err)
	}
	c.xid = xid
	if err := f.backend.Unmap(xid); err != nil {
		c.logger.Debug("hide new window", "error", err)
	}

	f.mu.Lock()
	f.contents[c] = struct{}{}
	f.mu.Unlock()
	c.logger.Debug("page created", "target", created.TargetID, "window", xid)
	return c, nil
}

// findWindow titles the blank page with a unique marker and waits for the
// window manager to list it.
func (f *Factory) findWindow(ctx context.Context, c *content) (platform.WindowID, error) {
	marker := "flickpos-" + c.id
	if err := c.session.Call(ctx, "Runtime.evaluate", map[string]any{
		"expression": "document.title = " + jsString(marker),
	}, nil); err != nil {
		return 0, fmt.Errorf("mark page: %w", err)
	}
	deadline := time.Now().Add(f.find)
	for {
		xid, err := f.backend.FindWindowByTitle(marker)
		if err == nil && xid != 0 {
			return xid, nil
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("window for page %s did not appear within %s", c.id, f.find)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (f *Factory) process(partition string) (*process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.New("browser factory closed")
	}
	if p, ok := f.processes[partition]; ok {
		select {
		case <-p.conn.Done():
			delete(f.processes, partition)
		default:
			return p, nil
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.start)
	defer cancel()
	p, err := launch(ctx, f.binary, profileDir(f.root, partition), partition, f.args, f.start, f.logger)
	if err != nil {
		return nil, fmt.Errorf("launch browser for %s: %w", partition, err)
	}
	f.processes[partition] = p
	go f.watchProcess(p)
	return p, nil
}

// watchProcess reports every page of a dead browser as lost.
func (f *Factory) watchProcess(p *process) {
	<-p.conn.Done()
	p.mu.Lock()
	var orphans []*content
	for _, c := range p.byTarget {
		orphans = append(orphans, c)
	}
	p.mu.Unlock()
	if len(orphans) > 0 {
		f.logger.Warn("browser connection lost", "partition", p.partition, "pages", len(orphans), "error", p.conn.Err())
	}
	for _, c := range orphans {
		c.lost(true)
	}
}

func (f *Factory) closeTarget(p *process, targetID string) {
	ctx, cancel := context.WithTimeout(context.Background(), f.callTimeout)
	defer cancel()
	if err := p.conn.Call(ctx, "", "Target.closeTarget", map[string]any{"targetId": targetID}, nil); err != nil {
		f.logger.Debug("close page", "target", targetID, "error", err)
	}
}

func (f *Factory) forget(c *content) {
	f.mu.Lock()
	delete(f.contents, c)
	f.mu.Unlock()
}

// Close stops every browser process. Surfaces still open are not
// notified.
func (f *Factory) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	procs := f.processes
	f.processes = nil
	for c := range f.contents {
		c.mu.Lock()
		c.closing = true
		c.mu.Unlock()
	}
	f.mu.Unlock()

	for _, p := range procs {
		p.kill()
	}
}

// Window is a top-level page window.
type Window struct {
	*content

	mu    sync.Mutex
	views map[*View]struct{}
}

func (w *Window) Show() error {
	if w.IsDestroyed() {
		return surface.ErrDestroyed
	}
	if err := w.f.backend.Map(w.xid); err != nil {
		return err
	}
	return w.f.backend.Raise(w.xid)
}

func (w *Window) Bounds() (platform.Rect, error) {
	if w.IsDestroyed() {
		return platform.Rect{}, surface.ErrDestroyed
	}
	return w.f.backend.Geometry(w.xid)
}

func (w *Window) SetBounds(r platform.Rect) error {
	if w.IsDestroyed() {
		return surface.ErrDestroyed
	}
	return w.f.backend.MoveResize(w.xid, r)
}

func (w *Window) SetFullscreen(on bool) error {
	if w.IsDestroyed() {
		return surface.ErrDestroyed
	}
	return w.f.backend.SetFullscreen(w.xid, on)
}

func (w *Window) SetAlwaysOnTop(on bool) error {
	if w.IsDestroyed() {
		return surface.ErrDestroyed
	}
	return w.f.backend.SetAlwaysOnTop(w.xid, on)
}

func (w *Window) SetSkipTaskbar(on bool) error {
	if w.IsDestroyed() {
		return surface.ErrDestroyed
	}
	return w.f.backend.SetSkipTaskbar(w.xid, on)
}

func (w *Window) AttachView(sv surface.View) error {
	v, err := w.own(sv)
	if err != nil {
		return err
	}
	if err := w.f.backend.Embed(v.xid, w.xid, v.bounds()); err != nil {
		return fmt.Errorf("embed view: %w", err)
	}
	v.setParent(w)
	w.mu.Lock()
	if w.views == nil {
		w.views = make(map[*View]struct{})
	}
	w.views[v] = struct{}{}
	w.mu.Unlock()
	return nil
}

func (w *Window) DetachView(sv surface.View) error {
	v, err := w.own(sv)
	if err != nil {
		return err
	}
	w.mu.Lock()
	_, ok := w.views[v]
	delete(w.views, v)
	w.mu.Unlock()
	if !ok {
		return nil
	}
	v.setParent(nil)
	if v.IsDestroyed() {
		return nil
	}
	return w.f.backend.Unembed(v.xid)
}

func (w *Window) RaiseView(sv surface.View) error {
	v, err := w.own(sv)
	if err != nil {
		return err
	}
	return w.f.backend.Raise(v.xid)
}

func (w *Window) own(sv surface.View) (*View, error) {
	if w.IsDestroyed() {
		return nil, surface.ErrDestroyed
	}
	v, ok := sv.(*View)
	if !ok || v.f != w.f {
		return nil, fmt.Errorf("view %T was not created by this factory", sv)
	}
	if v.IsDestroyed() {
		return nil, surface.ErrDestroyed
	}
	return v, nil
}

// View is a page window reparented into a Window.
type View struct {
	*content

	vmu    sync.Mutex
	rect   platform.Rect
	parent *Window
}

func (v *View) SetBounds(r platform.Rect) error {
	if v.IsDestroyed() {
		return surface.ErrDestroyed
	}
	v.vmu.Lock()
	v.rect = r
	attached := v.parent != nil
	v.vmu.Unlock()
	if !attached {
		return nil
	}
	return v.f.backend.PlaceChild(v.xid, r)
}

func (v *View) bounds() platform.Rect {
	v.vmu.Lock()
	defer v.vmu.Unlock()
	return v.rect
}

func (v *View) setParent(w *Window) {
	v.vmu.Lock()
	v.parent = w
	v.vmu.Unlock()
}
