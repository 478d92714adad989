// Package hotkeys binds the kiosk's global keyboard shortcuts on the X11
// root window.
package hotkeys

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/flickpay/flickpos/internal/x11"
)

// Binding is a named shortcut. Keys accepts either xgbutil notation
// ("Control-Mod1-s") or accelerator notation ("Ctrl+Alt+S").
type Binding struct {
	Name   string
	Keys   string
	Action func()
}

// Handler manages global keyboard shortcuts. Callbacks run on the X11
// event goroutine; Actions are expected to hand work to the event loop.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler.
func NewHandler(conn *x11.Connection, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(conn.XUtil)
	})
	return &Handler{
		xu:     conn.XUtil,
		root:   conn.Root,
		logger: logger.With("component", "hotkeys"),
	}
}

// Register binds every binding. A failing binding is logged and skipped so
// one grabbed key does not cost the others.
func (h *Handler) Register(bindings []Binding) error {
	var failed int
	for _, b := range bindings {
		if b.Keys == "" {
			continue
		}
		if err := h.RegisterFunc(b.Keys, b.Action); err != nil {
			failed++
			h.logger.Warn("shortcut unavailable", "name", b.Name, "keys", b.Keys, "error", err)
			continue
		}
		h.logger.Debug("shortcut bound", "name", b.Name, "keys", b.Keys)
	}
	if failed == len(bindings) && failed > 0 {
		return fmt.Errorf("no shortcut could be bound")
	}
	return nil
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	keys, err := ParseAccelerator(keySequence)
	if err != nil {
		return err
	}
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keys, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
