package hotkeys

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Toggle is a shortcut that is only grabbed while armed, so the key keeps
// reaching focused content the rest of the time. The callback is attached
// once; Arm and Disarm only grab and ungrab the key.
type Toggle struct {
	h    *Handler
	keys string

	mu       sync.Mutex
	attached bool
	armed    bool
	mods     uint16
	keycodes []xproto.Keycode
	fn       func()
}

// Toggle returns an unarmed toggle for keySequence.
func (h *Handler) Toggle(keySequence string) *Toggle {
	return &Toggle{h: h, keys: keySequence}
}

// Arm grabs the key and routes presses to fn. Arming an armed toggle
// replaces fn.
func (t *Toggle) Arm(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.fn = fn
	if t.armed {
		return nil
	}
	if err := t.attachLocked(); err != nil {
		return err
	}
	for _, kc := range t.keycodes {
		if err := keybind.GrabChecked(t.h.xu, t.h.root, t.mods, kc); err != nil {
			t.ungrabLocked()
			return fmt.Errorf("grab %s: %w", t.keys, err)
		}
	}
	t.armed = true
	return nil
}

// Disarm releases the grab.
func (t *Toggle) Disarm() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed {
		return nil
	}
	t.ungrabLocked()
	t.armed = false
	t.fn = nil
	return nil
}

func (t *Toggle) attachLocked() error {
	if t.attached {
		return nil
	}
	keys, err := ParseAccelerator(t.keys)
	if err != nil {
		return err
	}
	mods, keycodes, err := keybind.ParseString(t.h.xu, keys)
	if err != nil {
		return err
	}
	err = keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		t.mu.Lock()
		fn := t.fn
		armed := t.armed
		t.mu.Unlock()
		if armed && fn != nil {
			fn()
		}
	}).Connect(t.h.xu, t.h.root, keys, false)
	if err != nil {
		return err
	}
	t.mods = mods
	t.keycodes = keycodes
	t.attached = true
	return nil
}

func (t *Toggle) ungrabLocked() {
	for _, kc := range t.keycodes {
		keybind.Ungrab(t.h.xu, t.h.root, t.mods, kc)
	}
}
