package hotkeys

import (
	"fmt"
	"strings"
)

var modifierNames = map[string]string{
	"ctrl":        "Control",
	"control":     "Control",
	"cmdorctrl":   "Control",
	"commandctrl": "Control",
	"alt":         "Mod1",
	"option":      "Mod1",
	"mod1":        "Mod1",
	"shift":       "Shift",
	"super":       "Mod4",
	"meta":        "Mod4",
	"mod4":        "Mod4",
}

var keyNames = map[string]string{
	"esc":    "Escape",
	"escape": "Escape",
	"enter":  "Return",
	"return": "Return",
	"space":  "space",
	"tab":    "Tab",
	"delete": "Delete",
}

// ParseAccelerator converts "Ctrl+Alt+S" to xgbutil's "Control-Mod1-s".
// Strings already in xgbutil notation are returned unchanged.
func ParseAccelerator(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty key sequence")
	}
	if !strings.Contains(s, "+") {
		if k, ok := keyNames[strings.ToLower(s)]; ok {
			return k, nil
		}
		return s, nil
	}

	parts := strings.Split(s, "+")
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return "", fmt.Errorf("invalid key sequence %q", s)
		}
		last := i == len(parts)-1
		if !last {
			mod, ok := modifierNames[strings.ToLower(part)]
			if !ok {
				return "", fmt.Errorf("unknown modifier %q in %q", part, s)
			}
			out = append(out, mod)
			continue
		}
		if k, ok := keyNames[strings.ToLower(part)]; ok {
			out = append(out, k)
		} else if len(part) == 1 {
			out = append(out, strings.ToLower(part))
		} else {
			out = append(out, part)
		}
	}
	return strings.Join(out, "-"), nil
}
