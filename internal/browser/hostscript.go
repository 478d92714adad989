package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// bindingName is the Runtime binding every page reports through.
const bindingName = "__flickposHost"

// BridgeGlobals are the names the bridge object is published under. The
// second is what the web settings panel was written against.
var BridgeGlobals = []string{"flickpos", "flickpayConfig"}

const hostScriptTemplate = `(() => {
  if (window.__flickposHostInstalled) return;
  window.__flickposHostInstalled = true;
  const binding = window[%[1]s];
  const post = (msg) => { try { binding(JSON.stringify(msg)); } catch (_) {} };
  const pending = new Map();
  let seq = 0;
  window.__flickposResolve = (id, ok, value) => {
    const p = pending.get(id);
    if (!p) return;
    pending.delete(id);
    if (ok) p.resolve(value); else p.reject(new Error(String(value)));
  };
  if (%[2]t) {
    const api = {};
    for (const m of %[3]s) {
      api[m] = (...args) => new Promise((resolve, reject) => {
        const id = ++seq;
        pending.set(id, { resolve, reject });
        post({ kind: "call", id, method: m, args });
      });
    }
    Object.freeze(api);
    for (const name of %[4]s) {
      Object.defineProperty(window, name, { value: api, configurable: false });
    }
  }
  const scheme = %[5]s;
  document.addEventListener("click", (e) => {
    const a = e.target && e.target.closest ? e.target.closest("a[href]") : null;
    if (!a) return;
    const href = a.href;
    if (href.toLowerCase().startsWith(scheme)) {
      e.preventDefault();
      e.stopPropagation();
      post({ kind: "navigate", url: href });
      return;
    }
    if (a.target === "_blank") {
      e.preventDefault();
      post({ kind: "popup", url: href });
    }
  }, true);
  window.open = (url) => {
    if (url) post({ kind: "popup", url: new URL(String(url), location.href).href });
    return null;
  };
})();`

// hostScript is evaluated in every new document. It installs the bridge
// stub when bridge is set, and always reroutes pseudo-scheme links and
// popups through the binding.
func hostScript(scheme string, bridge bool, methods []string) string {
	return fmt.Sprintf(hostScriptTemplate,
		jsString(bindingName),
		bridge,
		jsValue(methods),
		jsValue(BridgeGlobals),
		jsString(strings.ToLower(scheme)+":"),
	)
}

// payload is what the host script sends through the binding.
type payload struct {
	Kind   string          `json:"kind"`
	ID     int64           `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Args   json.RawMessage `json:"args,omitempty"`
	URL    string          `json:"url,omitempty"`
}

const (
	payloadCall     = "call"
	payloadNavigate = "navigate"
	payloadPopup    = "popup"
)

func decodePayload(raw string) (payload, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return payload{}, fmt.Errorf("decode binding payload: %w", err)
	}
	switch p.Kind {
	case payloadCall:
		if p.Method == "" {
			return payload{}, fmt.Errorf("bridge call %d has no method", p.ID)
		}
		if len(p.Args) == 0 || string(p.Args) == "null" {
			p.Args = json.RawMessage("[]")
		}
	case payloadNavigate, payloadPopup:
		if p.URL == "" {
			return payload{}, fmt.Errorf("%s request has no url", p.Kind)
		}
	default:
		return payload{}, fmt.Errorf("unknown payload kind %q", p.Kind)
	}
	return p, nil
}

// replyExpression settles a pending bridge promise in the page.
func replyExpression(id int64, result any, callErr error) string {
	if callErr != nil {
		return fmt.Sprintf("window.__flickposResolve && window.__flickposResolve(%d, false, %s)", id, jsString(callErr.Error()))
	}
	return fmt.Sprintf("window.__flickposResolve && window.__flickposResolve(%d, true, %s)", id, jsValue(result))
}

func jsString(s string) string {
	return jsValue(s)
}

// jsValue renders v as a JavaScript literal. Values that cannot be encoded
// become null.
func jsValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
