package modal

import "fmt"

// BackdropID is the DOM id of the host-owned backdrop element.
const BackdropID = "__flickpos_backdrop"

// backdropScript draws the dimmed, blurred backdrop over the operator
// document. It is idempotent. Clicking it or pressing Escape asks the host
// to close the overlay through the bridge.
var backdropScript = fmt.Sprintf(`(() => {
  const id = %[1]q;
  if (document.getElementById(id)) return;
  const close = () => { try { window.flickpos && window.flickpos.closeSettings(); } catch (_) {} };
  const el = document.createElement("div");
  el.id = id;
  el.setAttribute("data-owner", "flickpos");
  Object.assign(el.style, {
    position: "fixed", inset: "0", zIndex: "2147483646",
    background: "rgba(0, 0, 0, 0.45)",
    backdropFilter: "blur(4px)", webkitBackdropFilter: "blur(4px)",
  });
  el.addEventListener("click", close);
  const onKey = (e) => { if (e.key === "Escape") { e.preventDefault(); e.stopPropagation(); close(); } };
  window.__flickposBackdropKey = onKey;
  window.addEventListener("keydown", onKey, true);
  (document.body || document.documentElement).appendChild(el);
})();`, BackdropID)

// removeBackdropScript undoes backdropScript.
var removeBackdropScript = fmt.Sprintf(`(() => {
  const el = document.getElementById(%[1]q);
  if (el) el.remove();
  if (window.__flickposBackdropKey) {
    window.removeEventListener("keydown", window.__flickposBackdropKey, true);
    delete window.__flickposBackdropKey;
  }
})();`, BackdropID)

// focusScript focuses the PIN page's hidden input, or the first focusable
// control for other pages.
func focusScript(mode Mode) string {
	return fmt.Sprintf(`(() => {
  const pinMode = %t;
  const pick = () => {
    if (pinMode) {
      const hidden = document.getElementById("hidden");
      if (hidden) return hidden;
    }
    return document.querySelector('input:not([type="hidden"]):not([disabled]), select, textarea, button, [tabindex]:not([tabindex="-1"])');
  };
  const el = pick();
  if (el && typeof el.focus === "function") el.focus();
})();`, mode == ModePin)
}
