package kiosk

import (
	"fmt"

	"github.com/flickpay/flickpos/internal/config"
	"github.com/flickpay/flickpos/internal/safe"
)

// fadeScript fades the loader document out before the target replaces it.
func fadeScript(ms int) string {
	return fmt.Sprintf(`(() => {
  try {
    const el = document.documentElement;
    el.style.transition = "opacity %dms ease";
    el.style.opacity = "0";
    const body = document.body;
    (body || el).style.background = (body && getComputedStyle(body).background) || "#000";
  } catch (_) {}
})();`, ms)
}

// boot shows loader.html, then navigates to the target once the loader
// has been visible for the configured duration.
func (m *Manager) boot(s *Surface) {
	s.stopBoot()
	if !fileExists(m.loaderPath) {
		m.navigateTarget(s)
		return
	}
	if err := s.Window.LoadFile(m.loaderPath); err != nil {
		m.logger.Debug("loader failed, loading target", "surface", s.ID, "error", err)
		m.navigateTarget(s)
		return
	}
	s.Boot = BootLoader
	if !s.Window.IsLoading() {
		m.armBoot(s)
	}
}

// armBoot schedules the fade and the navigation relative to the loader
// having finished loading.
func (m *Manager) armBoot(s *Surface) {
	s.stopBoot()
	s.Boot = BootArmed

	total := m.settings.LoaderDuration()
	fade := m.settings.FadeDuration()
	s.fadeTimer = m.sched.AfterFunc(total-fade, func() {
		s.fadeTimer = nil
		if !m.state.owns(s) || s.Boot != BootArmed {
			return
		}
		safe.Do(m.logger, "fade loader", func() error {
			return s.Window.ExecuteScript(fadeScript(m.settings.Boot.FadeMS))
		})
	})
	s.navTimer = m.sched.AfterFunc(total, func() {
		s.navTimer = nil
		if !m.state.owns(s) || s.Boot != BootArmed {
			return
		}
		m.navigateTarget(s)
	})
}

func (m *Manager) navigateTarget(s *Surface) {
	s.stopBoot()
	s.Boot = BootDone
	target := s.Target
	if target == "" {
		target = config.FileURL(m.settings.AssetPath("default.html"))
	}
	safe.Do(m.logger, "load "+string(s.Role), func() error { return s.Window.LoadURL(target) })
}

// applyURLs points the live surfaces at urls without recreating them. Any
// pending boot navigation is cancelled first.
func (m *Manager) applyURLs(urls config.URLs) {
	defaultPage := config.FileURL(m.settings.AssetPath("default.html"))
	if urls.Screen1 == "" {
		urls.Screen1 = defaultPage
	}
	if urls.Screen2 == "" {
		urls.Screen2 = defaultPage
	}
	m.applied = urls

	for _, s := range m.state.TopLevel() {
		target := urls.Screen1
		if s == m.state.Customer {
			target = urls.Screen2
		}
		s.stopBoot()
		s.Boot = BootDone
		s.Target = target
		w := s.Window
		if w.URL() != target {
			safe.Do(m.logger, "load "+string(s.Role), func() error { return w.LoadURL(target) })
		} else {
			safe.Do(m.logger, "reload "+string(s.Role), func() error { return w.Reload(true) })
		}
	}
}
