package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), SettingsFileName)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultSettings_Valid(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if s.LoaderDuration() != 5*time.Second || s.FadeDuration() != 150*time.Millisecond {
		t.Fatalf("unexpected boot durations: %v %v", s.LoaderDuration(), s.FadeDuration())
	}
	if s.DebounceDuration() != 600*time.Millisecond {
		t.Fatalf("unexpected debounce: %v", s.DebounceDuration())
	}
	if s.ModalScale() != 0.85 {
		t.Fatalf("unexpected modal scale: %v", s.ModalScale())
	}
}

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.TrustedDomain != Domain {
		t.Fatalf("trusted_domain = %q", s.TrustedDomain)
	}
}

func TestLoadSettings_EmptyFileUsesDefaults(t *testing.T) {
	s, err := LoadSettings(writeSettings(t, "# empty\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Hotkeys.OpenSettings != "Control-Mod1-s" {
		t.Fatalf("open_settings = %q", s.Hotkeys.OpenSettings)
	}
}

func TestLoadSettings_PartialOverride(t *testing.T) {
	s, err := LoadSettings(writeSettings(t, `
boot:
  loader_ms: 3000
hotkeys:
  quit: Control-Mod1-x
inhibit_screensaver: false
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Boot.LoaderMS != 3000 || s.Boot.FadeMS != 150 {
		t.Fatalf("boot = %+v", s.Boot)
	}
	if s.Hotkeys.Quit != "Control-Mod1-x" || s.Hotkeys.Reload != "Control-Mod1-r" {
		t.Fatalf("hotkeys = %+v", s.Hotkeys)
	}
	if s.InhibitScreensaver {
		t.Fatal("expected inhibit_screensaver false")
	}
}

func TestLoadSettings_StrictUnknownKeyErrors(t *testing.T) {
	_, err := LoadSettings(writeSettings(t, "trusted_domian: example.com\n"))
	if err == nil {
		t.Fatal("expected unknown key error")
	}
	if !strings.Contains(err.Error(), "trusted_domian") {
		t.Fatalf("error %q should name the key", err)
	}
}

func TestLoadSettings_ValidationError(t *testing.T) {
	_, err := LoadSettings(writeSettings(t, "boot:\n  loader_ms: 100\n  fade_ms: 200\n"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Path != "boot.fade_ms" {
		t.Fatalf("path = %q", verr.Path)
	}
}

func TestSettings_Paths(t *testing.T) {
	s := DefaultSettings()
	s.AssetsDir = "/opt/flickpos/assets"
	if got := s.AssetPath("loader.html"); got != "/opt/flickpos/assets/loader.html" {
		t.Fatalf("AssetPath = %q", got)
	}
	if got := s.LogFile("/data"); got != "/data/logs/app.log" {
		t.Fatalf("LogFile = %q", got)
	}
	if got := s.ProfileRoot("/data"); got != "/data/partitions" {
		t.Fatalf("ProfileRoot = %q", got)
	}
	if got := ConfigPath("/data"); got != "/data/config.json" {
		t.Fatalf("ConfigPath = %q", got)
	}
}
