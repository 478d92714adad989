package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Settings are the orchestrator's own knobs, read from kiosk.yaml. They
// never hold POS credentials; those live in config.json.
type Settings struct {
	TrustedDomain      string           `yaml:"trusted_domain"`
	PseudoScheme       string           `yaml:"pseudo_scheme"`
	SupportURL         string           `yaml:"support_url"`
	AssetsDir          string           `yaml:"assets_dir,omitempty"`
	Boot               BootSettings     `yaml:"boot"`
	Topology           TopologySettings `yaml:"topology"`
	Modal              ModalSettings    `yaml:"modal"`
	Hotkeys            HotkeySettings   `yaml:"hotkeys"`
	Browser            BrowserSettings  `yaml:"browser"`
	Update             UpdateSettings   `yaml:"update"`
	Log                LogSettings      `yaml:"log"`
	WatchConfig        bool             `yaml:"watch_config"`
	InhibitScreensaver bool             `yaml:"inhibit_screensaver"`
}

// BootSettings time the loader-to-target sequence, in milliseconds.
type BootSettings struct {
	LoaderMS               int `yaml:"loader_ms"`
	FadeMS                 int `yaml:"fade_ms"`
	CustomerShowFallbackMS int `yaml:"customer_show_fallback_ms"`
}

type TopologySettings struct {
	DebounceMS int `yaml:"debounce_ms"`
}

type ModalSettings struct {
	ScalePercent int `yaml:"scale_percent"`
}

// HotkeySettings use xgbutil keybind syntax, e.g. "Control-Mod1-s".
type HotkeySettings struct {
	OpenSettings string `yaml:"open_settings"`
	Reload       string `yaml:"reload"`
	Quit         string `yaml:"quit"`
	RevealConfig string `yaml:"reveal_config"`
	Escape       string `yaml:"escape"`
}

type BrowserSettings struct {
	Binary     string   `yaml:"binary,omitempty"`
	Args       []string `yaml:"args,omitempty"`
	ProfileDir string   `yaml:"profile_dir,omitempty"`
}

type UpdateSettings struct {
	Enabled      bool   `yaml:"enabled"`
	Repository   string `yaml:"repository"`
	CheckDelayMS int    `yaml:"check_delay_ms"`
}

type LogSettings struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// ValidationError reports which setting failed validation.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func DefaultSettings() *Settings {
	return &Settings{
		TrustedDomain: Domain,
		PseudoScheme:  "pos",
		SupportURL:    "https://" + Domain + "/get-support",
		Boot: BootSettings{
			LoaderMS:               5000,
			FadeMS:                 150,
			CustomerShowFallbackMS: 1500,
		},
		Topology: TopologySettings{DebounceMS: 600},
		Modal:    ModalSettings{ScalePercent: 85},
		Hotkeys: HotkeySettings{
			OpenSettings: "Control-Mod1-s",
			Reload:       "Control-Mod1-r",
			Quit:         "Control-Mod1-q",
			RevealConfig: "Control-Mod1-o",
			Escape:       "Escape",
		},
		Update: UpdateSettings{
			Enabled:      true,
			Repository:   "flickpay/flickpos",
			CheckDelayMS: 5000,
		},
		Log: LogSettings{
			Level:     "info",
			MaxSizeMB: 5,
			MaxFiles:  3,
		},
		InhibitScreensaver: true,
	}
}

// Validate performs strict validation of the settings.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.TrustedDomain) == "" {
		return &ValidationError{Path: "trusted_domain", Err: fmt.Errorf("trusted_domain is required")}
	}
	if strings.Contains(s.PseudoScheme, ":") || strings.TrimSpace(s.PseudoScheme) == "" {
		return &ValidationError{Path: "pseudo_scheme", Err: fmt.Errorf("pseudo_scheme must be a bare scheme name")}
	}
	if u, err := url.Parse(s.SupportURL); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return &ValidationError{Path: "support_url", Err: fmt.Errorf("support_url must be an http(s) URL")}
	}
	if s.Boot.LoaderMS <= 0 {
		return &ValidationError{Path: "boot.loader_ms", Err: fmt.Errorf("loader_ms must be > 0")}
	}
	if s.Boot.FadeMS < 0 || s.Boot.FadeMS > s.Boot.LoaderMS {
		return &ValidationError{Path: "boot.fade_ms", Err: fmt.Errorf("fade_ms must be between 0 and loader_ms")}
	}
	if s.Boot.CustomerShowFallbackMS <= 0 {
		return &ValidationError{Path: "boot.customer_show_fallback_ms", Err: fmt.Errorf("customer_show_fallback_ms must be > 0")}
	}
	if s.Topology.DebounceMS <= 0 {
		return &ValidationError{Path: "topology.debounce_ms", Err: fmt.Errorf("debounce_ms must be > 0")}
	}
	if s.Modal.ScalePercent < 10 || s.Modal.ScalePercent > 100 {
		return &ValidationError{Path: "modal.scale_percent", Err: fmt.Errorf("scale_percent must be between 10 and 100")}
	}
	if s.Hotkeys.Escape == "" {
		return &ValidationError{Path: "hotkeys.escape", Err: fmt.Errorf("escape binding is required")}
	}
	if s.Update.Enabled && !strings.Contains(s.Update.Repository, "/") {
		return &ValidationError{Path: "update.repository", Err: fmt.Errorf("repository must be owner/name")}
	}
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log.level", Err: fmt.Errorf("level must be one of: debug, info, warning, error")}
	}
	return nil
}

func (s *Settings) LoaderDuration() time.Duration {
	return time.Duration(s.Boot.LoaderMS) * time.Millisecond
}

func (s *Settings) FadeDuration() time.Duration {
	return time.Duration(s.Boot.FadeMS) * time.Millisecond
}

func (s *Settings) CustomerShowFallback() time.Duration {
	return time.Duration(s.Boot.CustomerShowFallbackMS) * time.Millisecond
}

func (s *Settings) DebounceDuration() time.Duration {
	return time.Duration(s.Topology.DebounceMS) * time.Millisecond
}

func (s *Settings) UpdateCheckDelay() time.Duration {
	return time.Duration(s.Update.CheckDelayMS) * time.Millisecond
}

// ModalScale returns the overlay size as a fraction of the operator window.
func (s *Settings) ModalScale() float64 {
	return float64(s.Modal.ScalePercent) / 100
}

// ResolveAssetsDir returns assets_dir, or the assets directory next to the
// running executable.
func (s *Settings) ResolveAssetsDir() string {
	if s.AssetsDir != "" {
		return s.AssetsDir
	}
	exe, err := os.Executable()
	if err != nil {
		return "assets"
	}
	return filepath.Join(filepath.Dir(exe), "assets")
}

// AssetPath joins name onto the assets directory.
func (s *Settings) AssetPath(name string) string {
	return filepath.Join(s.ResolveAssetsDir(), name)
}

// LogFile returns the configured log file or app.log in dataDir.
func (s *Settings) LogFile(dataDir string) string {
	if s.Log.File != "" {
		return s.Log.File
	}
	return filepath.Join(dataDir, "logs", "app.log")
}

// ProfileRoot returns where browser profiles (one per partition) live.
func (s *Settings) ProfileRoot(dataDir string) string {
	if s.Browser.ProfileDir != "" {
		return s.Browser.ProfileDir
	}
	return filepath.Join(dataDir, "partitions")
}
