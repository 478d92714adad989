// Package update keeps the kiosk binary current. A newer release is
// downloaded over the installed executable in the background and only
// takes effect when the kiosk relaunches on shutdown.
package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
)

// ErrDevBuild is returned for builds without a release version.
var ErrDevBuild = errors.New("cannot update a development build")

// Release is a published release of the kiosk.
type Release struct {
	Version     string    `json:"version"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Newer       bool      `json:"newer"`

	native *selfupdate.Release
}

// Source finds and installs releases.
type Source interface {
	Latest(ctx context.Context, current string) (Release, bool, error)
	Apply(ctx context.Context, rel Release, exe string) error
}

// Config wires a Channel.
type Config struct {
	// Repository is an owner/name slug on GitHub.
	Repository string
	Version    string
	// Executable defaults to the running binary.
	Executable string
	Source     Source
	// Relaunch starts the updated binary. Defaults to a detached exec.
	Relaunch func(exe string, args []string) error
	Logger   *slog.Logger
}

// Status is the outcome of a check.
type Status struct {
	Current string   `json:"current"`
	Latest  *Release `json:"latest,omitempty"`
	Staged  bool     `json:"staged"`
}

// Channel is the staged update channel. It is safe for concurrent use.
type Channel struct {
	version  string
	exe      string
	source   Source
	relaunch func(exe string, args []string) error
	logger   *slog.Logger

	mu     sync.Mutex
	staged *Release
}

// New creates a channel backed by GitHub releases unless cfg.Source is set.
func New(cfg Config) (*Channel, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	src := cfg.Source
	if src == nil {
		if cfg.Repository == "" {
			return nil, errors.New("update repository not set")
		}
		up, err := selfupdate.NewUpdater(selfupdate.Config{})
		if err != nil {
			return nil, fmt.Errorf("create updater: %w", err)
		}
		src = &githubSource{up: up, repo: selfupdate.ParseSlug(cfg.Repository)}
	}
	exe := cfg.Executable
	if exe == "" {
		var err error
		exe, err = selfupdate.ExecutablePath()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
	}
	relaunch := cfg.Relaunch
	if relaunch == nil {
		relaunch = startDetached
	}
	return &Channel{
		version:  cfg.Version,
		exe:      exe,
		source:   src,
		relaunch: relaunch,
		logger:   logger.With("component", "update"),
	}, nil
}

// Check looks for a newer release without downloading it.
func (c *Channel) Check(ctx context.Context) (Status, error) {
	st := Status{Current: c.version, Staged: c.Staged()}
	if !releaseVersion(c.version) {
		return st, ErrDevBuild
	}
	rel, found, err := c.source.Latest(ctx, c.version)
	if err != nil {
		return st, fmt.Errorf("detect latest release: %w", err)
	}
	if found {
		st.Latest = &rel
	}
	return st, nil
}

// Stage downloads a newer release over the executable. The running
// process is unaffected until Install.
func (c *Channel) Stage(ctx context.Context) (Status, error) {
	st, err := c.Check(ctx)
	if err != nil {
		return st, err
	}
	if st.Staged || st.Latest == nil || !st.Latest.Newer {
		return st, nil
	}
	if err := c.source.Apply(ctx, *st.Latest, c.exe); err != nil {
		return st, fmt.Errorf("download %s: %w", st.Latest.Version, err)
	}
	c.mu.Lock()
	rel := *st.Latest
	c.staged = &rel
	c.mu.Unlock()
	st.Staged = true
	c.logger.Info("update staged", "version", rel.Version, "exe", c.exe)
	return st, nil
}

// Staged reports whether a downloaded release is waiting.
func (c *Channel) Staged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staged != nil
}

// Install relaunches into the staged release. It does nothing when no
// release is staged.
func (c *Channel) Install() error {
	c.mu.Lock()
	rel := c.staged
	c.mu.Unlock()
	if rel == nil {
		return nil
	}
	c.logger.Info("relaunching into update", "version", rel.Version)
	if err := c.relaunch(c.exe, os.Args[1:]); err != nil {
		return fmt.Errorf("relaunch %s: %w", c.exe, err)
	}
	return nil
}

func releaseVersion(v string) bool {
	if v == "" || v == "dev" {
		return false
	}
	_, err := semver.NewVersion(v)
	return err == nil
}

func startDetached(exe string, args []string) error {
	cmd := exec.Command(exe, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

type githubSource struct {
	up   *selfupdate.Updater
	repo selfupdate.RepositorySlug
}

func (g *githubSource) Latest(ctx context.Context, current string) (Release, bool, error) {
	rel, found, err := g.up.DetectLatest(ctx, g.repo)
	if err != nil || !found {
		return Release{}, false, err
	}
	return Release{
		Version:     rel.Version(),
		URL:         rel.URL,
		PublishedAt: rel.PublishedAt,
		Newer:       rel.GreaterThan(current),
		native:      rel,
	}, true, nil
}

func (g *githubSource) Apply(ctx context.Context, rel Release, exe string) error {
	if rel.native == nil {
		return selfupdate.ErrInvalidRelease
	}
	return g.up.UpdateTo(ctx, rel.native, exe)
}
