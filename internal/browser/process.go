package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/flickpay/flickpos/internal/cdp"
)

// ErrNoBrowser is returned when no Chromium binary can be found.
var ErrNoBrowser = errors.New("no chromium binary found")

// Candidates are tried in order when no binary is configured.
var Candidates = []string{"chromium", "chromium-browser", "google-chrome-stable", "google-chrome"}

const devToolsPrefix = "DevTools listening on "

// baseArgs keep Chromium quiet and kiosk-friendly.
var baseArgs = []string{
	"--remote-debugging-port=0",
	"--no-first-run",
	"--no-default-browser-check",
	"--noerrdialogs",
	"--disable-infobars",
	"--disable-session-crashed-bubble",
	"--disable-translate",
	"--disable-features=Translate,MediaRouter",
	"--autoplay-policy=no-user-gesture-required",
	"--password-store=basic",
	"--overscroll-history-navigation=0",
	"--no-startup-window",
	// Rebuilds close every window of a partition before opening new ones.
	"--keep-alive-for-test",
}

// ResolveBinary returns configured if set, else the first candidate on PATH.
func ResolveBinary(configured string) (string, error) {
	if configured != "" {
		path, err := exec.LookPath(configured)
		if err != nil {
			return "", fmt.Errorf("browser binary %q: %w", configured, err)
		}
		return path, nil
	}
	for _, name := range Candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNoBrowser
}

func chromeArgs(profileDir string, extra []string) []string {
	args := []string{"--user-data-dir=" + profileDir}
	args = append(args, extra...)
	return append(args, baseArgs...)
}

// parseDevToolsLine extracts the browser websocket URL Chromium prints on
// stderr once the debugging port is open.
func parseDevToolsLine(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, devToolsPrefix) {
		return "", false
	}
	u := strings.TrimSpace(strings.TrimPrefix(line, devToolsPrefix))
	if !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
		return "", false
	}
	return u, true
}

// waitForDevTools scans r until the DevTools URL appears. Output after
// that keeps being drained to the debug log so the child never blocks.
func waitForDevTools(r io.Reader, timeout time.Duration, logger *slog.Logger) (string, error) {
	found := make(chan string, 1)
	go func() {
		sc := bufio.NewScanner(r)
		sent := false
		for sc.Scan() {
			line := sc.Text()
			if !sent {
				if u, ok := parseDevToolsLine(line); ok {
					found <- u
					sent = true
					continue
				}
			}
			logger.Debug("chromium", "line", line)
		}
		if !sent {
			close(found)
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case u, ok := <-found:
		if !ok {
			return "", errors.New("browser exited before devtools was ready")
		}
		return u, nil
	case <-timer.C:
		return "", fmt.Errorf("browser did not open devtools within %s", timeout)
	}
}

// process is one Chromium instance serving one partition.
type process struct {
	partition string
	cmd       *exec.Cmd
	conn      *cdp.Conn
	logger    *slog.Logger

	mu        sync.Mutex
	bySession map[string]*content
	byTarget  map[string]*content
}

func launch(ctx context.Context, binary, profileDir, partition string, extra []string, timeout time.Duration, logger *slog.Logger) (*process, error) {
	if err := os.MkdirAll(profileDir, 0o700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}
	logger = logger.With("partition", partition)

	cmd := exec.Command(binary, chromeArgs(profileDir, extra)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("browser stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	wsURL, err := waitForDevTools(stderr, timeout, logger)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}
	conn, err := cdp.Dial(ctx, wsURL, logger)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	p := &process{
		partition: partition,
		cmd:       cmd,
		conn:      conn,
		logger:    logger,
		bySession: make(map[string]*content),
		byTarget:  make(map[string]*content),
	}
	conn.OnEvent(p.route)

	if err := conn.Call(ctx, "", "Target.setDiscoverTargets", map[string]any{"discover": true}, nil); err != nil {
		p.kill()
		return nil, fmt.Errorf("discover targets: %w", err)
	}
	logger.Info("browser started", "pid", cmd.Process.Pid, "profile", profileDir)
	return p, nil
}

func (p *process) register(c *content) {
	p.mu.Lock()
	p.bySession[c.session.ID] = c
	p.byTarget[c.targetID] = c
	p.mu.Unlock()
}

func (p *process) unregister(c *content) {
	p.mu.Lock()
	delete(p.bySession, c.session.ID)
	delete(p.byTarget, c.targetID)
	p.mu.Unlock()
}

// route hands an event to the content it belongs to. It runs on the
// connection's dispatch goroutine.
func (p *process) route(ev cdp.Event) {
	var c *content
	p.mu.Lock()
	if ev.SessionID != "" {
		c = p.bySession[ev.SessionID]
	} else if ev.Method == "Target.targetDestroyed" || ev.Method == "Target.targetCrashed" {
		var params struct {
			TargetID string `json:"targetId"`
		}
		if ev.Unmarshal(&params) == nil {
			c = p.byTarget[params.TargetID]
		}
	} else if ev.Method == "Target.detachedFromTarget" {
		var params struct {
			SessionID string `json:"sessionId"`
		}
		if ev.Unmarshal(&params) == nil {
			c = p.bySession[params.SessionID]
		}
	}
	p.mu.Unlock()
	if c != nil {
		c.handleEvent(ev)
	}
}

func (p *process) kill() {
	_ = p.conn.Close()
	if p.cmd.Process == nil {
		return
	}
	// Chromium's helpers share the process group.
	_ = syscall.Kill(-p.cmd.Process.Pid, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		_ = p.cmd.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		_ = syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL)
		<-done
	}
	p.logger.Info("browser stopped")
}

func profileDir(root, partition string) string {
	return filepath.Join(root, partition)
}
