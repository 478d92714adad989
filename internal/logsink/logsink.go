// Package logsink is the kiosk's append-only log file with size-based
// rotation and a read-back operation for the diagnostics panel.
package logsink

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config holds configuration for the log sink.
type Config struct {
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// Sink is an io.Writer appending to a rotating log file.
type Sink struct {
	mu          sync.Mutex
	file        *os.File
	config      Config
	currentSize int64
}

// Open creates the log directory if needed and opens the log file for append.
func Open(cfg Config) (*Sink, error) {
	if cfg.FilePath == "" {
		return nil, errors.New("log file path is empty")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 5
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 3
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", cfg.FilePath, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &Sink{
		file:        f,
		config:      cfg,
		currentSize: stat.Size(),
	}, nil
}

// Path returns the active log file path.
func (s *Sink) Path() string {
	return s.config.FilePath
}

// Write appends p, rotating first when the file has reached its size cap.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return 0, os.ErrClosed
	}

	maxBytes := int64(s.config.MaxSizeMB) * 1024 * 1024
	if s.currentSize >= maxBytes {
		if err := s.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
		if s.file == nil {
			return 0, os.ErrClosed
		}
	}

	n, err := s.file.Write(p)
	s.currentSize += int64(n)
	return n, err
}

// Read returns the contents of the active log file.
func (s *Sink) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.config.FilePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Close closes the sink. Writes after Close fail with os.ErrClosed.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// rotate shifts app.log -> app.log.1 -> app.log.2 ... keeping MaxFiles
// rotated files, then reopens a fresh app.log.
func (s *Sink) rotate() error {
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}

	basePath := s.config.FilePath
	for i := s.config.MaxFiles; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", basePath, i)
		if i == s.config.MaxFiles {
			os.Remove(oldPath)
			continue
		}
		os.Rename(oldPath, fmt.Sprintf("%s.%d", basePath, i+1))
	}

	if err := os.Rename(basePath, basePath+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	f, err := os.OpenFile(basePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open new log file: %w", err)
	}

	s.file = f
	s.currentSize = 0
	return nil
}

// ParseLevel converts a config string to a slog level. Unknown values map
// to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a text logger writing to every non-nil writer.
func NewLogger(level slog.Level, writers ...io.Writer) *slog.Logger {
	var out []io.Writer
	for _, w := range writers {
		if w != nil {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		out = append(out, io.Discard)
	}
	return slog.New(slog.NewTextHandler(io.MultiWriter(out...), &slog.HandlerOptions{Level: level}))
}
