// Package logging builds the charmbracelet/log logger used across clang-tui.
// The TUI owns the terminal, so logs go to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Component prefixes for sub-loggers.
const (
	PrefixApp     = "app"
	PrefixAPI     = "api"
	PrefixSession = "session"
	PrefixStream  = "stream"
	PrefixCapture = "capture"
	PrefixRoom    = "room"
)

// Open creates a logger writing to path at the given level. The returned
// closer releases the file.
func Open(path, level string) (*log.Logger, io.Closer, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	return New(f, lvl), f, nil
}

// New creates a logger on w.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    level == log.DebugLevel,
		Level:           level,
	})
}

// Discard returns a logger that drops everything. Used by tests and as a
// fallback when no logger is wired.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
