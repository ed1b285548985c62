// SPDX-License-Identifier: MIT

// Package logging builds the slog loggers used across lnpi.
//
// Library packages never log unless handed a logger (WithLogger options);
// their default is Discard(). The CLI builds one logger from Config and
// passes it down.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/katalvlaran/lnpi/errkind"
)

// ErrBadConfig indicates an unknown level or format.
var ErrBadConfig = fmt.Errorf("logging: invalid config: %w", errkind.ErrInvalidInput)

// Config selects level, output format and destination.
// The zero value logs Info and above as text to stderr.
type Config struct {
	// Level is one of debug, info, warn, error (case-insensitive).
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
	// Writer receives the records; nil means os.Stderr.
	Writer io.Writer `yaml:"-"`
}

// ParseLevel maps a level name to slog.Level; "" is Info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}

	return 0, fmt.Errorf("%w: level %q", ErrBadConfig, s)
}

// New builds a logger from cfg.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return nil, fmt.Errorf("%w: format %q", ErrBadConfig, cfg.Format)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns l, or Discard() when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}

	return l
}
