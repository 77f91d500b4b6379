// Package logging builds the diagnostic logger. Diagnostics always go to a
// separate stream from the probe report so that JSON output stays parseable.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Output io.Writer
	JSON   bool
}

// DefaultConfig returns warn-level text logging on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelWarn,
		Output: os.Stderr,
	}
}

// New creates a logger with the given configuration.
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}
	return slog.New(handler)
}

// ForVerbosity returns a logger at debug level when verbose is set and at
// warn level otherwise.
func ForVerbosity(out io.Writer, verbose bool) *slog.Logger {
	cfg := DefaultConfig()
	cfg.Output = out
	if verbose {
		cfg.Level = slog.LevelDebug
	}
	return New(cfg)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(discardHandler{})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
