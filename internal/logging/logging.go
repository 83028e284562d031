// Package logging builds the slog loggers used across safetyrag and carries
// them through context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New creates a logger. Without options it writes slog text at Info level to
// os.Stderr.
func New(opts ...Option) *slog.Logger {
	c := &config{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer = os.Stderr
	switch len(c.writers) {
	case 0:
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	switch {
	case c.json:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source}))
	case c.pretty:
		level := charmlog.InfoLevel
		if c.level <= slog.LevelDebug {
			level = charmlog.DebugLevel
		}
		return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
			Level:           level,
			ReportTimestamp: true,
			ReportCaller:    c.source,
		}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.level, AddSource: c.source}))
	}
}

// Nop returns a logger that drops every record.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(New())
}

// Default returns the process-wide logger.
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *slog.Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

type ctxKey struct{}

// With stores l in ctx.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in ctx, or Default.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return Default()
}
