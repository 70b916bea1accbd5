package logging

import (
	"context"
	"log/slog"
)

// LevelHandler filters records below a (possibly dynamic) minimum level
// before passing them to the wrapped handler. The factory gives every
// component its own LevelHandler so levels can be changed per component at
// runtime without rebuilding loggers.
type LevelHandler struct {
	handler slog.Handler
	level   slog.Leveler
}

// NewLevelHandler wraps handler with a minimum level
func NewLevelHandler(handler slog.Handler, level slog.Leveler) *LevelHandler {
	return &LevelHandler{handler: handler, level: level}
}

// Enabled implements slog.Handler
func (lh *LevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < lh.level.Level() {
		return false
	}
	return lh.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler
func (lh *LevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < lh.level.Level() {
		return nil
	}
	return lh.handler.Handle(ctx, record)
}

// WithAttrs implements slog.Handler
func (lh *LevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LevelHandler{handler: lh.handler.WithAttrs(attrs), level: lh.level}
}

// WithGroup implements slog.Handler
func (lh *LevelHandler) WithGroup(name string) slog.Handler {
	return &LevelHandler{handler: lh.handler.WithGroup(name), level: lh.level}
}

// Level returns the current minimum level
func (lh *LevelHandler) Level() slog.Level {
	return lh.level.Level()
}

// SlogLevel converts a LogLevel to slog.Level
func SlogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
