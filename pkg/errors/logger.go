package errors

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// Logger provides centralized error logging
type Logger struct {
	logger  *slog.Logger
	metrics *logging.MetricsCollector
}

// NewLogger creates a new error logger using the global logging factory
func NewLogger(component string) *Logger {
	return &Logger{
		logger:  logging.GetGlobalLogger(component),
		metrics: logging.GetGlobalMetricsCollector(),
	}
}

// NewLoggerWithSlog creates a new error logger around a specific slog logger
func NewLoggerWithSlog(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		logger:  logger,
		metrics: logging.GetGlobalMetricsCollector(),
	}
}

// LogError logs err with request context at a level derived from its code
// and returns it unchanged.
func (l *Logger) LogError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	code := GetCode(err)
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("error_code", string(code)),
		slog.String("error", err.Error()),
		slog.String("error_type", fmt.Sprintf("%T", GetInternal(err))),
	}
	if requestID := logging.GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if userID := logging.GetUserID(ctx); userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}

	if l.metrics != nil {
		l.metrics.RecordError(string(code), operation)
	}

	l.logger.LogAttrs(ctx, levelFor(code), "Operation failed", attrs...)
	return err
}

// LogPanic logs a recovered panic with its stack and returns an AppError for it
func (l *Logger) LogPanic(ctx context.Context, recovered interface{}, operation string) error {
	err := Newf(ErrCodePanic, "panic in %s: %v", operation, recovered)
	l.logger.ErrorContext(ctx, "Panic recovered",
		slog.String("operation", operation),
		slog.String("panic", fmt.Sprint(recovered)),
		slog.String("request_id", logging.GetRequestID(ctx)),
		slog.String("stack", string(debug.Stack())),
	)
	if l.metrics != nil {
		l.metrics.RecordError(string(ErrCodePanic), operation)
	}
	return err
}

// LogAndWrap wraps err with code and message and logs the result
func (l *Logger) LogAndWrap(ctx context.Context, err error, code ErrorCode, message, operation string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, code, message)
	_ = l.LogError(ctx, wrapped, operation)
	return wrapped
}

// levelFor determines the log level for an error code
func levelFor(code ErrorCode) slog.Level {
	switch {
	case code == ErrCodeEntityNotFound || code == ErrCodeStaleSelection || code == ErrCodeInsufficientCatalog:
		return slog.LevelInfo
	case code == ErrCodeAuthForbidden:
		return slog.LevelDebug
	case strings.HasPrefix(string(code), "VALIDATION_"), code == ErrCodeEntityAlreadyExists:
		return slog.LevelWarn
	case strings.HasPrefix(string(code), "STORAGE_"), strings.HasPrefix(string(code), "SESSION_"):
		return slog.LevelError
	case code == ErrCodeInternal || code == ErrCodePanic:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

var (
	defaultLogger   *Logger
	defaultLoggerMu sync.RWMutex
)

func getDefaultLogger() *Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewLogger("errors")
	}
	return defaultLogger
}

// SetDefaultLogger sets the default error logger in a thread-safe manner
func SetDefaultLogger(logger *slog.Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = NewLoggerWithSlog(logger)
}

// LogError logs an error using the default logger
func LogError(ctx context.Context, err error, operation string) error {
	return getDefaultLogger().LogError(ctx, err, operation)
}

// LogPanic logs a panic using the default logger
func LogPanic(ctx context.Context, recovered interface{}, operation string) error {
	return getDefaultLogger().LogPanic(ctx, recovered, operation)
}

// LogAndWrap wraps and logs an error using the default logger
func LogAndWrap(ctx context.Context, err error, code ErrorCode, message, operation string) error {
	return getDefaultLogger().LogAndWrap(ctx, err, code, message, operation)
}
