package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "creates error with code and message",
			code:    ErrCodeEntityNotFound,
			message: "character not found",
		},
		{
			name:    "creates validation error",
			code:    ErrCodeValidationRequired,
			message: "name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}
			if err.Internal != nil {
				t.Error("expected Internal to be nil")
			}
			if err.Error() != tt.message {
				t.Errorf("Error() should return message")
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("disk full")
	err := Wrap(base, ErrCodeStorageTransaction, "insert failed")

	if err.Error() != "insert failed: disk full" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should unwrap to base")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("wrapping nil should return nil")
	}
	if got := Wrapf(base, ErrCodeInternal, "op %d", 3).Message; got != "op 3" {
		t.Errorf("unexpected formatted message %q", got)
	}
}

func TestIs(t *testing.T) {
	notFound := NotFound("character")
	wrapped := fmt.Errorf("lookup: %w", notFound)

	tests := []struct {
		name     string
		err      error
		code     ErrorCode
		expected bool
	}{
		{"direct match", notFound, ErrCodeEntityNotFound, true},
		{"wrapped by fmt", wrapped, ErrCodeEntityNotFound, true},
		{"different code", notFound, ErrCodeInternal, false},
		{"plain error", errors.New("x"), ErrCodeInternal, false},
		{"nil", nil, ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestGetCodeAndMessage(t *testing.T) {
	if GetCode(nil) != "" {
		t.Error("nil error should have empty code")
	}
	if GetCode(errors.New("boom")) != ErrCodeInternal {
		t.Error("plain error should map to internal")
	}
	if GetMessage(errors.New("secret path /etc")) != "An internal error occurred" {
		t.Error("plain error message should not leak")
	}
	if GetMessage(AlreadyExists("character")) != "character already exists" {
		t.Error("unexpected AlreadyExists message")
	}
}

func TestGetInternal(t *testing.T) {
	base := errors.New("sqlite busy")
	if GetInternal(Internal(base)) != base {
		t.Error("expected internal error")
	}
	plain := errors.New("plain")
	if GetInternal(plain) != plain {
		t.Error("plain error should be returned as is")
	}
	appErr := ValidationRequired("name")
	if GetInternal(appErr) != appErr {
		t.Error("AppError without internal should return itself")
	}
}

func TestHelperFunctions(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
		msg  string
	}{
		{"ValidationRequired", ValidationRequired("name"), ErrCodeValidationRequired, "name is required"},
		{"ValidationInvalid", ValidationInvalid("threshold", "must be 0-100"), ErrCodeValidationInvalid, "threshold is invalid: must be 0-100"},
		{"Forbidden", Forbidden("create"), ErrCodeAuthForbidden, "create is not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code || tt.err.Message != tt.msg {
				t.Errorf("got %s %q", tt.err.Code, tt.err.Message)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if !Is(FromContext(ctx.Err()), ErrCodeContextCanceled) {
		t.Error("expected canceled code")
	}
	if !Is(FromContext(context.DeadlineExceeded), ErrCodeContextTimeout) {
		t.Error("expected timeout code")
	}
	if FromContext(nil) != nil {
		t.Error("expected nil")
	}
}

func TestLogger(t *testing.T) {
	out := logging.NewTestLogger()
	logger := NewLoggerWithSlog(out.GetLogger())
	ctx := logging.WithRequestID(context.Background(), "req-9")

	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"not found logs info", NotFound("character"), "INFO"},
		{"validation logs warn", ValidationRequired("name"), "WARN"},
		{"storage logs error", New(ErrCodeStorageConnection, "down"), "ERROR"},
		{"plain error logs error", errors.New("boom"), "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Clear()
			returned := logger.LogError(ctx, tt.err, "test_op")
			if returned != tt.err {
				t.Error("LogError should return its input")
			}
			entries := out.GetEntriesWithMessage("Operation failed")
			if len(entries) != 1 {
				t.Fatalf("expected one entry, got %d", len(entries))
			}
			if entries[0].Level != tt.level {
				t.Errorf("expected level %s, got %s", tt.level, entries[0].Level)
			}
			if entries[0].RequestID != "req-9" || entries[0].Operation != "test_op" {
				t.Errorf("missing context attrs: %+v", entries[0])
			}
		})
	}

	if logger.LogError(ctx, nil, "noop") != nil {
		t.Error("nil error should return nil")
	}
}

func TestLoggerLogPanic(t *testing.T) {
	out := logging.NewTestLogger()
	logger := NewLoggerWithSlog(out.GetLogger())

	err := logger.LogPanic(context.Background(), "nil map write", "handle_event")
	if !Is(err, ErrCodePanic) {
		t.Errorf("expected panic code, got %s", GetCode(err))
	}
	entries := out.GetEntriesWithMessage("Panic recovered")
	if len(entries) != 1 {
		t.Fatalf("expected one panic entry, got %d", len(entries))
	}
	stack, _ := entries[0].Attrs["stack"].(string)
	if !strings.Contains(stack, "goroutine") {
		t.Error("expected stack trace in panic entry")
	}
}

func TestLogAndWrap(t *testing.T) {
	out := logging.NewTestLogger()
	SetDefaultLogger(out.GetLogger())
	t.Cleanup(func() { SetDefaultLogger(slog.Default()) })

	err := LogAndWrap(context.Background(), errors.New("locked"), ErrCodeStorageTransaction, "sqlite busy", "insert")
	if !Is(err, ErrCodeStorageTransaction) {
		t.Errorf("unexpected code %s", GetCode(err))
	}
	if len(out.GetEntriesWithMessage("Operation failed")) != 1 {
		t.Error("expected logged error")
	}
	if LogAndWrap(context.Background(), nil, ErrCodeInternal, "x", "y") != nil {
		t.Error("nil error should stay nil")
	}
}
