package logging

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Context keys for logging metadata
type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyUserID    contextKey = "user_id"
	contextKeyChatID    contextKey = "chat_id"
	contextKeyTransport contextKey = "transport"
	contextKeyOperation contextKey = "operation"
	contextKeyComponent contextKey = "component"
	contextKeyStartTime contextKey = "start_time"
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if str, ok := ctx.Value(key).(string); ok {
		return str
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, contextKeyRequestID)
}

// WithUserID adds the chat user's ID to the context
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKeyUserID, strconv.FormatInt(userID, 10))
}

// GetUserID retrieves the user ID from context as a string
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, contextKeyUserID)
}

// WithChatID adds the chat ID to the context
func WithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, contextKeyChatID, strconv.FormatInt(chatID, 10))
}

// GetChatID retrieves the chat ID from context as a string
func GetChatID(ctx context.Context) string {
	return stringValue(ctx, contextKeyChatID)
}

// WithTransport records which transport delivered the event
func WithTransport(ctx context.Context, transport string) context.Context {
	return context.WithValue(ctx, contextKeyTransport, transport)
}

// GetTransport retrieves the transport name from context
func GetTransport(ctx context.Context) string {
	return stringValue(ctx, contextKeyTransport)
}

// WithOperation adds an operation name to the context
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, contextKeyOperation, operation)
}

// GetOperation retrieves the operation from context
func GetOperation(ctx context.Context) string {
	return stringValue(ctx, contextKeyOperation)
}

// WithComponent adds a component name to the context
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, contextKeyComponent, component)
}

// GetComponent retrieves the component from context
func GetComponent(ctx context.Context) string {
	return stringValue(ctx, contextKeyComponent)
}

// GetStartTime retrieves the start time set by NewRequestContext
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyStartTime).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// GetDuration calculates the duration since start time
func GetDuration(ctx context.Context) time.Duration {
	startTime := GetStartTime(ctx)
	if startTime.IsZero() {
		return 0
	}
	return time.Since(startTime)
}

// NewRequestContext prepares ctx for handling one inbound event: it gets a
// request ID if it lacks one, the operation name and a start time.
func NewRequestContext(ctx context.Context, operation string) context.Context {
	if GetRequestID(ctx) == "" {
		ctx = WithRequestID(ctx, GenerateID())
	}
	if operation != "" {
		ctx = WithOperation(ctx, operation)
	}
	return context.WithValue(ctx, contextKeyStartTime, time.Now())
}

// ContextAttrs returns the request-scoped values in ctx as log attributes
func ContextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range []contextKey{
		contextKeyRequestID, contextKeyUserID, contextKeyChatID,
		contextKeyTransport, contextKeyOperation,
	} {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	return attrs
}

// GenerateID generates a random ID for requests
func GenerateID() string {
	return uuid.NewString()
}
