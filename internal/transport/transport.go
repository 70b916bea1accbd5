// Package transport connects the bot to the outside world: the Telegram Bot
// API (long polling or webhook) and a console transport for local runs.
package transport

import (
	"context"

	"github.com/JamesPrial/komikshub-bot/pkg/chat"
)

// Handler processes one inbound event and returns the reply to send, or
// nil for no reply.
type Handler func(ctx context.Context, ev chat.Event) *chat.Reply

// Transport defines the interface for different transport mechanisms
type Transport interface {
	// Start delivers events to handler until ctx is cancelled or Stop is called
	Start(ctx context.Context, handler Handler) error

	// Stop gracefully shuts down the transport
	Stop(ctx context.Context) error

	// Name returns the name of the transport
	Name() string
}
