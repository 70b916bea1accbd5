package transport

import (
	"fmt"

	"github.com/JamesPrial/komikshub-bot/internal/access"
	"github.com/JamesPrial/komikshub-bot/pkg/config"
)

// NewTransport creates the transport selected by bot.mode
func NewTransport(cfg *config.Settings, auth access.Authorizer) (Transport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	switch cfg.Bot.Mode {
	case config.ModePolling, config.ModeWebhook:
		t, err := NewTelegramTransport(cfg.Bot, auth)
		if err != nil {
			return nil, err
		}
		return t, nil
	case config.ModeStdio:
		return NewStdioTransport(), nil
	default:
		return nil, fmt.Errorf("unsupported bot mode: %s", cfg.Bot.Mode)
	}
}
