package logging

import (
	"log/slog"
	"strings"
	"testing"
)

func TestMaskerMaskAttr(t *testing.T) {
	masker := NewMasker(MaskingConfig{
		Enabled: true,
		Fields:  []string{"webhook"},
		Secrets: []string{"super-secret-value"},
	})

	tests := []struct {
		name     string
		attr     slog.Attr
		expected string
	}{
		{"configured field", slog.String("webhook", "https://x"), maskedValue},
		{"sensitive field name", slog.String("bot_token", "abc"), maskedValue},
		{"redis url field", slog.String("redis_url", "redis://:pw@host"), maskedValue},
		{"secret inside value", slog.String("msg", "using super-secret-value now"), "using " + maskedValue + " now"},
		{"plain value", slog.String("query", "паук"), "паук"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := masker.MaskAttr(nil, tt.attr)
			if got.Value.String() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got.Value.String())
			}
		})
	}
}

func TestMaskerTelegramTokenPattern(t *testing.T) {
	masker := NewMasker(MaskingConfig{Enabled: true})
	token := "123456789:AAHdqTcvCH1vGWJxfSeofSAs0K5PALDsaw"

	masked := masker.MaskString("GET /bot" + token + "/getMe")
	if strings.Contains(masked, token) {
		t.Errorf("token not masked: %s", masked)
	}
}

func TestMaskerIgnoresShortSecretsAndBadPatterns(t *testing.T) {
	masker := NewMasker(MaskingConfig{
		Enabled:  true,
		Secrets:  []string{"a"},
		Patterns: []string{"(unclosed"},
	})
	if got := masker.MaskString("a banana"); got != "a banana" {
		t.Errorf("short secret should be ignored, got %q", got)
	}
}

func TestMaskerDisabled(t *testing.T) {
	masker := NewMasker(MaskingConfig{Enabled: false})
	attr := masker.MaskAttr(nil, slog.String("password", "hunter2"))
	if attr.Value.String() != "hunter2" {
		t.Errorf("disabled masker changed value: %q", attr.Value.String())
	}
}
