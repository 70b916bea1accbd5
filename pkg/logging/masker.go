package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

const maskedValue = "***MASKED***"

// telegramTokenPattern matches bot tokens of the form "123456789:AA...".
var telegramTokenPattern = regexp.MustCompile(`\b\d{6,12}:[A-Za-z0-9_-]{30,}\b`)

// sensitiveFields are masked whenever an attribute key contains one of them
var sensitiveFields = []string{
	"password", "passwd", "secret", "bot_token", "api_key", "apikey",
	"authorization", "credential", "redis_url",
}

// Masker provides sensitive data masking functionality
type Masker struct {
	config   MaskingConfig
	patterns []*regexp.Regexp
	secrets  []string
}

// NewMasker creates a new masker. Invalid custom patterns are skipped.
func NewMasker(config MaskingConfig) *Masker {
	m := &Masker{
		config:   config,
		patterns: []*regexp.Regexp{telegramTokenPattern},
	}
	for _, pattern := range config.Patterns {
		if re, err := regexp.Compile(pattern); err == nil {
			m.patterns = append(m.patterns, re)
		}
	}
	for _, secret := range config.Secrets {
		// Very short secrets would mask half of every log line
		if len(secret) >= 8 {
			m.secrets = append(m.secrets, secret)
		}
	}
	return m
}

// MaskAttr masks sensitive data in a log attribute
func (m *Masker) MaskAttr(groups []string, attr slog.Attr) slog.Attr {
	if !m.config.Enabled {
		return attr
	}
	if m.shouldMaskField(attr.Key) {
		return slog.String(attr.Key, maskedValue)
	}
	if attr.Value.Kind() == slog.KindString {
		return slog.String(attr.Key, m.MaskString(attr.Value.String()))
	}
	return attr
}

func (m *Masker) shouldMaskField(field string) bool {
	fieldLower := strings.ToLower(field)
	for _, maskField := range m.config.Fields {
		if strings.ToLower(maskField) == fieldLower {
			return true
		}
	}
	for _, sensitive := range sensitiveFields {
		if strings.Contains(fieldLower, sensitive) {
			return true
		}
	}
	return false
}

// MaskString masks known secrets and sensitive patterns in s
func (m *Masker) MaskString(s string) string {
	masked := s
	for _, secret := range m.secrets {
		masked = strings.ReplaceAll(masked, secret, maskedValue)
	}
	for _, pattern := range m.patterns {
		masked = pattern.ReplaceAllStringFunc(masked, func(match string) string {
			if len(match) <= 4 {
				return "***"
			}
			return match[:2] + strings.Repeat("*", len(match)-4) + match[len(match)-2:]
		})
	}
	return masked
}
