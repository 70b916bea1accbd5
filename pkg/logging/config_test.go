package logging

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(c *Config)
		expectErr bool
		errMsg    string
	}{
		{
			name:   "default config",
			modify: func(c *Config) {},
		},
		{
			name:      "invalid level",
			modify:    func(c *Config) { c.Level = "verbose" },
			expectErr: true,
			errMsg:    "invalid log level",
		},
		{
			name: "invalid component level",
			modify: func(c *Config) {
				c.ComponentLevels = map[string]LogLevel{"storage": "loud"}
			},
			expectErr: true,
			errMsg:    "component storage",
		},
		{
			name:      "invalid format",
			modify:    func(c *Config) { c.Format = "xml" },
			expectErr: true,
			errMsg:    "invalid log format",
		},
		{
			name:      "file output without path",
			modify:    func(c *Config) { c.Output = LogOutputFile },
			expectErr: true,
			errMsg:    "filePath required",
		},
		{
			name:      "negative rotation",
			modify:    func(c *Config) { c.Rotation.MaxBackups = -1 },
			expectErr: true,
			errMsg:    "non-negative",
		},
		{
			name:      "unknown output",
			modify:    func(c *Config) { c.Output = "syslog" },
			expectErr: true,
			errMsg:    "invalid log output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()
			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error containing %q", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigValidateDefaultsAuditPath(t *testing.T) {
	config := DefaultConfig()
	config.EnableAudit = true
	if err := config.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.AuditFilePath != "audit.log" {
		t.Errorf("expected default audit path, got %q", config.AuditFilePath)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", LogLevelDebug, false},
		{"INFO", LogLevelInfo, false},
		{"", LogLevelInfo, false},
		{"warning", LogLevelWarn, false},
		{" error ", LogLevelError, false},
		{"trace", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if level != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, level)
			}
		})
	}
}

func TestGetLevelForComponent(t *testing.T) {
	config := DefaultConfig()
	config.ComponentLevels = map[string]LogLevel{"storage.sqlite": LogLevelDebug}

	if got := config.GetLevelForComponent("storage.sqlite"); got != LogLevelDebug {
		t.Errorf("expected debug override, got %s", got)
	}
	if got := config.GetLevelForComponent("bot"); got != LogLevelInfo {
		t.Errorf("expected default level, got %s", got)
	}
}
