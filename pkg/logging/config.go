package logging

import (
	"fmt"
	"strings"
)

// LogFormat represents the output format for logs
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LogOutput represents the destination for logs
type LogOutput string

const (
	LogOutputStdout LogOutput = "stdout"
	LogOutputStderr LogOutput = "stderr"
	LogOutputFile   LogOutput = "file"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config represents the complete logging configuration
type Config struct {
	Level  LogLevel  `yaml:"level" json:"level"`
	Format LogFormat `yaml:"format" json:"format"`
	Output LogOutput `yaml:"output" json:"output"`

	// File output, rotated by lumberjack
	FilePath string         `yaml:"filePath,omitempty" json:"filePath,omitempty"`
	Rotation RotationConfig `yaml:"rotation,omitempty" json:"rotation,omitempty"`

	// Component-specific log levels, e.g. {"storage.sqlite": "debug"}
	ComponentLevels map[string]LogLevel `yaml:"componentLevels,omitempty" json:"componentLevels,omitempty"`

	Masking MaskingConfig `yaml:"masking,omitempty" json:"masking,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`

	// Audit trail of privileged actions
	EnableAudit   bool   `yaml:"enableAudit" json:"enableAudit"`
	AuditFilePath string `yaml:"auditFilePath,omitempty" json:"auditFilePath,omitempty"`

	EnableCaller bool `yaml:"enableCaller" json:"enableCaller"`
}

// RotationConfig mirrors the lumberjack knobs
type RotationConfig struct {
	MaxSizeMB  int  `yaml:"maxSizeMb" json:"maxSizeMb"`
	MaxBackups int  `yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays int  `yaml:"maxAgeDays" json:"maxAgeDays"`
	Compress   bool `yaml:"compress" json:"compress"`
}

// MaskingConfig defines sensitive data masking rules
type MaskingConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Fields   []string `yaml:"fields" json:"fields"`
	Patterns []string `yaml:"patterns" json:"patterns"`

	// Secrets known at startup (bot token, webhook secret) are masked
	// wherever they appear in a string value.
	Secrets []string `yaml:"-" json:"-"`
}

// DefaultConfig returns a default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:  LogLevelInfo,
		Format: LogFormatJSON,
		Output: LogOutputStdout,
		Rotation: RotationConfig{
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Masking: MaskingConfig{
			Enabled: true,
		},
		Metrics: DefaultMetricsConfig(),
	}
}

// DevelopmentConfig returns a configuration suitable for local runs
func DevelopmentConfig() *Config {
	config := DefaultConfig()
	config.Level = LogLevelDebug
	config.Format = LogFormatText
	config.Output = LogOutputStderr
	config.EnableCaller = true
	return config
}

// ParseLevel converts a case-insensitive level name to a LogLevel
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "info", "":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return "", fmt.Errorf("invalid log level: %s", s)
	}
}

// Validate validates the logging configuration
func (c *Config) Validate() error {
	validLevels := map[LogLevel]bool{
		LogLevelDebug: true,
		LogLevelInfo:  true,
		LogLevelWarn:  true,
		LogLevelError: true,
	}
	if !validLevels[c.Level] {
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	for component, level := range c.ComponentLevels {
		if !validLevels[level] {
			return fmt.Errorf("invalid log level for component %s: %s", component, level)
		}
	}

	if c.Format != LogFormatJSON && c.Format != LogFormatText {
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	switch c.Output {
	case LogOutputStdout, LogOutputStderr:
	case LogOutputFile:
		if strings.TrimSpace(c.FilePath) == "" {
			return fmt.Errorf("filePath required when output is 'file'")
		}
	default:
		return fmt.Errorf("invalid log output: %s", c.Output)
	}

	if c.EnableAudit && strings.TrimSpace(c.AuditFilePath) == "" {
		c.AuditFilePath = "audit.log"
	}

	if c.Rotation.MaxSizeMB < 0 || c.Rotation.MaxBackups < 0 || c.Rotation.MaxAgeDays < 0 {
		return fmt.Errorf("rotation settings must be non-negative")
	}

	return nil
}

// GetLevelForComponent returns the log level for a specific component
func (c *Config) GetLevelForComponent(component string) LogLevel {
	if level, ok := c.ComponentLevels[component]; ok {
		return level
	}
	return c.Level
}
