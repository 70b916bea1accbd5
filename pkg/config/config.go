package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// Bot modes
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
	ModeStdio   = "stdio"
)

// Storage types
const (
	StorageMemory = "memory"
	StorageSqlite = "sqlite"
	StorageFile   = "file"
)

// Session store types
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Environment variables that override the file, as the bot is usually
// deployed with its token and port injected by the platform.
const (
	EnvToken    = "TELEGRAM_TOKEN"
	EnvPort     = "PORT"
	EnvAdminIDs = "KOMIKSHUB_ADMIN_IDS"
	EnvRedisURL = "REDIS_URL"
)

type Settings struct {
	Bot     BotSettings     `yaml:"bot"`
	Access  AccessSettings  `yaml:"access"`
	Storage StorageSettings `yaml:"storage"`
	Matcher MatcherSettings `yaml:"matcher"`
	Session SessionSettings `yaml:"session"`
	Admin   AdminSettings   `yaml:"admin"`
	Logging *logging.Config `yaml:"logging"`
}

type BotSettings struct {
	Token         string `yaml:"token"`
	Mode          string `yaml:"mode"`
	WebhookURL    string `yaml:"webhookURL"`
	WebhookListen string `yaml:"webhookListen"`
	WebhookSecret string `yaml:"webhookSecret"`
	PollTimeout   int    `yaml:"pollTimeout"` // seconds
	Workers       int    `yaml:"workers"`
	Debug         bool   `yaml:"debug"`
}

type AccessSettings struct {
	AdminIDs []int64 `yaml:"adminIds"`
}

type StorageSettings struct {
	Type     string         `yaml:"type"`
	Path     string         `yaml:"path"`
	Sqlite   SqliteSettings `yaml:"sqlite"`
	Seed     bool           `yaml:"seed"`
	SeedPath string         `yaml:"seedPath"`
}

type SqliteSettings struct {
	WALMode bool `yaml:"walMode"`
}

type MatcherSettings struct {
	Threshold int `yaml:"threshold"`
}

type SessionSettings struct {
	Store       string        `yaml:"store"`
	TTL         time.Duration `yaml:"ttl"`
	RedisURL    string        `yaml:"redisUrl"`
	RedisPrefix string        `yaml:"redisPrefix"`
}

type AdminSettings struct {
	Port int `yaml:"port"` // 0 disables the admin server
}

// Default returns settings for a polling bot with an in-memory catalog
func Default() *Settings {
	return &Settings{
		Bot: BotSettings{
			Mode:          ModePolling,
			WebhookListen: ":8443",
			PollTimeout:   60,
			Workers:       8,
		},
		Storage: StorageSettings{
			Type: StorageMemory,
			Seed: true,
		},
		Matcher: MatcherSettings{Threshold: 70},
		Session: SessionSettings{
			Store:       SessionMemory,
			TTL:         30 * time.Minute,
			RedisPrefix: "komikshub:session:",
		},
		Admin:   AdminSettings{Port: 8080},
		Logging: logging.DefaultConfig(),
	}
}

// Validate validates and normalizes the configuration settings
func (s *Settings) Validate() error {
	s.Bot.Mode = strings.ToLower(strings.TrimSpace(s.Bot.Mode))
	if s.Bot.Mode == "" {
		s.Bot.Mode = ModePolling
	}
	switch s.Bot.Mode {
	case ModePolling, ModeWebhook, ModeStdio:
	default:
		return fmt.Errorf("bot.mode must be one of [polling, webhook, stdio], got '%s'", s.Bot.Mode)
	}
	if s.Bot.Mode != ModeStdio && strings.TrimSpace(s.Bot.Token) == "" {
		return fmt.Errorf("bot.token (or %s) is required in %s mode", EnvToken, s.Bot.Mode)
	}
	if s.Bot.Mode == ModeWebhook && strings.TrimSpace(s.Bot.WebhookURL) == "" {
		return fmt.Errorf("bot.webhookURL is required in webhook mode")
	}
	if s.Bot.Workers < 1 {
		return fmt.Errorf("bot.workers must be at least 1, got %d", s.Bot.Workers)
	}
	if s.Bot.PollTimeout < 0 {
		return fmt.Errorf("bot.pollTimeout must not be negative, got %d", s.Bot.PollTimeout)
	}

	s.Storage.Type = strings.ToLower(strings.TrimSpace(s.Storage.Type))
	switch s.Storage.Type {
	case "":
		s.Storage.Type = StorageMemory
	case StorageMemory:
	case StorageSqlite, StorageFile:
		if strings.TrimSpace(s.Storage.Path) == "" {
			return fmt.Errorf("storage.path cannot be empty when storage.type is %s", s.Storage.Type)
		}
	default:
		return fmt.Errorf("storage.type must be one of [memory, sqlite, file], got '%s'", s.Storage.Type)
	}

	if s.Matcher.Threshold < 0 || s.Matcher.Threshold > 100 {
		return fmt.Errorf("matcher.threshold must be between 0 and 100, got %d", s.Matcher.Threshold)
	}

	s.Session.Store = strings.ToLower(strings.TrimSpace(s.Session.Store))
	switch s.Session.Store {
	case "":
		s.Session.Store = SessionMemory
	case SessionMemory:
	case SessionRedis:
		if strings.TrimSpace(s.Session.RedisURL) == "" {
			return fmt.Errorf("session.redisUrl (or %s) is required when session.store is redis", EnvRedisURL)
		}
	default:
		return fmt.Errorf("session.store must be one of [memory, redis], got '%s'", s.Session.Store)
	}
	if s.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %s", s.Session.TTL)
	}

	if s.Admin.Port < 0 || s.Admin.Port > 65535 {
		return fmt.Errorf("admin.port must be between 0 and 65535, got %d", s.Admin.Port)
	}

	if s.Logging == nil {
		s.Logging = logging.DefaultConfig()
	}
	if err := s.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	s.Logging.Masking.Secrets = secrets(s.Bot.Token, s.Bot.WebhookSecret, s.Session.RedisURL)

	return nil
}

func secrets(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ApplyEnv overrides settings from the environment through getenv
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvToken); v != "" {
		s.Bot.Token = v
	}
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s must be a number, got '%s'", EnvPort, v)
		}
		s.Admin.Port = port
	}
	if v := getenv(EnvAdminIDs); v != "" {
		ids, err := ParseIDs(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAdminIDs, err)
		}
		s.Access.AdminIDs = ids
	}
	if v := getenv(EnvRedisURL); v != "" {
		s.Session.RedisURL = v
	}
	return nil
}

// ParseIDs parses a comma-separated list of chat user ids
func ParseIDs(list string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id '%s'", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides, then the given overrides, and validates the result.
func Load(path string, overrides ...func(*Settings)) (*Settings, error) {
	settings := Default()

	if path != "" {
		bytes, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(bytes, settings); err != nil {
			return nil, err
		}
	}

	if err := settings.ApplyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	for _, override := range overrides {
		override(settings)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}
