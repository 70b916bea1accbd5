package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// clearEnv keeps the host environment from leaking into Load
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvToken, EnvPort, EnvAdminIDs, EnvRedisURL} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Success(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
bot:
  token: "123:abc"
  mode: "Webhook"
  webhookURL: "https://bot.example.com/hook"
  workers: 4
access:
  adminIds: [5444215307, 42]
storage:
  type: "sqlite"
  path: "/var/data/komikshub.db"
  sqlite:
    walMode: true
matcher:
  threshold: 80
session:
  store: "redis"
  ttl: "10m"
  redisUrl: "redis://localhost:6379/0"
admin:
  port: 9000
logging:
  level: "debug"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ModeWebhook, cfg.Bot.Mode)
	assert.Equal(t, 4, cfg.Bot.Workers)
	assert.Equal(t, 60, cfg.Bot.PollTimeout, "unset fields keep defaults")
	assert.Equal(t, []int64{5444215307, 42}, cfg.Access.AdminIDs)
	assert.Equal(t, StorageSqlite, cfg.Storage.Type)
	assert.True(t, cfg.Storage.Sqlite.WALMode)
	assert.Equal(t, 80, cfg.Matcher.Threshold)
	assert.Equal(t, SessionRedis, cfg.Session.Store)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 9000, cfg.Admin.Port)
	assert.Equal(t, logging.LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, logging.LogFormatJSON, cfg.Logging.Format, "logging defaults survive partial section")
	assert.ElementsMatch(t, []string{"123:abc", "redis://localhost:6379/0"}, cfg.Logging.Masking.Secrets)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvToken, "999:token")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ModePolling, cfg.Bot.Mode)
	assert.Equal(t, "999:token", cfg.Bot.Token)
	assert.Equal(t, 70, cfg.Matcher.Threshold)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.True(t, cfg.Storage.Seed)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("non_existent_file.yaml")
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, `[invalid yaml - unclosed bracket`))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvToken, "from-env")
	t.Setenv(EnvPort, "10000")
	t.Setenv(EnvAdminIDs, "1, 2,3")

	cfg, err := Load(writeConfig(t, "bot:\n  token: from-file\n"))

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Bot.Token)
	assert.Equal(t, 10000, cfg.Admin.Port)
	assert.Equal(t, []int64{1, 2, 3}, cfg.Access.AdminIDs)
}

func TestLoad_OverridesRunBeforeValidation(t *testing.T) {
	clearEnv(t)

	_, err := Load("")
	assert.ErrorContains(t, err, "bot.token")

	cfg, err := Load("", func(s *Settings) { s.Bot.Mode = ModeStdio })
	require.NoError(t, err)
	assert.Equal(t, ModeStdio, cfg.Bot.Mode)
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvToken, "t")
	t.Setenv(EnvPort, "eighty")

	_, err := Load("")
	assert.ErrorContains(t, err, "PORT must be a number")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(s *Settings)
		wantErr string
	}{
		{"unknown mode", func(s *Settings) { s.Bot.Mode = "carrier-pigeon" }, "bot.mode must be one of"},
		{"missing token", func(s *Settings) { s.Bot.Token = "" }, "bot.token"},
		{"webhook without url", func(s *Settings) { s.Bot.Mode = ModeWebhook }, "webhookURL is required"},
		{"zero workers", func(s *Settings) { s.Bot.Workers = 0 }, "bot.workers"},
		{"sqlite without path", func(s *Settings) { s.Storage.Type = "SQLITE" }, "storage.path cannot be empty"},
		{"file without path", func(s *Settings) { s.Storage.Type = StorageFile }, "storage.path cannot be empty"},
		{"unknown storage", func(s *Settings) { s.Storage.Type = "postgres" }, "storage.type must be one of"},
		{"threshold too high", func(s *Settings) { s.Matcher.Threshold = 101 }, "matcher.threshold"},
		{"threshold negative", func(s *Settings) { s.Matcher.Threshold = -1 }, "matcher.threshold"},
		{"redis without url", func(s *Settings) { s.Session.Store = SessionRedis }, "redisUrl"},
		{"unknown session store", func(s *Settings) { s.Session.Store = "etcd" }, "session.store must be one of"},
		{"zero ttl", func(s *Settings) { s.Session.TTL = 0 }, "session.ttl"},
		{"port too high", func(s *Settings) { s.Admin.Port = 65536 }, "admin.port"},
		{"bad log level", func(s *Settings) { s.Logging.Level = "loud" }, "logging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			s.Bot.Token = "token"
			tt.modify(s)
			err := s.Validate()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_Normalizes(t *testing.T) {
	s := Default()
	s.Bot.Mode = " STDIO "
	s.Storage.Type = ""
	s.Session.Store = "Memory"
	s.Logging = nil

	require.NoError(t, s.Validate())
	assert.Equal(t, ModeStdio, s.Bot.Mode)
	assert.Equal(t, StorageMemory, s.Storage.Type)
	assert.Equal(t, SessionMemory, s.Session.Store)
	assert.NotNil(t, s.Logging)
	assert.Empty(t, s.Logging.Masking.Secrets, "stdio mode needs no token")
}

func TestValidate_ThresholdBounds(t *testing.T) {
	for _, threshold := range []int{0, 100} {
		s := Default()
		s.Bot.Mode = ModeStdio
		s.Matcher.Threshold = threshold
		assert.NoError(t, s.Validate())
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs("5444215307,,  7 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{5444215307, 7}, ids)

	_, err = ParseIDs("1,admin")
	assert.ErrorContains(t, err, "invalid user id 'admin'")
}
