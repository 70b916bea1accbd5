package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/komikshub-bot/pkg/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvToken, config.EnvPort, config.EnvAdminIDs, config.EnvRedisURL} {
		t.Setenv(key, "")
	}
}

// writeConfig writes a stdio config with the admin server disabled
func writeConfig(t *testing.T, storage string) string {
	t.Helper()
	content := "bot:\n  mode: stdio\nadmin:\n  port: 0\n" + storage
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// sqliteStorage points the catalog at a fresh database without auto-seeding
func sqliteStorage(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "catalog.db")
	return "storage:\n  type: sqlite\n  path: " + path + "\n  seed: false\n"
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStats_SeededMemoryCatalog(t *testing.T) {
	clearEnv(t)
	cfg := writeConfig(t, "")

	out, err := execute(t, "", "stats", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "characters: 2")
	assert.Contains(t, out, "type_Антигерой: 1")
}

func TestSeed_OnlyFillsEmptyCatalog(t *testing.T) {
	clearEnv(t)
	cfg := writeConfig(t, sqliteStorage(t))

	out, err := execute(t, "", "seed", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 2 characters")

	out, err = execute(t, "", "seed", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 0 characters")

	out, err = execute(t, "", "stats", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "characters: 2")
}

func TestSeed_FromFile(t *testing.T) {
	clearEnv(t)
	cfg := writeConfig(t, sqliteStorage(t))
	seedFile := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedFile, []byte("characters:\n  - name: Хеллбой\n    publisher: Dark Horse\n"), 0644))

	out, err := execute(t, "", "seed", "--config", cfg, "--file", seedFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 1 characters")

	_, err = execute(t, "", "seed", "--config", cfg, "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read seed file")
}

func TestSearch_PrintsScores(t *testing.T) {
	clearEnv(t)
	cfg := writeConfig(t, "")

	out, err := execute(t, "", "search", "--config", cfg, "паук")
	require.NoError(t, err)
	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "Человек-паук Нуар (Marvel)")
	assert.Contains(t, out, "Спаун (Image)")

	out, err = execute(t, "", "search", "--config", cfg, "--threshold", "80", "паук")
	require.NoError(t, err)
	assert.Contains(t, out, "Человек-паук Нуар (Marvel)")
	assert.NotContains(t, out, "Спаун (Image)")

	out, err = execute(t, "", "search", "--config", cfg, "xyz123")
	require.NoError(t, err)
	assert.Contains(t, out, "No characters match")
}

func TestSearch_RequiresQuery(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "", "search", "--config", writeConfig(t, ""))
	assert.Error(t, err)
}

func TestServe_ConsoleSession(t *testing.T) {
	clearEnv(t)
	cfg := writeConfig(t, "")

	out, err := execute(t, "/start\nнайти\nСпаун\n", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Привет")
	assert.Contains(t, out, "Введи запрос")
	assert.Contains(t, out, "Издатель: Image")
}

func TestServe_ModeFlagOverridesConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvPort, "0")

	_, err := execute(t, "", "serve")
	assert.ErrorContains(t, err, "bot.token")

	_, err = execute(t, "", "serve", "--mode", "stdio")
	assert.NoError(t, err)
}

func TestOfflineCommandsNeedNoToken(t *testing.T) {
	clearEnv(t)

	out, err := execute(t, "", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "characters: 2")
}
