package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JamesPrial/komikshub-bot/internal/storage"
	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/config"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// setup loads the configuration and initializes logging. Offline commands
// never talk to Telegram, so they validate as stdio and need no token.
// The returned func flushes and closes the logs.
func (o *options) setup(offline bool) (*config.Settings, func(), error) {
	var overrides []func(*config.Settings)
	if o.mode != "" {
		overrides = append(overrides, func(s *config.Settings) { s.Bot.Mode = o.mode })
	}
	if offline {
		overrides = append(overrides, func(s *config.Settings) { s.Bot.Mode = config.ModeStdio })
	}

	cfg, err := config.Load(o.configPath, overrides...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout belongs to the console transport and command output
	if cfg.Bot.Mode == config.ModeStdio && cfg.Logging.Output == logging.LogOutputStdout {
		cfg.Logging.Output = logging.LogOutputStderr
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	errors.SetDefaultLogger(logging.GetGlobalLogger("errors"))

	return cfg, func() { logging.Shutdown() }, nil
}

// openCatalog opens the configured backend and, when seed is set, fills an
// empty catalog with the seed characters.
func openCatalog(ctx context.Context, cfg *config.Settings, seed bool) (storage.Backend, error) {
	backend, err := storage.NewBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if !seed {
		return backend, nil
	}

	if _, err := seedCatalog(ctx, backend, cfg.Storage.SeedPath); err != nil {
		backend.Close()
		return nil, err
	}
	return backend, nil
}

func seedCatalog(ctx context.Context, backend storage.Backend, seedPath string) (int, error) {
	chars := catalog.DefaultSeed()
	if seedPath != "" {
		var err error
		chars, err = storage.ReadCatalogFile(seedPath)
		if err != nil {
			return 0, fmt.Errorf("failed to read seed file: %w", err)
		}
		logging.GetGlobalLogger("main").Info("Loaded seed file",
			slog.String("path", seedPath), slog.Int("characters", len(chars)))
	}

	inserted, err := storage.Seed(ctx, backend, chars)
	if err != nil {
		return inserted, fmt.Errorf("failed to seed catalog: %w", err)
	}
	return inserted, nil
}
