package storage

import (
	"context"
	"log/slog"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// Seed inserts chars when the catalog is empty and returns how many were
// stored. A catalog that already holds characters is left untouched, so
// characters created through the bot survive restarts.
func Seed(ctx context.Context, backend Backend, chars []catalog.Character) (int, error) {
	logger := logging.GetGlobalLogger("storage.seed")

	stats, err := backend.GetStatistics(ctx)
	if err != nil {
		return 0, err
	}
	if stats["characters"] > 0 {
		logger.InfoContext(ctx, "Catalog already populated, skipping seed",
			slog.Int("characters", stats["characters"]))
		return 0, nil
	}

	inserted := 0
	for _, c := range chars {
		if _, err := backend.InsertCharacter(ctx, c); err != nil {
			if errors.Is(err, errors.ErrCodeEntityAlreadyExists) {
				logger.WarnContext(ctx, "Duplicate name in seed data", slog.String("name", c.Name))
				continue
			}
			return inserted, err
		}
		inserted++
	}

	logger.InfoContext(ctx, "Seeded catalog", slog.Int("inserted", inserted))
	if err := logging.GetGlobalAuditLogger().LogCatalogSeeded(ctx, inserted); err != nil {
		logger.WarnContext(ctx, "Failed to audit seeding", slog.String("error", err.Error()))
	}
	return inserted, nil
}
