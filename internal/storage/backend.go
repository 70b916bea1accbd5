package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
	"github.com/JamesPrial/komikshub-bot/pkg/logging"
)

// Backend is the character catalog. Lookups that find nothing return
// (nil, nil), as callers treat absence as a normal outcome.
type Backend interface {
	// ListCharacters returns the whole catalog in insertion order
	ListCharacters(ctx context.Context) ([]catalog.Character, error)
	GetCharacter(ctx context.Context, id string) (*catalog.Character, error)
	GetCharacterByName(ctx context.Context, name string) (*catalog.Character, error)
	// RandomCharacters returns up to n distinct characters in random order
	RandomCharacters(ctx context.Context, n int) ([]catalog.Character, error)
	// InsertCharacter validates c, assigns its ID and creation time and
	// stores it. Names are unique by catalog.NameKey.
	InsertCharacter(ctx context.Context, c catalog.Character) (catalog.Character, error)
	GetStatistics(ctx context.Context) (map[string]int, error)
	Close() error
}

// prepareInsert normalizes and validates c and fills in generated fields
func prepareInsert(c catalog.Character) (catalog.Character, error) {
	c = c.Normalize()
	if err := c.Validate(); err != nil {
		return c, err
	}
	if c.ID == "" {
		c.ID = catalog.NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return c, nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errors.FromContext(ctx.Err())
	default:
		return nil
	}
}

// instrument times backend calls into the component log and the metrics
// collector.
type instrument struct {
	backend string
	logger  *slog.Logger
	metrics *logging.MetricsCollector
}

func newInstrument(backend string) instrument {
	return instrument{
		backend: backend,
		logger:  logging.GetGlobalLogger("storage." + backend),
		metrics: logging.GetGlobalMetricsCollector(),
	}
}

// start begins timing op; call the returned func with the address of the
// named error result.
func (in instrument) start(ctx context.Context, op string) func(*error) {
	timer := logging.StartTimer(ctx, in.logger, op)
	return func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		in.metrics.RecordStorageOperation(in.backend, op, timer.EndWithError(err), err)
	}
}
