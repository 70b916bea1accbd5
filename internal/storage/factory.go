package storage

import (
	"fmt"

	"github.com/JamesPrial/komikshub-bot/pkg/config"
)

// NewBackend creates a new storage backend based on the configuration
func NewBackend(cfg *config.Settings) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	switch cfg.Storage.Type {
	case config.StorageSqlite:
		if cfg.Storage.Path == "" {
			return nil, fmt.Errorf("storage path is required for SQLite backend")
		}
		backend, err := NewSqliteBackend(cfg.Storage.Path, cfg.Storage.Sqlite.WALMode)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.StorageFile:
		if cfg.Storage.Path == "" {
			return nil, fmt.Errorf("storage path is required for file backend")
		}
		backend, err := NewFileBackend(cfg.Storage.Path, true)
		if err != nil {
			return nil, err
		}
		return backend, nil
	case config.StorageMemory, "":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
