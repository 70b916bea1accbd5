package storage

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
)

// MemoryBackend keeps the catalog in process memory
type MemoryBackend struct {
	mu     sync.RWMutex
	order  []string
	byID   map[string]catalog.Character
	byName map[string]string // NameKey -> ID
	instrument
}

// NewMemoryBackend creates a new memory-based storage backend
func NewMemoryBackend() *MemoryBackend {
	m := newMemoryBackend("memory")
	m.logger.Info("Creating memory backend")
	return m
}

func newMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{
		byID:       make(map[string]catalog.Character),
		byName:     make(map[string]string),
		instrument: newInstrument(name),
	}
}

// ListCharacters returns every character in insertion order
func (m *MemoryBackend) ListCharacters(ctx context.Context) (_ []catalog.Character, err error) {
	defer m.start(ctx, "listCharacters")(&err)
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(), nil
}

func (m *MemoryBackend) snapshotLocked() []catalog.Character {
	out := make([]catalog.Character, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// GetCharacter retrieves a character by ID
func (m *MemoryBackend) GetCharacter(ctx context.Context, id string) (_ *catalog.Character, err error) {
	defer m.start(ctx, "getCharacter")(&err)
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, exists := m.byID[id]
	if !exists {
		m.logger.DebugContext(ctx, "Character not found in memory", slog.String("character_id", id))
		return nil, nil
	}
	return &c, nil
}

// GetCharacterByName retrieves a character by its case-insensitive name
func (m *MemoryBackend) GetCharacterByName(ctx context.Context, name string) (_ *catalog.Character, err error) {
	defer m.start(ctx, "getCharacterByName")(&err)
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, exists := m.byName[catalog.NameKey(name)]
	if !exists {
		return nil, nil
	}
	c := m.byID[id]
	return &c, nil
}

// RandomCharacters returns up to n distinct characters
func (m *MemoryBackend) RandomCharacters(ctx context.Context, n int) (_ []catalog.Character, err error) {
	defer m.start(ctx, "randomCharacters")(&err)
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Newf(errors.ErrCodeValidationRange, "cannot pick %d characters", n)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.order) {
		n = len(m.order)
	}
	out := make([]catalog.Character, 0, n)
	for _, i := range rand.Perm(len(m.order))[:n] {
		out = append(out, m.byID[m.order[i]])
	}
	return out, nil
}

// InsertCharacter stores a new character
func (m *MemoryBackend) InsertCharacter(ctx context.Context, c catalog.Character) (_ catalog.Character, err error) {
	defer m.start(ctx, "insertCharacter")(&err)
	if err := checkContext(ctx); err != nil {
		return catalog.Character{}, err
	}

	c, err = prepareInsert(c)
	if err != nil {
		return catalog.Character{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.insertLocked(c); err != nil {
		m.logger.WarnContext(ctx, "Character already exists", slog.String("name", c.Name))
		return catalog.Character{}, err
	}
	m.logger.InfoContext(ctx, "Character stored in memory",
		slog.String("character_id", c.ID),
		slog.String("name", c.Name),
		slog.Int("total_characters", len(m.order)),
	)
	return c, nil
}

func (m *MemoryBackend) insertLocked(c catalog.Character) error {
	key := catalog.NameKey(c.Name)
	if _, exists := m.byName[key]; exists {
		return errors.Newf(errors.ErrCodeEntityAlreadyExists, "character '%s' already exists", c.Name)
	}
	if _, exists := m.byID[c.ID]; exists {
		return errors.Newf(errors.ErrCodeEntityAlreadyExists, "character with ID '%s' already exists", c.ID)
	}
	m.order = append(m.order, c.ID)
	m.byID[c.ID] = c
	m.byName[key] = c.ID
	return nil
}

// remove undoes an insert whose persistence failed
func (m *MemoryBackend) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, exists := m.byID[id]
	if !exists {
		return
	}
	delete(m.byID, id)
	delete(m.byName, catalog.NameKey(c.Name))
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// replace swaps the whole catalog, rejecting duplicate names
func (m *MemoryBackend) replace(chars []catalog.Character) error {
	fresh := newMemoryBackend(m.backend)
	for _, c := range chars {
		if err := fresh.insertLocked(c); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.order, m.byID, m.byName = fresh.order, fresh.byID, fresh.byName
	return nil
}

// GetStatistics returns the catalog size and a count per character type
func (m *MemoryBackend) GetStatistics(ctx context.Context) (_ map[string]int, err error) {
	defer m.start(ctx, "getStatistics")(&err)
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]int{"characters": len(m.order)}
	for _, c := range m.byID {
		if c.Type != "" {
			stats["type_"+c.Type]++
		}
	}
	return stats, nil
}

// Close closes the memory backend (no-op)
func (m *MemoryBackend) Close() error {
	return nil
}
