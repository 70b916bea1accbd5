package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
)

func TestMemoryBackend_NewMemoryBackend(t *testing.T) {
	backend := NewMemoryBackend()
	require.NotNil(t, backend)
	assert.NotNil(t, backend.byID)
	assert.NotNil(t, backend.byName)
}

func TestMemoryBackend_CanceledContext(t *testing.T) {
	backend := NewMemoryBackend()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.ListCharacters(ctx)
	assert.True(t, errors.Is(err, errors.ErrCodeContextCanceled))

	_, err = backend.InsertCharacter(ctx, noir())
	assert.True(t, errors.Is(err, errors.ErrCodeContextCanceled))
}

func TestMemoryBackend_ListReturnsCopy(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	_, err := backend.InsertCharacter(ctx, noir())
	require.NoError(t, err)

	all, err := backend.ListCharacters(ctx)
	require.NoError(t, err)
	all[0].Name = "mutated"

	again, err := backend.ListCharacters(ctx)
	require.NoError(t, err)
	assert.Equal(t, noir().Name, again[0].Name)
}

func TestMemoryBackend_RemoveUndoesInsert(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	first, err := backend.InsertCharacter(ctx, noir())
	require.NoError(t, err)
	second, err := backend.InsertCharacter(ctx, spawn())
	require.NoError(t, err)

	backend.remove(first.ID)
	backend.remove("unknown")

	all, err := backend.ListCharacters(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)

	// The name is free again
	_, err = backend.InsertCharacter(ctx, noir())
	assert.NoError(t, err)
}

func TestMemoryBackend_ReplaceRejectsDuplicates(t *testing.T) {
	backend := NewMemoryBackend()
	_, err := backend.InsertCharacter(context.Background(), noir())
	require.NoError(t, err)

	err = backend.replace([]catalog.Character{
		{ID: "a", Name: "Спаун"},
		{ID: "b", Name: "СПАУН"},
	})
	assert.True(t, errors.Is(err, errors.ErrCodeEntityAlreadyExists))

	all, err := backend.ListCharacters(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1, "failed replace keeps previous contents")
	assert.Equal(t, noir().Name, all[0].Name)
}
