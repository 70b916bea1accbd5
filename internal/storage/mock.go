package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListCharacters(ctx context.Context) ([]catalog.Character, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Character), args.Error(1)
}

func (m *MockBackend) GetCharacter(ctx context.Context, id string) (*catalog.Character, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Character), args.Error(1)
}

func (m *MockBackend) GetCharacterByName(ctx context.Context, name string) (*catalog.Character, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Character), args.Error(1)
}

func (m *MockBackend) RandomCharacters(ctx context.Context, n int) ([]catalog.Character, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Character), args.Error(1)
}

func (m *MockBackend) InsertCharacter(ctx context.Context, c catalog.Character) (catalog.Character, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(catalog.Character), args.Error(1)
}

func (m *MockBackend) GetStatistics(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}
