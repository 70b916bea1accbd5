package dialogue

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(ctx context.Context, key Key) (Session, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(Session), args.Error(1)
}

func (m *MockStore) Save(ctx context.Context, key Key, s Session) error {
	args := m.Called(ctx, key, s)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, key Key) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
