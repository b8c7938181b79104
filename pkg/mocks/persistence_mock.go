// Package mocks provides testify mocks of the storage and transport interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/tierflow/pkg/persistence"
)

// MockSnapshotStore is a mock implementation of persistence.SnapshotStore.
type MockSnapshotStore struct {
	mock.Mock
}

var _ persistence.SnapshotStore = (*MockSnapshotStore)(nil)

func (m *MockSnapshotStore) Save(ctx context.Context, key string, blob []byte) error {
	args := m.Called(ctx, key, blob)

	return args.Error(0)
}

func (m *MockSnapshotStore) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSnapshotStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)

	return args.Error(0)
}

func (m *MockSnapshotStore) Keys(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSnapshotStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockSnapshotStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
