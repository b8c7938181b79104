package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/tierflow/pkg/eventbus"
	"github.com/dukex/tierflow/pkg/events"
	"github.com/dukex/tierflow/pkg/models"
)

// MockEventBus is a mock implementation of eventbus.EventBus.
type MockEventBus struct {
	mock.Mock
}

var _ eventbus.EventBus = (*MockEventBus)(nil)

func (m *MockEventBus) Publish(ctx context.Context, key string, batch *events.TierBatch) error {
	args := m.Called(ctx, key, batch)

	return args.Error(0)
}

func (m *MockEventBus) Handle(tier models.Tier, handler eventbus.EventHandler) error {
	args := m.Called(tier, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}
