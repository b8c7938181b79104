// Package eventbus moves tier batches between the processes of a pipeline.
package eventbus

import (
	"context"

	"github.com/dukex/tierflow/pkg/events"
	"github.com/dukex/tierflow/pkg/models"
)

type EventPublisher interface {
	Publish(ctx context.Context, key string, batch *events.TierBatch) error
}

// EventSubscriber delivers batches addressed to the tiers a handler was
// registered for. models.TierUnset registers for final results.
type EventSubscriber interface {
	Handle(tier models.Tier, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, batch *events.TierBatch) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
