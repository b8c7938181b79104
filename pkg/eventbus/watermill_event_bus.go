package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/dukex/tierflow/pkg/events"
	"github.com/dukex/tierflow/pkg/models"
)

type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu            sync.Mutex
	subscriptions map[models.Tier]EventHandler
	subscribed    map[models.Tier]bool
}

func NewWatermillEventBus(logger *slog.Logger, pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        logger.With("module", "eventbus"),
		subscriptions: make(map[models.Tier]EventHandler),
		subscribed:    make(map[models.Tier]bool),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, batch *events.TierBatch) error {
	payload, err := batch.Marshal()
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(batch.GetType()))
	msg.Metadata.Set(events.TierMetadataKey, string(batch.Tier))

	return eb.publisher.Publish(batch.Topic(), msg)
}

// Subscribe starts one consumer per registered tier that has none yet, so
// several runners can share a bus. Consumers stop when ctx is done or the bus
// is closed.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for tier, handler := range eb.subscriptions {
		if eb.subscribed[tier] {
			continue
		}

		messages, err := eb.subscriber.Subscribe(ctx, events.Topic(tier))
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", events.Topic(tier), err)
		}

		eb.subscribed[tier] = true

		go eb.consume(ctx, tier, handler, messages)
	}

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, tier models.Tier, handler EventHandler, messages <-chan *message.Message) {
	for msg := range messages {
		batch, err := events.Unmarshal(msg.Payload)
		if err != nil {
			eb.logger.Error("dropping undecodable batch", "tier", tier, "message_id", msg.UUID, "error", err)
			msg.Ack()

			continue
		}

		if err := handler(ctx, batch); err != nil {
			eb.logger.Warn("batch handler failed", "tier", tier, "batch_id", batch.ID, "error", err)
			msg.Nack()

			continue
		}

		msg.Ack()
	}
}

func (eb *WatermillEventBus) Handle(tier models.Tier, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, exists := eb.subscriptions[tier]; exists {
		return fmt.Errorf("handler for %s already registered", tier)
	}

	eb.subscriptions[tier] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
