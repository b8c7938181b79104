// Package events defines the messages exchanged between tier processes.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/dukex/tierflow/pkg/codec"
	"github.com/dukex/tierflow/pkg/models"
)

type EventType string

// Every tier consumes its own topic. The global collector publishes final
// outputs on ResultsTopic.
const (
	TopicPrefix  = "tierflow."
	ResultsTopic = TopicPrefix + "results"
)

const (
	EventMetadataKey     = "key"
	EventTypeMetadataKey = "event_type"
	TierMetadataKey      = "tier"
)

const (
	// TierBatchEvent carries values for a tier to evaluate.
	TierBatchEvent EventType = "tier.batch"

	// ResultEvent carries the final outputs of a cycle.
	ResultEvent EventType = "tier.result"
)

// Topic returns the topic consumed by tier. Anything that is not an
// executable tier maps to ResultsTopic.
func Topic(tier models.Tier) string {
	if !tier.Valid() {
		return ResultsTopic
	}

	return TopicPrefix + string(tier)
}

// TierBatch is a set of port values addressed to one tier.
type TierBatch struct {
	ID        string         `msgpack:"id"`
	Type      EventType      `msgpack:"type"`
	Timestamp time.Time      `msgpack:"timestamp"`
	Heartbeat int            `msgpack:"heartbeat"`
	Source    string         `msgpack:"source"`
	Tier      models.Tier    `msgpack:"tier"`
	Values    map[string]any `msgpack:"values"`
}

// NewTierBatch creates a batch addressed to tier. models.TierUnset makes a
// result event.
func NewTierBatch(source string, heartbeat int, tier models.Tier, values map[string]any) *TierBatch {
	eventType := TierBatchEvent
	if !tier.Valid() {
		eventType = ResultEvent
	}

	return &TierBatch{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Heartbeat: heartbeat,
		Source:    source,
		Tier:      tier,
		Values:    values,
	}
}

func (b *TierBatch) GetType() EventType {
	return b.Type
}

// Topic returns the topic the batch is published on.
func (b *TierBatch) Topic() string {
	return Topic(b.Tier)
}

// Marshal encodes the batch. Values keep their operator shapes, including
// mappings with non-string keys.
func (b *TierBatch) Marshal() ([]byte, error) {
	return codec.Marshal(b)
}

// Unmarshal decodes a batch produced by Marshal.
func Unmarshal(data []byte) (*TierBatch, error) {
	var b TierBatch
	if err := codec.Unmarshal(data, &b); err != nil {
		return nil, err
	}

	return &b, nil
}
