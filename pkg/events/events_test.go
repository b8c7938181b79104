package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/tierflow/pkg/models"
)

func TestTopic(t *testing.T) {
	tests := []struct {
		tier  models.Tier
		topic string
	}{
		{models.TierWorker, "tierflow.worker"},
		{models.TierLocal, "tierflow.local_collector"},
		{models.TierGlobal, "tierflow.global_collector"},
		{models.TierUnset, ResultsTopic},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			assert.Equal(t, tt.topic, Topic(tt.tier))
		})
	}
}

func TestTierBatch_RoundTrip(t *testing.T) {
	batch := NewTierBatch("worker-1", 3, models.TierLocal, map[string]any{
		"binned_worker": map[any]any{int64(8): []any{20000.0, int64(2)}},
		"label":         "a",
	})

	assert.Equal(t, TierBatchEvent, batch.GetType())
	assert.Equal(t, "tierflow.local_collector", batch.Topic())
	assert.NotEmpty(t, batch.ID)

	data, err := batch.Marshal()
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, batch.ID, decoded.ID)
	assert.Equal(t, batch.Heartbeat, decoded.Heartbeat)
	assert.Equal(t, batch.Tier, decoded.Tier)
	assert.Equal(t, batch.Values, decoded.Values)
	assert.True(t, batch.Timestamp.Equal(decoded.Timestamp))
}

func TestNewTierBatch_Result(t *testing.T) {
	batch := NewTierBatch("global", 1, models.TierUnset, map[string]any{"sum": int64(4)})

	assert.Equal(t, ResultEvent, batch.GetType())
	assert.Equal(t, ResultsTopic, batch.Topic())
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := Unmarshal([]byte{0xc1})
	assert.Error(t, err)
}
