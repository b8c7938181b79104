package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/tierflow/pkg/persistence/file"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"file:///var/lib/tierflow", "file"},
		{"redis://localhost:6379/0", "redis"},
		{"rediss://cache:6380", "rediss"},
		{"postgres://db/tierflow", "file"},
		{"./snapshots", "file"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, parsePersistenceProvider(tt.url))
		})
	}
}

func TestNewSnapshotStore_File(t *testing.T) {
	store, err := NewSnapshotStore(context.Background(), slog.Default(), "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Store{}, store)
}

func TestNewEventBus(t *testing.T) {
	bus, err := NewEventBus("gochannel", slog.Default(), "", "tierflow")
	require.NoError(t, err)
	assert.NoError(t, bus.Close())

	_, err = NewEventBus("nats", slog.Default(), "", "tierflow")
	assert.Error(t, err)

	_, err = NewEventBus("kafka", slog.Default(), "", "tierflow")
	assert.Error(t, err)
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(slog.Default(), "")
	require.NoError(t, err)
	assert.Len(t, reg.GetAvailableNodes(), 7)

	reg, err = NewRegistry(slog.Default(), t.TempDir())
	require.NoError(t, err)
	assert.Len(t, reg.GetAvailableNodes(), 7)
}
