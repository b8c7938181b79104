package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/tierflow/pkg/persistence"
)

var _ persistence.SnapshotStore = (*Store)(nil)

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "snapshots")
	store := NewStore("file://" + root)

	assert.ErrorIs(t, store.HealthCheck(ctx), os.ErrNotExist)

	_, err := store.Load(ctx, "binning")
	assert.True(t, persistence.IsSnapshotNotFound(err))

	require.NoError(t, store.Save(ctx, "binning", []byte{1, 2, 3}))
	require.NoError(t, store.Save(ctx, "alpha", []byte{4}))
	require.NoError(t, store.HealthCheck(ctx))

	data, err := store.Load(ctx, "binning")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, store.Save(ctx, "binning", []byte{9}))
	data, err = store.Load(ctx, "binning")
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, data, "saving again overwrites")

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "binning"}, keys)

	require.NoError(t, store.Delete(ctx, "binning"))
	assert.ErrorIs(t, store.Delete(ctx, "binning"), persistence.ErrSnapshotNotFound)

	keys, err = store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, keys)

	require.NoError(t, store.Close(ctx))
}

func TestStore_RejectsInvalidKeys(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir())

	assert.ErrorIs(t, store.Save(ctx, "../outside", []byte{1}), persistence.ErrInvalidKey)

	_, err := store.Load(ctx, "")
	assert.ErrorIs(t, err, persistence.ErrInvalidKey)
	assert.ErrorIs(t, store.Delete(ctx, "a/b"), persistence.ErrInvalidKey)
}
