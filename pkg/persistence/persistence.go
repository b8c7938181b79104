// Package persistence stores compiled pipeline snapshots by key.
package persistence

import "context"

// SnapshotStore keeps opaque graph snapshots produced by graph.MarshalBinary.
type SnapshotStore interface {
	Save(ctx context.Context, key string, blob []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
