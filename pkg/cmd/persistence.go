package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/tierflow/pkg/persistence"
	"github.com/dukex/tierflow/pkg/persistence/file"
	"github.com/dukex/tierflow/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "redis", "rediss"}

// NewSnapshotStore opens the store named by the scheme of databaseURL. URLs
// without a known scheme are treated as directories.
func NewSnapshotStore(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.SnapshotStore, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "redis", "rediss":
		return redis.NewStore(ctx, logger, databaseURL)
	default:
		return file.NewStore(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
