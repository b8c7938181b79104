package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/tierflow/pkg/cmd"
	"github.com/dukex/tierflow/pkg/loader"
	"github.com/dukex/tierflow/pkg/persistence"
	"github.com/dukex/tierflow/pkg/registry"
	"github.com/dukex/tierflow/pkg/services"
)

// environment is what every subcommand opens before doing its work.
type environment struct {
	logger   *slog.Logger
	registry *registry.Registry
	store    persistence.SnapshotStore
	key      string
}

func openEnvironment(ctx context.Context, logger *slog.Logger, pluginsPath, databaseURL, key string) (*environment, error) {
	reg, err := cmd.NewRegistry(logger, pluginsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugins: %w", err)
	}

	store, err := cmd.NewSnapshotStore(ctx, logger, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	return &environment{logger: logger, registry: reg, store: store, key: key}, nil
}

func (e *environment) Close(ctx context.Context) {
	if err := e.store.Close(ctx); err != nil {
		e.logger.ErrorContext(ctx, "Failed to close snapshot store", "error", err)
	}
}

func (e *environment) pipeline() *services.Pipeline {
	return services.NewPipeline(e.logger, e.registry, e.store, e.key)
}

// loadGraph declares every node of a graph file on a new pipeline.
func (e *environment) loadGraph(path string) (*services.Pipeline, error) {
	specs, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	p := e.pipeline()

	for _, spec := range specs {
		if _, err := p.UpsertNode(spec); err != nil {
			return nil, err
		}
	}

	return p, nil
}
