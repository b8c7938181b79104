// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/dukex/tierflow/pkg/registry"
)

// NewRegistry returns the built-in node types plus any plugins found under
// pluginsPath. An empty path skips plugin loading.
func NewRegistry(log *slog.Logger, pluginsPath string) (*registry.Registry, error) {
	reg := registry.Default(log)

	if pluginsPath == "" {
		return reg, nil
	}

	plugins, err := reg.LoadNodePlugins(pluginsPath)
	if err != nil {
		return nil, err
	}

	log.Info("Loaded node plugins", "count", len(plugins), "path", pluginsPath)

	return reg, nil
}
