package registry

import (
	"log/slog"

	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/nodes"
	"github.com/dukex/tierflow/pkg/operators"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(nodes.NewMapFactory())
	r.RegisterNode(nodes.NewFilterOnFactory())
	r.RegisterNode(nodes.NewFilterOffFactory())

	r.RegisterNode(operators.NewKeyedReduceFactory())
	r.RegisterNode(operators.NewAccumulatorFactory())
	r.RegisterNode(operators.NewPickerFactory())
	r.RegisterNode(operators.NewRollingFactory())
}

// Default returns a registry with the built-in nodes and functions.
func Default(log *slog.Logger) *Registry {
	r := NewRegistry(log, funcs.Default())
	r.RegisterDefaultNodes()

	return r
}
