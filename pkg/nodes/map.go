package nodes

import (
	"fmt"

	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
)

// MapNode is a pure function from inputs to outputs.
type MapNode struct {
	Base

	fn funcs.Map
}

// NewMap creates a map node. The function must be callable.
func NewMap(spec models.NodeSpec, fn funcs.Map) (*MapNode, error) {
	base, err := NewBase("NewMap", spec)
	if err != nil {
		return nil, err
	}

	if !fn.Callable() {
		return nil, models.NewConfigError("NewMap", spec.Name, fmt.Errorf("%w: %q", models.ErrNotCallable, fn.Name))
	}

	if len(spec.Outputs) == 0 {
		return nil, models.NewConfigError("NewMap", spec.Name, fmt.Errorf("%w: at least one output", models.ErrInvalidPorts))
	}

	return &MapNode{Base: base, fn: fn}, nil
}

func (n *MapNode) Type() string { return models.NodeTypeMap }

// Func returns the name of the mapped function.
func (n *MapNode) Func() string { return n.fn.Name }

// Call applies the function and checks that it produced one value per output.
func (n *MapNode) Call(args ...any) (models.Result, error) {
	values, err := n.fn.Fn(args...)
	if err != nil {
		return models.Pending(), err
	}

	if len(values) != len(n.outputs) {
		return models.Pending(), fmt.Errorf("function %q returned %d values for %d outputs", n.fn.Name, len(values), len(n.outputs))
	}

	if len(values) == 1 {
		return models.Ready(values[0]), nil
	}

	return models.Ready(values), nil
}

func (n *MapNode) Spec() models.NodeSpec {
	return n.BaseSpec(models.NodeTypeMap, map[string]any{"func": n.fn.Name})
}
