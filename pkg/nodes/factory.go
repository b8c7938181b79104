package nodes

import (
	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
)

// MapFactory creates MapNode instances.
type MapFactory struct{}

// Create resolves the named function and builds the node.
func (f *MapFactory) Create(spec models.NodeSpec, lib *funcs.Library) (Node, error) {
	fn, err := lib.Map(spec.ConfigString("func", ""))
	if err != nil {
		return nil, models.NewConfigError("NewMap", spec.Name, err)
	}

	return NewMap(spec, fn)
}

// ID returns the factory ID.
func (f *MapFactory) ID() string {
	return models.NodeTypeMap
}

// Name returns the factory name.
func (f *MapFactory) Name() string {
	return "Map"
}

// Description returns the factory description.
func (f *MapFactory) Description() string {
	return "Applies a named pure function to its inputs and writes one value per output port."
}

// Schema returns the JSON schema for Map node configuration.
func (f *MapFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"func": map[string]any{
				"type":        "string",
				"description": "Name of a map function registered in the function library",
				"examples":    []string{"identity", "sum", "mean", "zip", "pair", "bin_means"},
			},
		},
		"required": []string{"func"},
	}
}

// NewMapFactory creates a new factory instance.
func NewMapFactory() *MapFactory {
	return &MapFactory{}
}

// FilterFactory creates FilterOn or FilterOff instances.
type FilterFactory struct {
	open bool
}

// Create builds the filter.
func (f *FilterFactory) Create(spec models.NodeSpec, _ *funcs.Library) (Node, error) {
	if f.open {
		return NewFilterOn(spec)
	}

	return NewFilterOff(spec)
}

// ID returns the factory ID.
func (f *FilterFactory) ID() string {
	if f.open {
		return models.NodeTypeFilterOn
	}

	return models.NodeTypeFilterOff
}

// Name returns the factory name.
func (f *FilterFactory) Name() string {
	if f.open {
		return "Filter On"
	}

	return "Filter Off"
}

// Description returns the factory description.
func (f *FilterFactory) Description() string {
	if f.open {
		return "Runs the downstream branch when the condition port holds a truthy value."
	}

	return "Runs the downstream branch when the condition port holds a falsy value."
}

// Schema returns the JSON schema for filter configuration. Filters take no config.
func (f *FilterFactory) Schema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
	}
}

// NewFilterOnFactory creates the factory for truthy gates.
func NewFilterOnFactory() *FilterFactory {
	return &FilterFactory{open: true}
}

// NewFilterOffFactory creates the factory for falsy gates.
func NewFilterOffFactory() *FilterFactory {
	return &FilterFactory{open: false}
}
