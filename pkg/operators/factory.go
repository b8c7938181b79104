package operators

import (
	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
)

// Factory creates operators of one kind from their declarations.
type Factory struct {
	kind        Kind
	name        string
	description string
	schema      map[string]any
	params      func(spec models.NodeSpec, lib *funcs.Library) (Params, error)
}

// Create resolves the operator parameters and builds the operator.
func (f *Factory) Create(spec models.NodeSpec, lib *funcs.Library) (nodes.Node, error) {
	params, err := f.params(spec, lib)
	if err != nil {
		return nil, err
	}

	op, err := New(spec, params)
	if err != nil {
		return nil, err
	}

	if spec.ConfigBool("expanded", false) {
		op.(interface{ markExpanded(models.Tier, int) }).markExpanded(models.TierGlobal, spec.ConfigInt("contributors", 0))
	}

	return op, nil
}

// ID returns the factory ID.
func (f *Factory) ID() string { return string(f.kind) }

// Name returns the factory name.
func (f *Factory) Name() string { return f.name }

// Description returns the factory description.
func (f *Factory) Description() string { return f.description }

// Schema returns the JSON schema for the operator configuration.
func (f *Factory) Schema() map[string]any { return f.schema }

var expansionProperties = map[string]any{
	"expanded": map[string]any{
		"type":        "boolean",
		"description": "Marks a global collector copy that must not be expanded again",
	},
	"contributors": map[string]any{
		"type":    "integer",
		"minimum": 0,
	},
}

func properties(own map[string]any) map[string]any {
	out := make(map[string]any, len(own)+len(expansionProperties))
	for k, v := range expansionProperties {
		out[k] = v
	}

	for k, v := range own {
		out[k] = v
	}

	return out
}

func reduction(spec models.NodeSpec, lib *funcs.Library, op string) (funcs.Reduce, error) {
	r, err := lib.Reduce(spec.ConfigString("reduction", "add"))
	if err != nil {
		return funcs.Reduce{}, models.NewConfigError(op, spec.Name, err)
	}

	return r, nil
}

// NewKeyedReduceFactory creates the keyed reduction factory.
func NewKeyedReduceFactory() *Factory {
	return &Factory{
		kind:        KindKeyedReduce,
		name:        "Keyed Reduce",
		description: "Folds (key, value) pairs, or whole mappings, into a mapping using a named reduction.",
		schema: map[string]any{
			"type": "object",
			"properties": properties(map[string]any{
				"reduction": map[string]any{
					"type":    "string",
					"default": "add",
				},
			}),
		},
		params: func(spec models.NodeSpec, lib *funcs.Library) (Params, error) {
			r, err := reduction(spec, lib, "NewKeyedReduce")
			if err != nil {
				return nil, err
			}

			return ReduceParams{Reduction: r}, nil
		},
	}
}

// NewAccumulatorFactory creates the accumulator factory.
func NewAccumulatorFactory() *Factory {
	return &Factory{
		kind:        KindAccumulator,
		name:        "Accumulator",
		description: "Folds every input into one running value seeded by a named zero factory.",
		schema: map[string]any{
			"type": "object",
			"properties": properties(map[string]any{
				"reduction": map[string]any{
					"type":    "string",
					"default": "add",
				},
				"zero": map[string]any{
					"type":    "string",
					"default": "int",
					"enum":    []string{"int", "float", "list", "map"},
				},
			}),
		},
		params: func(spec models.NodeSpec, lib *funcs.Library) (Params, error) {
			r, err := reduction(spec, lib, "NewAccumulator")
			if err != nil {
				return nil, err
			}

			z, err := lib.Zero(spec.ConfigString("zero", "int"))
			if err != nil {
				return nil, models.NewConfigError("NewAccumulator", spec.Name, err)
			}

			return AccumulatorParams{Reduction: r, Zero: z}, nil
		},
	}
}

// NewPickerFactory creates the N-slot picker factory.
func NewPickerFactory() *Factory {
	return &Factory{
		kind:        KindPicker,
		name:        "Pick N",
		description: "Collects N values round-robin and emits them once every slot is filled.",
		schema: map[string]any{
			"type": "object",
			"properties": properties(map[string]any{
				"n": map[string]any{
					"type":    "integer",
					"minimum": 1,
				},
			}),
			"required": []string{"n"},
		},
		params: func(spec models.NodeSpec, _ *funcs.Library) (Params, error) {
			return PickerParams{N: spec.ConfigInt("n", 0)}, nil
		},
	}
}

// NewRollingFactory creates the rolling window factory.
func NewRollingFactory() *Factory {
	return &Factory{
		kind:        KindRolling,
		name:        "Rolling Buffer",
		description: "Keeps the N most recent values, optionally as a fixed-length numeric array.",
		schema: map[string]any{
			"type": "object",
			"properties": properties(map[string]any{
				"n": map[string]any{
					"type":    "integer",
					"minimum": 1,
				},
				"numeric": map[string]any{
					"type":    "boolean",
					"default": false,
				},
			}),
			"required": []string{"n"},
		},
		params: func(spec models.NodeSpec, _ *funcs.Library) (Params, error) {
			return RollingParams{N: spec.ConfigInt("n", 0), Numeric: spec.ConfigBool("numeric", false)}, nil
		},
	}
}
