// Package nodes implements the graph node model: stateless maps, conditional
// filters and the contracts shared by stateful operators.
package nodes

import (
	"fmt"

	"github.com/dukex/tierflow/pkg/models"
)

// Node is a vertex of the dataflow graph. Two nodes are the same node iff their names match.
type Node interface {
	// Name returns the unique identity of the node.
	Name() string

	// Type returns the declaration type, e.g. models.NodeTypeMap.
	Type() string

	// Inputs returns the ordered positional input ports.
	Inputs() []string

	// Outputs returns the ordered output ports.
	Outputs() []string

	// ConditionNeeds returns ports that must be present but are not passed as data.
	ConditionNeeds() []string

	// Parent returns the optional group name.
	Parent() string

	// Tier returns the tier tag assigned by the compiler.
	Tier() models.Tier

	// SetTier assigns the tier tag.
	SetTier(t models.Tier)

	// Distributable reports whether the node can be expanded across tiers.
	Distributable() bool

	// Spec describes the node as a serializable declaration.
	Spec() models.NodeSpec
}

// Callable is implemented by nodes that compute values.
type Callable interface {
	Node

	// Call runs the node on its positional inputs. A ready result holds one
	// value for a single output or a []any with one value per output.
	Call(args ...any) (models.Result, error)
}

// Stateful is implemented by nodes that hold state across invocations.
type Stateful interface {
	Node

	// Reset clears the internal state.
	Reset()

	// OnCycleEnd runs once per heartbeat.
	OnCycleEnd()
}

// Equal compares nodes by identity.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Name() == b.Name()
}

// Base carries the identity, ports and tier tag every node shares.
type Base struct {
	name           string
	inputs         []string
	outputs        []string
	conditionNeeds []string
	parent         string
	tier           models.Tier
}

// NewBase validates and stores the common node attributes.
func NewBase(op string, spec models.NodeSpec) (Base, error) {
	if spec.Name == "" {
		return Base{}, models.NewConfigError(op, spec.Name, fmt.Errorf("%w 'name'", models.ErrMissingField))
	}

	seen := make(map[string]bool, len(spec.Outputs))
	for _, out := range spec.Outputs {
		if out == "" {
			return Base{}, models.NewConfigError(op, spec.Name, fmt.Errorf("%w: empty output port", models.ErrInvalidPorts))
		}

		if seen[out] {
			return Base{}, models.NewConfigError(op, spec.Name, fmt.Errorf("%w: %q", models.ErrDuplicateOutput, out))
		}

		seen[out] = true
	}

	for _, in := range append(append([]string{}, spec.Inputs...), spec.ConditionNeeds...) {
		if in == "" {
			return Base{}, models.NewConfigError(op, spec.Name, fmt.Errorf("%w: empty input port", models.ErrInvalidPorts))
		}

		if seen[in] {
			return Base{}, models.NewConfigError(op, spec.Name, fmt.Errorf("%w: %q is both input and output", models.ErrInvalidPorts, in))
		}
	}

	return Base{
		name:           spec.Name,
		inputs:         clone(spec.Inputs),
		outputs:        clone(spec.Outputs),
		conditionNeeds: clone(spec.ConditionNeeds),
		parent:         spec.Parent,
	}, nil
}

func (b *Base) Name() string             { return b.name }
func (b *Base) Inputs() []string         { return b.inputs }
func (b *Base) Outputs() []string        { return b.outputs }
func (b *Base) ConditionNeeds() []string { return b.conditionNeeds }
func (b *Base) Parent() string           { return b.parent }
func (b *Base) Tier() models.Tier        { return b.tier }
func (b *Base) SetTier(t models.Tier)    { b.tier = t }

// Distributable is false unless a node overrides it.
func (b *Base) Distributable() bool { return false }

// BaseSpec fills the shared fields of a declaration.
func (b *Base) BaseSpec(nodeType string, config map[string]any) models.NodeSpec {
	return models.NodeSpec{
		Name:           b.name,
		Type:           nodeType,
		Inputs:         clone(b.inputs),
		Outputs:        clone(b.outputs),
		ConditionNeeds: clone(b.conditionNeeds),
		Parent:         b.parent,
		Config:         config,
	}
}

func clone(ports []string) []string {
	if ports == nil {
		return nil
	}

	out := make([]string, len(ports))
	copy(out, ports)

	return out
}
