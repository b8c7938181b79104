// Package operators implements the distributable stateful operators: keyed
// reduction, folding accumulator, N-slot picker and rolling window.
//
// Every operator can be expanded into worker, local collector and global
// collector copies. Expansion is driven by the operator's Params variant; the
// copies share parameters but never state.
package operators

import (
	"fmt"

	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
)

// Kind identifies a concrete operator.
type Kind string

const (
	KindKeyedReduce Kind = models.NodeTypeKeyedReduce
	KindAccumulator Kind = models.NodeTypeAccumulator
	KindPicker      Kind = models.NodeTypePicker
	KindRolling     Kind = models.NodeTypeRollingBuffer
)

// Operator is a distributable stateful node.
type Operator interface {
	nodes.Callable
	nodes.Stateful

	// Kind returns the concrete operator kind.
	Kind() Kind

	// OnExpand returns the parameters every expanded copy is built from.
	OnExpand() Params

	// Expanded reports whether the operator is a tier copy.
	Expanded() bool

	// Contributors returns how many upstream instances feed this copy, zero if untracked.
	Contributors() int

	// State returns a serializable snapshot of the internal state.
	State() any

	// Restore replaces the internal state; decode fills the pointer it is given.
	Restore(decode func(target any) error) error
}

// Params is the closed set of per-kind expansion parameters.
type Params interface {
	// Kind returns the operator kind the params build.
	Kind() Kind

	// Capacity returns the capacity parameter, if the kind has one.
	Capacity() (int, bool)

	// WithCapacity returns a copy with the capacity replaced.
	WithCapacity(n int) Params
}

// ReduceParams builds a keyed reduction.
type ReduceParams struct {
	Reduction funcs.Reduce
}

// AccumulatorParams builds an accumulator.
type AccumulatorParams struct {
	Reduction funcs.Reduce
	Zero      funcs.Zero
}

// PickerParams builds an N-slot picker.
type PickerParams struct {
	N int
}

// RollingParams builds a rolling window.
type RollingParams struct {
	N       int
	Numeric bool
}

func (ReduceParams) Kind() Kind                { return KindKeyedReduce }
func (ReduceParams) Capacity() (int, bool)     { return 0, false }
func (p ReduceParams) WithCapacity(int) Params { return p }

func (AccumulatorParams) Kind() Kind                { return KindAccumulator }
func (AccumulatorParams) Capacity() (int, bool)     { return 0, false }
func (p AccumulatorParams) WithCapacity(int) Params { return p }

func (PickerParams) Kind() Kind              { return KindPicker }
func (p PickerParams) Capacity() (int, bool) { return p.N, true }

func (p PickerParams) WithCapacity(n int) Params {
	p.N = n

	return p
}

func (RollingParams) Kind() Kind              { return KindRolling }
func (p RollingParams) Capacity() (int, bool) { return p.N, true }

func (p RollingParams) WithCapacity(n int) Params {
	p.N = n

	return p
}

// New builds a fresh operator from its params.
func New(spec models.NodeSpec, params Params) (Operator, error) {
	switch p := params.(type) {
	case ReduceParams:
		return NewKeyedReduce(spec, p.Reduction)
	case AccumulatorParams:
		return NewAccumulator(spec, p.Reduction, p.Zero)
	case PickerParams:
		return NewPicker(spec, p.N)
	case RollingParams:
		return NewRolling(spec, p.N, p.Numeric)
	default:
		return nil, models.NewConfigError("operators.New", spec.Name, fmt.Errorf("%w: %T", models.ErrUnknownNodeType, params))
	}
}

// Expand builds the tier copy of an operator. The copy is tagged with tier and
// flagged as expanded.
func Expand(spec models.NodeSpec, params Params, tier models.Tier, contributors int) (Operator, error) {
	op, err := New(spec, params)
	if err != nil {
		return nil, err
	}

	d, ok := op.(interface{ markExpanded(models.Tier, int) })
	if !ok {
		return nil, models.NewConfigError("operators.Expand", spec.Name, fmt.Errorf("%w: %T cannot be expanded", models.ErrInvalidConfig, op))
	}

	d.markExpanded(tier, contributors)

	return op, nil
}

// distributed carries the expansion bookkeeping shared by all operators.
type distributed struct {
	nodes.Base

	expanded     bool
	contributors int
}

func newDistributed(op string, spec models.NodeSpec) (distributed, error) {
	if len(spec.Inputs) == 0 {
		return distributed{}, models.NewConfigError(op, spec.Name, fmt.Errorf("%w: at least one input", models.ErrInvalidPorts))
	}

	if len(spec.Outputs) != 1 {
		return distributed{}, models.NewConfigError(op, spec.Name, fmt.Errorf("%w: exactly one output", models.ErrInvalidPorts))
	}

	base, err := nodes.NewBase(op, spec)
	if err != nil {
		return distributed{}, err
	}

	return distributed{Base: base}, nil
}

func (d *distributed) Distributable() bool { return true }
func (d *distributed) Expanded() bool      { return d.expanded }
func (d *distributed) Contributors() int   { return d.contributors }

func (d *distributed) markExpanded(tier models.Tier, contributors int) {
	d.expanded = true
	d.contributors = contributors
	d.SetTier(tier)
}

func (d *distributed) spec(kind Kind, config map[string]any) models.NodeSpec {
	if d.expanded {
		config["expanded"] = true
		config["contributors"] = d.contributors
	}

	return d.BaseSpec(string(kind), config)
}

// endCycle resets worker and local state; global state survives the heartbeat.
func endCycle(s nodes.Stateful) {
	if s.Tier() != models.TierGlobal {
		s.Reset()
	}
}
