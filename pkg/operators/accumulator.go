package operators

import (
	"fmt"

	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
)

// Accumulator folds every argument into a single running value.
type Accumulator struct {
	distributed

	reduction funcs.Reduce
	zero      funcs.Zero
	value     any
}

// NewAccumulator creates an accumulator seeded by zero. Both functions must be callable.
func NewAccumulator(spec models.NodeSpec, reduction funcs.Reduce, zero funcs.Zero) (*Accumulator, error) {
	d, err := newDistributed("NewAccumulator", spec)
	if err != nil {
		return nil, err
	}

	if !reduction.Callable() {
		return nil, models.NewConfigError("NewAccumulator", spec.Name, fmt.Errorf("%w: reduction %q", models.ErrNotCallable, reduction.Name))
	}

	if !zero.Callable() {
		return nil, models.NewConfigError("NewAccumulator", spec.Name, fmt.Errorf("%w: zero factory %q", models.ErrNotCallable, zero.Name))
	}

	a := &Accumulator{distributed: d, reduction: reduction, zero: zero}
	a.Reset()

	return a, nil
}

func (a *Accumulator) Type() string { return models.NodeTypeAccumulator }
func (a *Accumulator) Kind() Kind   { return KindAccumulator }

func (a *Accumulator) OnExpand() Params {
	return AccumulatorParams{Reduction: a.reduction, Zero: a.zero}
}

// Call folds all arguments in order and returns the new running value.
func (a *Accumulator) Call(args ...any) (models.Result, error) {
	for i, arg := range args {
		next, err := a.reduction.Fn(a.value, arg)
		if err != nil {
			return models.Pending(), fmt.Errorf("argument %d: %w", i, err)
		}

		a.value = next
	}

	return models.Ready(a.value), nil
}

// Value returns the running value.
func (a *Accumulator) Value() any { return a.value }

func (a *Accumulator) Reset() {
	a.value = funcs.Normalize(a.zero.Fn())
}

func (a *Accumulator) OnCycleEnd() { endCycle(a) }

func (a *Accumulator) Spec() models.NodeSpec {
	return a.spec(KindAccumulator, map[string]any{
		"reduction": a.reduction.Name,
		"zero":      a.zero.Name,
	})
}

type accumulatorState struct {
	Value any `msgpack:"value"`
}

func (a *Accumulator) State() any {
	return accumulatorState{Value: a.value}
}

func (a *Accumulator) Restore(decode func(target any) error) error {
	var state accumulatorState
	if err := decode(&state); err != nil {
		return err
	}

	a.value = funcs.Normalize(state.Value)

	return nil
}
