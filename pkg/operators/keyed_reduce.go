package operators

import (
	"fmt"

	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
)

// KeyedReduce folds values into a mapping keyed by the first argument.
type KeyedReduce struct {
	distributed

	reduction funcs.Reduce
	mapping   map[any]any
}

// NewKeyedReduce creates a keyed reduction. The reduction must be callable.
func NewKeyedReduce(spec models.NodeSpec, reduction funcs.Reduce) (*KeyedReduce, error) {
	d, err := newDistributed("NewKeyedReduce", spec)
	if err != nil {
		return nil, err
	}

	if !reduction.Callable() {
		return nil, models.NewConfigError("NewKeyedReduce", spec.Name, fmt.Errorf("%w: reduction %q", models.ErrNotCallable, reduction.Name))
	}

	return &KeyedReduce{distributed: d, reduction: reduction, mapping: make(map[any]any)}, nil
}

func (k *KeyedReduce) Type() string { return models.NodeTypeKeyedReduce }
func (k *KeyedReduce) Kind() Kind   { return KindKeyedReduce }

func (k *KeyedReduce) OnExpand() Params {
	return ReduceParams{Reduction: k.reduction}
}

// Call folds (key, value) when given two arguments; otherwise every argument
// is a mapping whose pairs are folded. It returns the whole mapping.
func (k *KeyedReduce) Call(args ...any) (models.Result, error) {
	if len(args) == 2 {
		if err := k.fold(args[0], args[1]); err != nil {
			return models.Pending(), err
		}

		return models.Ready(k.Mapping()), nil
	}

	for i, arg := range args {
		if err := funcs.EachPair(arg, k.fold); err != nil {
			return models.Pending(), fmt.Errorf("argument %d: %w", i, err)
		}
	}

	return models.Ready(k.Mapping()), nil
}

func (k *KeyedReduce) fold(key, value any) error {
	key, err := funcs.NormalizeKey(key)
	if err != nil {
		return err
	}

	current, ok := k.mapping[key]
	if !ok {
		k.mapping[key] = funcs.Normalize(value)

		return nil
	}

	next, err := k.reduction.Fn(current, value)
	if err != nil {
		return fmt.Errorf("key %v: %w", key, err)
	}

	k.mapping[key] = next

	return nil
}

// Mapping returns a copy of the current mapping.
func (k *KeyedReduce) Mapping() map[any]any {
	out := make(map[any]any, len(k.mapping))
	for key, v := range k.mapping {
		out[key] = v
	}

	return out
}

func (k *KeyedReduce) Reset() {
	k.mapping = make(map[any]any)
}

func (k *KeyedReduce) OnCycleEnd() { endCycle(k) }

func (k *KeyedReduce) Spec() models.NodeSpec {
	return k.spec(KindKeyedReduce, map[string]any{"reduction": k.reduction.Name})
}

type keyedEntry struct {
	Key   any `msgpack:"key"`
	Value any `msgpack:"value"`
}

type keyedState struct {
	Entries []keyedEntry `msgpack:"entries"`
}

func (k *KeyedReduce) State() any {
	state := keyedState{Entries: make([]keyedEntry, 0, len(k.mapping))}
	for key, v := range k.mapping {
		state.Entries = append(state.Entries, keyedEntry{Key: key, Value: v})
	}

	return state
}

func (k *KeyedReduce) Restore(decode func(target any) error) error {
	var state keyedState
	if err := decode(&state); err != nil {
		return err
	}

	k.mapping = make(map[any]any, len(state.Entries))
	for _, e := range state.Entries {
		key, err := funcs.NormalizeKey(e.Key)
		if err != nil {
			return err
		}

		k.mapping[key] = funcs.Normalize(e.Value)
	}

	return nil
}
