package operators

import (
	"fmt"

	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
)

// Picker collects values into N slots round-robin and emits them once every
// slot has been written.
type Picker struct {
	distributed

	n        int
	slots    []any
	filled   []bool
	cursor   int
	complete bool
}

// NewPicker creates a picker with n slots.
func NewPicker(spec models.NodeSpec, n int) (*Picker, error) {
	d, err := newDistributed("NewPicker", spec)
	if err != nil {
		return nil, err
	}

	if n < 1 {
		return nil, models.NewConfigError("NewPicker", spec.Name, fmt.Errorf("%w: n must be positive, got %d", models.ErrInvalidConfig, n))
	}

	p := &Picker{distributed: d, n: n}
	p.Reset()

	return p, nil
}

func (p *Picker) Type() string { return models.NodeTypePicker }
func (p *Picker) Kind() Kind   { return KindPicker }

// N returns the number of slots.
func (p *Picker) N() int { return p.n }

func (p *Picker) OnExpand() Params {
	return PickerParams{N: p.n}
}

// Call writes each argument into the next slot. The result is Pending until
// every slot holds a value; the next call after a complete batch starts over.
func (p *Picker) Call(args ...any) (models.Result, error) {
	if p.complete {
		p.clear()
	}

	values := args
	if p.expanded && p.n > 1 && len(args) == 1 && funcs.IsList(args[0]) {
		values = funcs.AsList(args[0])
	}

	for _, v := range values {
		p.slots[p.cursor] = funcs.Normalize(v)
		p.filled[p.cursor] = true
		p.cursor = (p.cursor + 1) % p.n
	}

	for _, ok := range p.filled {
		if !ok {
			return models.Pending(), nil
		}
	}

	p.complete = true

	if p.n == 1 {
		return models.Ready(p.slots[0]), nil
	}

	out := make([]any, p.n)
	copy(out, p.slots)

	return models.Ready(out), nil
}

func (p *Picker) clear() {
	p.slots = make([]any, p.n)
	p.filled = make([]bool, p.n)
	p.complete = false
}

func (p *Picker) Reset() {
	p.clear()
	p.cursor = 0
}

func (p *Picker) OnCycleEnd() { endCycle(p) }

func (p *Picker) Spec() models.NodeSpec {
	return p.spec(KindPicker, map[string]any{"n": p.n})
}

type pickerState struct {
	Slots    []any  `msgpack:"slots"`
	Filled   []bool `msgpack:"filled"`
	Cursor   int    `msgpack:"cursor"`
	Complete bool   `msgpack:"complete"`
}

func (p *Picker) State() any {
	return pickerState{
		Slots:    p.slots,
		Filled:   p.filled,
		Cursor:   p.cursor,
		Complete: p.complete,
	}
}

func (p *Picker) Restore(decode func(target any) error) error {
	var state pickerState
	if err := decode(&state); err != nil {
		return err
	}

	if len(state.Slots) != p.n || len(state.Filled) != p.n {
		return fmt.Errorf("picker %q: snapshot has %d slots, want %d", p.Name(), len(state.Slots), p.n)
	}

	p.slots = make([]any, p.n)
	for i, v := range state.Slots {
		p.slots[i] = funcs.Normalize(v)
	}

	p.filled = state.Filled
	p.cursor = state.Cursor % p.n
	p.complete = state.Complete

	return nil
}
