package operators

import (
	"fmt"

	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
)

// Rolling keeps the N most recent values. In numeric mode the window is a
// fixed-length float array shifted left as values arrive.
type Rolling struct {
	distributed

	n       int
	numeric bool

	window []any
	buffer []float64
	filled int
	calls  int
}

// NewRolling creates a rolling window of size n.
func NewRolling(spec models.NodeSpec, n int, numeric bool) (*Rolling, error) {
	d, err := newDistributed("NewRolling", spec)
	if err != nil {
		return nil, err
	}

	if n < 1 {
		return nil, models.NewConfigError("NewRolling", spec.Name, fmt.Errorf("%w: n must be positive, got %d", models.ErrInvalidConfig, n))
	}

	r := &Rolling{distributed: d, n: n, numeric: numeric}
	r.Reset()

	return r, nil
}

func (r *Rolling) Type() string { return models.NodeTypeRollingBuffer }
func (r *Rolling) Kind() Kind   { return KindRolling }

// N returns the window size.
func (r *Rolling) N() int { return r.n }

// Numeric reports whether the window is a fixed float array.
func (r *Rolling) Numeric() bool { return r.numeric }

// Filled returns how many values were written in the current round of contributions.
func (r *Rolling) Filled() int { return r.filled }

func (r *Rolling) OnExpand() Params {
	return RollingParams{N: r.n, Numeric: r.numeric}
}

// Call appends the incoming values and returns the current window.
func (r *Rolling) Call(args ...any) (models.Result, error) {
	if len(args) == 0 {
		return models.Pending(), nil
	}

	if r.contributors > 0 && r.calls%r.contributors == 0 {
		r.filled = 0
	}

	r.calls++

	if r.numeric {
		return r.shift(args)
	}

	incoming := r.incoming(args)
	r.window = append(r.window, incoming...)

	if over := len(r.window) - r.n; over > 0 {
		r.window = append([]any(nil), r.window[over:]...)
	}

	r.filled = min(r.filled+len(incoming), r.n)

	return models.Ready(r.Window()), nil
}

// incoming turns the arguments into window entries: several arguments are
// zipped into one entry, and a collector copy receiving a window extends with it.
func (r *Rolling) incoming(args []any) []any {
	if len(args) > 1 {
		return []any{funcs.Normalize(args)}
	}

	if r.expanded && r.Tier() != models.TierWorker && funcs.IsList(args[0]) {
		return funcs.AsList(funcs.Normalize(args[0]))
	}

	return []any{funcs.Normalize(args[0])}
}

func (r *Rolling) shift(args []any) (models.Result, error) {
	var values []float64

	for i, arg := range args {
		items := []any{arg}
		if funcs.IsList(arg) {
			items = funcs.AsList(arg)
		}

		for _, item := range items {
			f, ok := funcs.AsFloat(item)
			if !ok {
				return models.Pending(), fmt.Errorf("argument %d: %w: %T is not numeric", i, funcs.ErrUnsupportedOperands, item)
			}

			values = append(values, f)
		}
	}

	if len(values) > r.n {
		values = values[len(values)-r.n:]
	}

	k := len(values)
	copy(r.buffer, r.buffer[k:])
	copy(r.buffer[r.n-k:], values)

	r.filled = min(r.filled+k, r.n)

	return models.Ready(r.Window()), nil
}

// Window returns a copy of the current window.
func (r *Rolling) Window() []any {
	if r.numeric {
		out := make([]any, len(r.buffer))
		for i, v := range r.buffer {
			out[i] = v
		}

		return out
	}

	out := make([]any, len(r.window))
	copy(out, r.window)

	return out
}

func (r *Rolling) Reset() {
	r.window = nil
	r.buffer = make([]float64, r.n)
	r.filled = 0
	r.calls = 0
}

func (r *Rolling) OnCycleEnd() { endCycle(r) }

func (r *Rolling) Spec() models.NodeSpec {
	return r.spec(KindRolling, map[string]any{"n": r.n, "numeric": r.numeric})
}

type rollingState struct {
	Window []any     `msgpack:"window"`
	Buffer []float64 `msgpack:"buffer"`
	Filled int       `msgpack:"filled"`
	Calls  int       `msgpack:"calls"`
}

func (r *Rolling) State() any {
	return rollingState{
		Window: r.window,
		Buffer: r.buffer,
		Filled: r.filled,
		Calls:  r.calls,
	}
}

func (r *Rolling) Restore(decode func(target any) error) error {
	var state rollingState
	if err := decode(&state); err != nil {
		return err
	}

	if len(state.Buffer) != r.n {
		return fmt.Errorf("rolling buffer %q: snapshot has %d cells, want %d", r.Name(), len(state.Buffer), r.n)
	}

	r.window = nil
	for _, v := range state.Window {
		r.window = append(r.window, funcs.Normalize(v))
	}

	r.buffer = state.Buffer
	r.filled = state.Filled
	r.calls = state.Calls

	return nil
}
