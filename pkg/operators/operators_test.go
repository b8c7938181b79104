package operators

import (
	"testing"

	"github.com/dukex/tierflow/pkg/codec"
	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spec(name string, inputs ...string) models.NodeSpec {
	return models.NodeSpec{Name: name, Inputs: inputs, Outputs: models.Ports(name + "_out")}
}

func testReduction(t *testing.T, name string) funcs.Reduce {
	t.Helper()

	r, err := funcs.Default().Reduce(name)
	require.NoError(t, err)

	return r
}

func zero(t *testing.T, name string) funcs.Zero {
	t.Helper()

	z, err := funcs.Default().Zero(name)
	require.NoError(t, err)

	return z
}

func ready(t *testing.T) func(r models.Result, err error) any {
	return func(r models.Result, err error) any {
		t.Helper()
		require.NoError(t, err)

		value, ok := r.Value()
		require.True(t, ok, "expected a ready result")

		return value
	}
}

func roundTrip(t *testing.T, from, to Operator) {
	t.Helper()

	data, err := codec.Marshal(from.State())
	require.NoError(t, err)
	require.NoError(t, to.Restore(func(target any) error { return codec.Unmarshal(data, target) }))
}

func TestPicker_OneValuePerCall(t *testing.T) {
	p, err := NewPicker(spec("pick", "x"), 2)
	require.NoError(t, err)

	r, err := p.Call(1)
	require.NoError(t, err)
	assert.False(t, r.IsReady())

	assert.Equal(t, []any{int64(1), int64(2)}, ready(t)(p.Call(2)))

	r, err = p.Call(3)
	require.NoError(t, err)
	assert.False(t, r.IsReady())

	assert.Equal(t, []any{int64(3), int64(4)}, ready(t)(p.Call(4)))
}

func TestPicker_FalsyValuesFillSlots(t *testing.T) {
	p, err := NewPicker(spec("pick", "x"), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(0), ready(t)(p.Call(0)))
	assert.Nil(t, ready(t)(p.Call(nil)))
}

func TestPicker_ExpandedUnpacksLists(t *testing.T) {
	op, err := Expand(spec("pick_localCollector", "x"), PickerParams{N: 4}, models.TierLocal, 2)
	require.NoError(t, err)

	r, err := op.Call([]any{1, 2})
	require.NoError(t, err)
	assert.False(t, r.IsReady())

	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, ready(t)(op.Call([]any{3, 4})))

	plain, err := NewPicker(spec("pick", "x"), 2)
	require.NoError(t, err)

	r, err = plain.Call([]any{1, 2})
	require.NoError(t, err)
	assert.False(t, r.IsReady(), "a list is one slot value outside expanded mode")
}

func TestPicker_InvalidN(t *testing.T) {
	_, err := NewPicker(spec("pick", "x"), 0)
	assert.True(t, models.IsConfigError(err))
}

func TestKeyedReduce_Pairs(t *testing.T) {
	k, err := NewKeyedReduce(spec("bins", "key", "value"), testReduction(t, "add"))
	require.NoError(t, err)

	ready(t)(k.Call(8, []any{10000.0, 1}))
	got := ready(t)(k.Call(8, []any{10000.0, 1}))

	assert.Equal(t, map[any]any{int64(8): []any{20000.0, int64(2)}}, got)
}

func TestKeyedReduce_Mappings(t *testing.T) {
	k, err := NewKeyedReduce(spec("bins", "m"), testReduction(t, "add"))
	require.NoError(t, err)

	got := ready(t)(k.Call(
		map[any]any{int64(8): []any{10000.0, int64(1)}},
		map[any]any{int64(8): []any{10000.0, int64(1)}, int64(3): []any{10000.0, int64(1)}},
		map[any]any{int64(3): []any{1.0, int64(0)}},
	))

	assert.Equal(t, map[any]any{
		int64(8): []any{20000.0, int64(2)},
		int64(3): []any{10001.0, int64(1)},
	}, got)

	_, err = k.Call("not a mapping")
	assert.ErrorIs(t, err, funcs.ErrUnsupportedOperands)
}

func TestKeyedReduce_NumericKeysShareABin(t *testing.T) {
	k, err := NewKeyedReduce(spec("bins", "key", "value"), testReduction(t, "add"))
	require.NoError(t, err)

	ready(t)(k.Call(8, 1))
	got := ready(t)(k.Call(8.0, 1))

	assert.Equal(t, map[any]any{int64(8): int64(2)}, got)
}

func TestKeyedReduce_UnhashableKeys(t *testing.T) {
	k, err := NewKeyedReduce(spec("bins", "key", "value"), testReduction(t, "add"))
	require.NoError(t, err)

	for _, key := range []any{[]any{1, 2}, map[string]any{"x": 1}} {
		_, err := k.Call(key, 1.0)
		assert.ErrorIs(t, err, funcs.ErrUnsupportedOperands, "%T", key)
	}

	assert.Empty(t, k.Mapping())
}

func TestKeyedReduce_ReturnsCopy(t *testing.T) {
	k, err := NewKeyedReduce(spec("bins", "key", "value"), testReduction(t, "add"))
	require.NoError(t, err)

	got := ready(t)(k.Call("a", 1)).(map[any]any)
	got["a"] = 100

	assert.Equal(t, map[any]any{"a": int64(1)}, k.Mapping())
}

func TestKeyedReduce_NotCallable(t *testing.T) {
	_, err := NewKeyedReduce(spec("bins", "key", "value"), funcs.Reduce{Name: "nothing"})
	assert.ErrorIs(t, err, models.ErrNotCallable)
	assert.True(t, models.IsConfigError(err))
}

func TestAccumulator(t *testing.T) {
	a, err := NewAccumulator(spec("total", "x"), testReduction(t, "add"), funcs.Zero{Name: "int", Fn: func() any { return 0 }})
	require.NoError(t, err)

	assert.Equal(t, int64(0), a.Value())
	assert.Equal(t, int64(6), ready(t)(a.Call(1, 2, 3)))
	assert.Equal(t, 7.5, ready(t)(a.Call(1.5)))

	a.Reset()
	assert.Equal(t, int64(0), a.Value())

	_, err = NewAccumulator(spec("total", "x"), testReduction(t, "add"), funcs.Zero{Name: "missing"})
	assert.ErrorIs(t, err, models.ErrNotCallable)
}

func TestRolling_WorkerWindow(t *testing.T) {
	op, err := Expand(spec("window_worker", "x", "y"), RollingParams{N: 2}, models.TierWorker, 0)
	require.NoError(t, err)

	ready(t)(op.Call(0, 1))
	assert.Equal(t, []any{[]any{int64(0), int64(1)}, []any{int64(2), int64(3)}}, ready(t)(op.Call(2, 3)))
	assert.Equal(t, []any{[]any{int64(2), int64(3)}, []any{int64(4), int64(5)}}, ready(t)(op.Call(4, 5)))
}

func TestRolling_CollectorExtends(t *testing.T) {
	op, err := Expand(spec("window_localCollector", "w"), RollingParams{N: 3}, models.TierLocal, 2)
	require.NoError(t, err)

	ready(t)(op.Call([]any{"a", "b"}))
	assert.Equal(t, []any{"b", "c", "d"}, ready(t)(op.Call([]any{"c", "d"})))

	r := op.(*Rolling)
	assert.Equal(t, 3, r.Filled())

	ready(t)(op.Call([]any{"e"}))
	assert.Equal(t, 1, r.Filled(), "a new round of contributions restarts the fill count")
}

func TestRolling_Numeric(t *testing.T) {
	r, err := NewRolling(spec("window", "x"), 4, true)
	require.NoError(t, err)

	assert.Equal(t, []any{0.0, 0.0, 0.0, 1.0}, ready(t)(r.Call(1)))
	assert.Equal(t, []any{0.0, 1.0, 2.0, 3.0}, ready(t)(r.Call([]any{2, 3})))
	assert.Equal(t, []any{6.0, 7.0, 8.0, 9.0}, ready(t)(r.Call([]any{4, 5, 6, 7, 8, 9})))

	_, err = r.Call("x")
	assert.ErrorIs(t, err, funcs.ErrUnsupportedOperands)
}

func TestOnCycleEnd(t *testing.T) {
	for _, tier := range models.Tiers() {
		t.Run(tier.String(), func(t *testing.T) {
			op, err := Expand(spec("total", "x"), AccumulatorParams{Reduction: testReduction(t, "add"), Zero: zero(t, "int")}, tier, 1)
			require.NoError(t, err)

			ready(t)(op.Call(5))
			op.OnCycleEnd()

			expected := int64(0)
			if tier == models.TierGlobal {
				expected = int64(5)
			}

			assert.Equal(t, expected, op.(*Accumulator).Value())
		})
	}
}

func TestExpand_CopiesDoNotShareState(t *testing.T) {
	params := ReduceParams{Reduction: testReduction(t, "add")}

	a, err := Expand(spec("a", "k", "v"), params, models.TierWorker, 0)
	require.NoError(t, err)

	b, err := Expand(spec("b", "k", "v"), params, models.TierWorker, 0)
	require.NoError(t, err)

	ready(t)(a.Call("x", 1))
	assert.Equal(t, map[any]any{"x": int64(1)}, a.(*KeyedReduce).Mapping())
	assert.Empty(t, b.(*KeyedReduce).Mapping())

	assert.True(t, a.Expanded())
	assert.Equal(t, models.TierWorker, a.Tier())
	assert.Equal(t, true, a.Spec().Config["expanded"])
}

func TestParams(t *testing.T) {
	tests := []struct {
		params   Params
		kind     Kind
		capacity int
		has      bool
	}{
		{ReduceParams{}, KindKeyedReduce, 0, false},
		{AccumulatorParams{}, KindAccumulator, 0, false},
		{PickerParams{N: 8}, KindPicker, 8, true},
		{RollingParams{N: 6, Numeric: true}, KindRolling, 6, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.params.Kind())

			n, ok := tt.params.Capacity()
			assert.Equal(t, tt.has, ok)
			assert.Equal(t, tt.capacity, n)

			if ok {
				n, _ = tt.params.WithCapacity(2).Capacity()
				assert.Equal(t, 2, n)
			}
		})
	}

	assert.Equal(t, RollingParams{N: 2, Numeric: true}, RollingParams{N: 6, Numeric: true}.WithCapacity(2))
}

func TestState_RoundTrip(t *testing.T) {
	t.Run("keyed reduce", func(t *testing.T) {
		a, _ := NewKeyedReduce(spec("k", "key", "value"), testReduction(t, "add"))
		b, _ := NewKeyedReduce(spec("k", "key", "value"), testReduction(t, "add"))

		ready(t)(a.Call(8, []any{10000.0, 1}))
		ready(t)(a.Call("x", 2))
		roundTrip(t, a, b)

		assert.Equal(t, a.Mapping(), b.Mapping())
	})

	t.Run("picker", func(t *testing.T) {
		a, _ := NewPicker(spec("p", "x"), 3)
		b, _ := NewPicker(spec("p", "x"), 3)

		ready(t)(a.Call(1, 2, 3))
		_, _ = a.Call(false)
		roundTrip(t, a, b)

		_, _ = a.Call(5)
		_, _ = b.Call(5)
		assert.Equal(t, ready(t)(a.Call(6)), ready(t)(b.Call(6)))
	})

	t.Run("rolling", func(t *testing.T) {
		a, _ := NewRolling(spec("r", "x"), 3, true)
		b, _ := NewRolling(spec("r", "x"), 3, true)

		ready(t)(a.Call([]any{1, 2}))
		roundTrip(t, a, b)

		assert.Equal(t, ready(t)(a.Call(3)), ready(t)(b.Call(3)))
	})

	t.Run("accumulator", func(t *testing.T) {
		a, _ := NewAccumulator(spec("a", "x"), testReduction(t, "concat"), zero(t, "list"))
		b, _ := NewAccumulator(spec("a", "x"), testReduction(t, "concat"), zero(t, "list"))

		ready(t)(a.Call(1, "two"))
		roundTrip(t, a, b)

		assert.Equal(t, a.Value(), b.Value())
	})
}
