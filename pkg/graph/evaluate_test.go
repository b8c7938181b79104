package graph

import (
	"errors"
	"testing"

	"github.com/dukex/tierflow/pkg/funcs"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_KeyedReductionAcrossTiers(t *testing.T) {
	g := binningGraph(t)
	require.NoError(t, g.Compile(2, 2))

	blob, err := g.MarshalBinary()
	require.NoError(t, err)

	instance := func() *Graph {
		t.Helper()

		c, err := Decode(blob, testRegistry())
		require.NoError(t, err)

		return c
	}

	workers := []*Graph{instance(), instance(), instance()}
	locals := []*Graph{instance(), instance()}
	global := instance()

	first := evaluate(t, workers[0], map[string]any{"key": 8, "value": 10000.0}, models.TierWorker)
	second := evaluate(t, workers[1], map[string]any{"key": 8, "value": 10000.0}, models.TierWorker)
	third := evaluate(t, workers[2], map[string]any{"key": 3, "value": 10000.0}, models.TierWorker)

	assert.Equal(t, map[string]any{
		"binned_worker": map[any]any{int64(8): []any{10000.0, int64(1)}},
	}, first)

	evaluate(t, locals[0], first, models.TierLocal)
	folded := evaluate(t, locals[0], second, models.TierLocal)

	assert.Equal(t, map[string]any{
		"binned_localCollector": map[any]any{int64(8): []any{20000.0, int64(2)}},
	}, folded)

	other := evaluate(t, locals[1], third, models.TierLocal)

	evaluate(t, global, folded, models.TierGlobal)
	result := evaluate(t, global, other, models.TierGlobal)

	assert.Equal(t, map[string]any{
		"bin_keys":  []any{int64(3), int64(8)},
		"bin_means": []any{10000.0, 10000.0},
	}, result)
}

func TestEvaluate_RollingWindowOnWorkers(t *testing.T) {
	g := build(t, operatorNode("window", models.NodeTypeRollingBuffer, ports("x", "y"), ports("w"), map[string]any{"n": 8}))
	require.NoError(t, g.Compile(4, 1))

	evaluate(t, g, map[string]any{"x": 0, "y": 1}, models.TierWorker)

	out := evaluate(t, g, map[string]any{"x": 2, "y": 3}, models.TierWorker)
	assert.Equal(t, []any{
		[]any{int64(0), int64(1)},
		[]any{int64(2), int64(3)},
	}, out["w_worker"])

	out = evaluate(t, g, map[string]any{"x": 4, "y": 5}, models.TierWorker)
	assert.Equal(t, []any{
		[]any{int64(2), int64(3)},
		[]any{int64(4), int64(5)},
	}, out["w_worker"])
}

func TestEvaluate_PickerAcrossTiers(t *testing.T) {
	g := build(t, operatorNode("pick", models.NodeTypePicker, ports("x"), ports("picked"), map[string]any{"n": 2}))
	require.NoError(t, g.Compile(2, 1))

	worker := evaluate(t, g, map[string]any{"x": 1}, models.TierWorker)
	assert.Equal(t, map[string]any{"picked_worker": int64(1)}, worker)
	assert.Empty(t, evaluate(t, g, worker, models.TierLocal))

	worker = evaluate(t, g, map[string]any{"x": 2}, models.TierWorker)
	local := evaluate(t, g, worker, models.TierLocal)
	assert.Equal(t, map[string]any{"picked_localCollector": []any{int64(1), int64(2)}}, local)

	assert.Equal(t, map[string]any{"picked": []any{int64(1), int64(2)}}, evaluate(t, g, local, models.TierGlobal))
}

func TestEvaluate_FilterExclusivity(t *testing.T) {
	g := build(t,
		filterNode("is_hot", true, "hot", "hot_gate"),
		filterNode("is_cold", false, "hot", "cold_gate"),
		mapNode("hot_path", "identity", ports("reading"), ports("hot_out"), "hot_gate"),
		mapNode("cold_path", "identity", ports("reading"), ports("cold_out"), "cold_gate"),
	)
	require.NoError(t, g.Compile(1, 1))

	for _, cond := range []any{true, false, nil, 0, 1, 0.5, "", "false", "yes", []any{}, []any{1}} {
		values := map[string]any{"hot": cond, "reading": 5}

		runnable := g.plan.runnable(values, models.TierWorker)
		assert.NotEqual(t, runnable["is_hot"], runnable["is_cold"], "exactly one gate for %#v", cond)

		out := evaluate(t, g, values, models.TierWorker)
		assert.Len(t, out, 1)

		if runnable["is_hot"] {
			assert.Equal(t, map[string]any{"hot_out": 5}, out)
		} else {
			assert.Equal(t, map[string]any{"cold_out": 5}, out)
		}
	}
}

func TestEvaluate_MergeAfterBranches(t *testing.T) {
	g := build(t,
		filterNode("is_hot", true, "hot", "hot_gate"),
		filterNode("is_cold", false, "hot", "cold_gate"),
		mapNode("hot_path", "identity", ports("reading"), ports("out"), "hot_gate"),
		mapNode("cold_path", "mean", ports("reading"), ports("out"), "cold_gate"),
		mapNode("final", "identity", ports("out"), ports("result")),
	)
	require.NoError(t, g.Compile(1, 1))

	assert.Equal(t, map[string]any{"result": []any{1, 3}}, evaluate(t, g, map[string]any{"hot": true, "reading": []any{1, 3}}, models.TierWorker))
	assert.Equal(t, map[string]any{"result": 2.0}, evaluate(t, g, map[string]any{"hot": false, "reading": []any{1, 3}}, models.TierWorker))
}

func TestEvaluate_MissingInputs(t *testing.T) {
	g := binningGraph(t)
	require.NoError(t, g.Compile(1, 1))

	assert.Empty(t, evaluate(t, g, map[string]any{"key": 8}, models.TierWorker))
	assert.Empty(t, evaluate(t, g, map[string]any{}, models.TierLocal))
	assert.Empty(t, evaluate(t, g, map[string]any{"unrelated": 1}, models.TierGlobal))
}

func TestEvaluate_PendingResultsStopDownstream(t *testing.T) {
	g := build(t,
		mapNode("scale", "identity", ports("x"), ports("scaled")),
		operatorNode("pick", models.NodeTypePicker, ports("scaled"), ports("pair"), map[string]any{"n": 2, "expanded": true}),
		mapNode("average", "mean", ports("pair"), ports("average")),
	)
	require.NoError(t, g.Compile(1, 1))
	require.Empty(t, g.ExpansionPoints(), "an expanded copy is not expanded again")

	assert.Equal(t, models.TierWorker, g.Tiers()["scale"])
	assert.Equal(t, models.TierGlobal, g.Tiers()["average"])

	assert.Empty(t, evaluate(t, g, map[string]any{"scaled": 1}, models.TierGlobal))
	assert.Equal(t, map[string]any{"average": 1.5}, evaluate(t, g, map[string]any{"scaled": 2}, models.TierGlobal))
}

func TestEvaluate_Errors(t *testing.T) {
	t.Run("not compiled", func(t *testing.T) {
		g := binningGraph(t)

		_, err := g.Evaluate(map[string]any{}, models.TierWorker)
		assert.ErrorIs(t, err, models.ErrNotCompiled)

		require.NoError(t, g.Compile(1, 1))
		g.Add(buildNode(t, mapNode("extra", "identity", ports("a"), ports("b"))))

		_, err = g.Evaluate(map[string]any{}, models.TierWorker)
		assert.ErrorIs(t, err, models.ErrNotCompiled)
	})

	t.Run("unknown tier", func(t *testing.T) {
		g := binningGraph(t)
		require.NoError(t, g.Compile(1, 1))

		_, err := g.Evaluate(map[string]any{}, models.TierUnset)
		assert.ErrorIs(t, err, models.ErrUnknownTier)

		_, err = g.Evaluate(map[string]any{}, models.Tier("edge"))
		assert.ErrorIs(t, err, models.ErrUnknownTier)
	})

	t.Run("operator error propagates", func(t *testing.T) {
		g := build(t, operatorNode("total", models.NodeTypeAccumulator, ports("x"), ports("sum"), nil))
		require.NoError(t, g.Compile(1, 1))

		_, err := g.Evaluate(map[string]any{"x": "not a number"}, models.TierWorker)
		require.Error(t, err)
		assert.True(t, models.IsNodeError(err))

		var nodeErr *models.NodeError
		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, "total_worker", nodeErr.Node)
		assert.Equal(t, models.TierWorker, nodeErr.Tier)
	})

	t.Run("unhashable key", func(t *testing.T) {
		g := binningGraph(t)
		require.NoError(t, g.Compile(1, 1))

		_, err := g.Evaluate(map[string]any{"key": []any{1, 2}, "value": 1.0}, models.TierWorker)
		require.Error(t, err)
		assert.ErrorIs(t, err, funcs.ErrUnsupportedOperands)

		var nodeErr *models.NodeError
		require.True(t, errors.As(err, &nodeErr))
		assert.Equal(t, "bins_worker", nodeErr.Node)
	})
}

func TestEvaluate_MixedNumericKeysShareABin(t *testing.T) {
	g := binningGraph(t)
	require.NoError(t, g.Compile(1, 1))

	evaluate(t, g, map[string]any{"key": 8, "value": 1.0}, models.TierWorker)
	out := evaluate(t, g, map[string]any{"key": 8.0, "value": 1.0}, models.TierWorker)

	assert.Equal(t, map[string]any{
		"binned_worker": map[any]any{int64(8): []any{2.0, int64(2)}},
	}, out)
}

func TestEndCycle(t *testing.T) {
	g := build(t, operatorNode("total", models.NodeTypeAccumulator, ports("x"), ports("sum"), nil))
	require.NoError(t, g.Compile(1, 1))

	worker := evaluate(t, g, map[string]any{"x": 2}, models.TierWorker)
	local := evaluate(t, g, worker, models.TierLocal)
	assert.Equal(t, map[string]any{"sum": int64(2)}, evaluate(t, g, local, models.TierGlobal))

	g.EndCycle()

	worker = evaluate(t, g, map[string]any{"x": 3}, models.TierWorker)
	assert.Equal(t, map[string]any{"sum_worker": int64(3)}, worker)

	local = evaluate(t, g, worker, models.TierLocal)
	assert.Equal(t, map[string]any{"sum_localCollector": int64(3)}, local)

	assert.Equal(t, map[string]any{"sum": int64(5)}, evaluate(t, g, local, models.TierGlobal), "global state survives the heartbeat")

	g.ResetAll()

	assert.Equal(t, map[string]any{"sum": int64(3)}, evaluate(t, g, local, models.TierGlobal))
}
