package graph

import (
	"log/slog"
	"testing"

	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
	"github.com/dukex/tierflow/pkg/operators"
	"github.com/dukex/tierflow/pkg/registry"
	"github.com/stretchr/testify/require"
)

func testRegistry() *registry.Registry {
	return registry.Default(slog.Default())
}

func build(t *testing.T, specs ...models.NodeSpec) *Graph {
	t.Helper()

	ns, err := testRegistry().CreateAll(specs)
	require.NoError(t, err)

	return New(ns...)
}

func buildNode(t *testing.T, spec models.NodeSpec) nodes.Node {
	t.Helper()

	n, err := testRegistry().Create(spec)
	require.NoError(t, err)

	return n
}

func mapNode(name, fn string, inputs, outputs []string, needs ...string) models.NodeSpec {
	return models.NodeSpec{
		Name:           name,
		Type:           models.NodeTypeMap,
		Inputs:         inputs,
		Outputs:        outputs,
		ConditionNeeds: needs,
		Config:         map[string]any{"func": fn},
	}
}

func filterNode(name string, on bool, condition, output string) models.NodeSpec {
	nodeType := models.NodeTypeFilterOff
	if on {
		nodeType = models.NodeTypeFilterOn
	}

	return models.NodeSpec{
		Name:           name,
		Type:           nodeType,
		ConditionNeeds: models.Ports(condition),
		Outputs:        models.Ports(output),
	}
}

func operatorNode(name, nodeType string, inputs, outputs []string, config map[string]any, needs ...string) models.NodeSpec {
	return models.NodeSpec{
		Name:           name,
		Type:           nodeType,
		Inputs:         inputs,
		Outputs:        outputs,
		ConditionNeeds: needs,
		Config:         config,
	}
}

func ports(names ...string) []string {
	return names
}

func compiledNode(t *testing.T, g *Graph, name string) nodes.Node {
	t.Helper()

	for _, n := range g.CompiledNodes() {
		if n.Name() == name {
			return n
		}
	}

	require.Failf(t, "node not compiled", "%q", name)

	return nil
}

func compiledOperator(t *testing.T, g *Graph, name string) operators.Operator {
	t.Helper()

	op, ok := compiledNode(t, g, name).(operators.Operator)
	require.True(t, ok, "%q is not an operator", name)

	return op
}

// binningGraph folds (key, value) readings into per-key [sum, count] pairs and
// reports the per-bin means.
func binningGraph(t *testing.T) *Graph {
	t.Helper()

	return build(t,
		mapNode("count", "pair", ports("value"), ports("pair")),
		operatorNode("bins", models.NodeTypeKeyedReduce, ports("key", "pair"), ports("binned"), nil),
		mapNode("means", "bin_means", ports("binned"), ports("bin_keys", "bin_means")),
	)
}

func evaluate(t *testing.T, g *Graph, values map[string]any, tier models.Tier) map[string]any {
	t.Helper()

	out, err := g.Evaluate(values, tier)
	require.NoError(t, err)

	return out
}
