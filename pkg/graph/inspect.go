package graph

import (
	"sort"

	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
)

// CompiledNodes returns the nodes of the compiled pipeline in execution order,
// expanded copies included. It is nil when the graph is not compiled.
func (g *Graph) CompiledNodes() []nodes.Node {
	if g.plan == nil {
		return nil
	}

	out := make([]nodes.Node, len(g.plan.order))
	for i, id := range g.plan.order {
		out[i] = g.plan.topo.nodes[id]
	}

	return out
}

// Tiers maps every compiled node to its tier.
func (g *Graph) Tiers() map[string]models.Tier {
	out := make(map[string]models.Tier)

	for _, n := range g.CompiledNodes() {
		out[n.Name()] = n.Tier()
	}

	return out
}

// ExpansionPoints returns the names of the declared nodes that were expanded.
func (g *Graph) ExpansionPoints() []string {
	if g.plan == nil {
		return nil
	}

	return append([]string(nil), g.plan.selected...)
}

// Expanded reports whether name is the global copy of an expanded node.
func (g *Graph) Expanded(name string) bool {
	return g.plan != nil && g.plan.expanded[name]
}

// Branches returns the extracted branches ordered by filter name.
func (g *Graph) Branches() []Branch {
	if g.plan == nil {
		return nil
	}

	out := make([]Branch, 0, len(g.plan.branches))
	for _, b := range g.plan.branches {
		out = append(out, *b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Filter < out[j].Filter })

	return out
}

// Requirements returns, per branch key, the ports tier needs from outside.
// NoBranch holds the requirements of the unconditioned nodes.
func (g *Graph) Requirements(tier models.Tier) map[string][]string {
	if g.plan == nil {
		return nil
	}

	out := make(map[string][]string)
	for key, ports := range g.plan.requirements[tier] {
		out[key] = g.plan.topo.names(ports)
	}

	return out
}

// OutputsFor returns the ports tier hands to other tiers or to the caller.
func (g *Graph) OutputsFor(tier models.Tier) []string {
	if g.plan == nil {
		return nil
	}

	return g.plan.topo.names(g.plan.outputs[tier])
}

// Steps returns the composed pipeline.
func (g *Graph) Steps() []Step {
	if g.plan == nil {
		return nil
	}

	out := make([]Step, len(g.plan.order))
	for i, id := range g.plan.order {
		n := g.plan.topo.nodes[id]
		out[i] = Step{
			Node:   n.Name(),
			Type:   n.Type(),
			Tier:   n.Tier(),
			Branch: g.plan.branchOf[id],
		}
	}

	return out
}
