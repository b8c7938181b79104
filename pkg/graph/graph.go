// Package graph compiles a declared node set into a tier-partitioned pipeline
// and dispatches batches through it.
//
// A Graph is not safe for concurrent use. Callers sharing one graph must
// serialize Add, Remove, Compile and Evaluate.
package graph

import (
	"fmt"
	"log/slog"

	"github.com/dukex/tierflow/pkg/log"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
)

// Graph holds the declared nodes and, once compiled, the executable plan.
type Graph struct {
	declared []nodes.Node
	plan     *plan
	logger   *slog.Logger
}

// New creates a graph from an ordered node list.
func New(ns ...nodes.Node) *Graph {
	g := &Graph{logger: log.WithModule("graph")}
	g.Add(ns...)

	return g
}

// Add appends nodes in order. A node whose name is already declared replaces
// the old one in place. Any previous compilation is invalidated.
func (g *Graph) Add(ns ...nodes.Node) {
	for _, n := range ns {
		if n == nil {
			continue
		}

		if i := g.index(n.Name()); i >= 0 {
			g.declared[i] = n
		} else {
			g.declared = append(g.declared, n)
		}
	}

	g.invalidate()
}

// Remove deletes the named node and every node that depends on its outputs,
// directly or transitively. It returns the removed names in declaration order.
func (g *Graph) Remove(name string) ([]string, error) {
	i := g.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", models.ErrNodeNotFound, name)
	}

	topo := buildTopology(g.declared)
	doomed := topo.descendants(NodeID(i))
	doomed[NodeID(i)] = true

	var (
		kept    []nodes.Node
		removed []string
	)

	for id, n := range g.declared {
		if doomed[NodeID(id)] {
			removed = append(removed, n.Name())

			continue
		}

		kept = append(kept, n)
	}

	g.declared = kept
	g.invalidate()

	g.logger.Debug("removed nodes", "root", name, "removed", removed)

	return removed, nil
}

// Clear removes every node.
func (g *Graph) Clear() {
	g.declared = nil
	g.invalidate()
}

// Nodes returns the declared nodes in order.
func (g *Graph) Nodes() []nodes.Node {
	out := make([]nodes.Node, len(g.declared))
	copy(out, g.declared)

	return out
}

// Node looks up a declared node by name.
func (g *Graph) Node(name string) (nodes.Node, bool) {
	if i := g.index(name); i >= 0 {
		return g.declared[i], true
	}

	return nil, false
}

// NodeSpecs describes the declared nodes.
func (g *Graph) NodeSpecs() []models.NodeSpec {
	out := make([]models.NodeSpec, len(g.declared))
	for i, n := range g.declared {
		out[i] = n.Spec()
	}

	return out
}

// Outputs returns the final output ports of the declared graph.
func (g *Graph) Outputs() []string {
	topo := buildTopology(g.declared)

	return topo.names(topo.sinks())
}

// Types maps every produced port to the type of the node that writes it.
// A port written by several nodes reports the last declared writer.
func (g *Graph) Types() map[string]string {
	out := make(map[string]string)

	for _, n := range g.declared {
		for _, p := range n.Outputs() {
			out[p] = n.Type()
		}
	}

	return out
}

// ResetAll clears the state of every stateful node, compiled copies included.
func (g *Graph) ResetAll() {
	g.eachStateful(nodes.Stateful.Reset)
}

// EndCycle runs the heartbeat hook of every stateful node.
func (g *Graph) EndCycle() {
	g.eachStateful(nodes.Stateful.OnCycleEnd)
}

func (g *Graph) eachStateful(fn func(nodes.Stateful)) {
	seen := make(map[string]bool)

	visit := func(n nodes.Node) {
		if s, ok := n.(nodes.Stateful); ok && !seen[n.Name()] {
			seen[n.Name()] = true
			fn(s)
		}
	}

	if g.plan != nil {
		for _, n := range g.plan.topo.nodes {
			visit(n)
		}
	}

	for _, n := range g.declared {
		visit(n)
	}
}

func (g *Graph) index(name string) int {
	for i, n := range g.declared {
		if n.Name() == name {
			return i
		}
	}

	return -1
}

func (g *Graph) invalidate() {
	if g.plan != nil {
		g.logger.Debug("compilation invalidated")
	}

	g.plan = nil
}

func (t *topology) names(ports []PortID) []string {
	out := make([]string, len(ports))
	for i, p := range ports {
		out[i] = t.ports[p]
	}

	return out
}
