package graph

import (
	"fmt"
	"strings"

	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
)

// PortID indexes the port arena.
type PortID int

// NodeID indexes the node arena.
type NodeID int

// topology is the bipartite port/node graph. Ports and nodes live in separate
// arenas; edges always connect a PortID to a NodeID or the reverse.
type topology struct {
	nodes     []nodes.Node
	nodeIndex map[string]NodeID

	ports     []string
	portIndex map[string]PortID

	inputs  [][]PortID // node -> data inputs, positional
	needs   [][]PortID // node -> condition needs
	outputs [][]PortID // node -> outputs

	producers [][]NodeID // port -> nodes writing it
	consumers [][]NodeID // port -> nodes reading it, as data or condition
}

func buildTopology(ns []nodes.Node) *topology {
	t := &topology{
		nodes:     ns,
		nodeIndex: make(map[string]NodeID, len(ns)),
		portIndex: make(map[string]PortID),
		inputs:    make([][]PortID, len(ns)),
		needs:     make([][]PortID, len(ns)),
		outputs:   make([][]PortID, len(ns)),
	}

	for i, n := range ns {
		id := NodeID(i)
		t.nodeIndex[n.Name()] = id

		for _, name := range n.Inputs() {
			p := t.port(name)
			t.inputs[id] = append(t.inputs[id], p)
			t.consumers[p] = appendNode(t.consumers[p], id)
		}

		for _, name := range n.ConditionNeeds() {
			p := t.port(name)
			t.needs[id] = append(t.needs[id], p)
			t.consumers[p] = appendNode(t.consumers[p], id)
		}

		for _, name := range n.Outputs() {
			p := t.port(name)
			t.outputs[id] = append(t.outputs[id], p)
			t.producers[p] = appendNode(t.producers[p], id)
		}
	}

	return t
}

func (t *topology) port(name string) PortID {
	if id, ok := t.portIndex[name]; ok {
		return id
	}

	id := PortID(len(t.ports))
	t.ports = append(t.ports, name)
	t.portIndex[name] = id
	t.producers = append(t.producers, nil)
	t.consumers = append(t.consumers, nil)

	return id
}

func appendNode(list []NodeID, id NodeID) []NodeID {
	for _, n := range list {
		if n == id {
			return list
		}
	}

	return append(list, id)
}

// sources returns the ports no node produces, in arena order.
func (t *topology) sources() []PortID {
	var out []PortID

	for p := range t.ports {
		if len(t.producers[p]) == 0 {
			out = append(out, PortID(p))
		}
	}

	return out
}

// sinks returns the ports no node consumes, in arena order.
func (t *topology) sinks() []PortID {
	var out []PortID

	for p := range t.ports {
		if len(t.consumers[p]) == 0 {
			out = append(out, PortID(p))
		}
	}

	return out
}

func (t *topology) isSink(p PortID) bool {
	return len(t.consumers[p]) == 0
}

// isMerge reports whether several nodes write the port.
func (t *topology) isMerge(p PortID) bool {
	return len(t.producers[p]) >= 2
}

func (t *topology) successors(id NodeID) []NodeID {
	var out []NodeID

	for _, p := range t.outputs[id] {
		for _, c := range t.consumers[p] {
			out = appendNode(out, c)
		}
	}

	return out
}

func (t *topology) predecessors(id NodeID) []NodeID {
	var out []NodeID

	for _, group := range [][]PortID{t.inputs[id], t.needs[id]} {
		for _, p := range group {
			for _, n := range t.producers[p] {
				out = appendNode(out, n)
			}
		}
	}

	return out
}

// reach collects every node reachable from id through next, excluding id.
func (t *topology) reach(id NodeID, next func(NodeID) []NodeID) map[NodeID]bool {
	seen := make(map[NodeID]bool)
	stack := next(id)

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[n] {
			continue
		}

		seen[n] = true
		stack = append(stack, next(n)...)
	}

	return seen
}

func (t *topology) descendants(id NodeID) map[NodeID]bool {
	return t.reach(id, t.successors)
}

func (t *topology) ancestors(id NodeID) map[NodeID]bool {
	return t.reach(id, t.predecessors)
}

const (
	unvisited = iota
	visiting
	visited
)

// detectCycle returns a configuration error naming the nodes of the first cycle found.
func (t *topology) detectCycle() error {
	state := make([]int, len(t.nodes))

	var path []NodeID

	var visit func(id NodeID) []NodeID

	visit = func(id NodeID) []NodeID {
		state[id] = visiting
		path = append(path, id)

		for _, next := range t.successors(id) {
			switch state[next] {
			case visiting:
				for i, n := range path {
					if n == next {
						return append(append([]NodeID{}, path[i:]...), next)
					}
				}
			case unvisited:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}

		path = path[:len(path)-1]
		state[id] = visited

		return nil
	}

	for id := range t.nodes {
		if state[id] != unvisited {
			continue
		}

		if cycle := visit(NodeID(id)); cycle != nil {
			names := make([]string, len(cycle))
			for i, n := range cycle {
				names[i] = t.nodes[n].Name()
			}

			return models.NewConfigError("Compile", names[0], fmt.Errorf("%w: %s", models.ErrCycle, strings.Join(names, " -> ")))
		}
	}

	return nil
}

// order returns the nodes in a stable topological order: among ready nodes the
// one declared first runs first. The topology must be acyclic.
func (t *topology) order() []NodeID {
	indegree := make([]int, len(t.nodes))
	for id := range t.nodes {
		indegree[id] = len(t.predecessors(NodeID(id)))
	}

	done := make([]bool, len(t.nodes))
	out := make([]NodeID, 0, len(t.nodes))

	for len(out) < len(t.nodes) {
		progressed := false

		for id := range t.nodes {
			if done[id] || indegree[id] > 0 {
				continue
			}

			done[id] = true
			out = append(out, NodeID(id))
			progressed = true

			for _, s := range t.successors(NodeID(id)) {
				indegree[s]--
			}

			break
		}

		if !progressed {
			break
		}
	}

	return out
}
