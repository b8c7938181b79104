package graph

import (
	"fmt"

	"github.com/dukex/tierflow/pkg/codec"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
)

// Builder creates nodes from declarations.
type Builder interface {
	Create(spec models.NodeSpec) (nodes.Node, error)
}

// snapshotter is implemented by nodes whose state travels with the graph.
type snapshotter interface {
	State() any
	Restore(decode func(target any) error) error
}

type snapshot struct {
	Nodes           []models.NodeSpec `msgpack:"nodes"`
	Compiled        bool              `msgpack:"compiled"`
	Workers         int               `msgpack:"workers"`
	LocalCollectors int               `msgpack:"local_collectors"`
	States          map[string][]byte `msgpack:"states"`
}

// MarshalBinary encodes the declared nodes, the compile parameters and the
// state of every stateful node into an opaque blob.
func (g *Graph) MarshalBinary() ([]byte, error) {
	snap := snapshot{
		Nodes:  g.NodeSpecs(),
		States: make(map[string][]byte),
	}

	live := g.declared
	if g.plan != nil {
		snap.Compiled = true
		snap.Workers = g.plan.workers
		snap.LocalCollectors = g.plan.localCollectors
		live = g.plan.topo.nodes
	}

	for _, n := range live {
		s, ok := n.(snapshotter)
		if !ok {
			continue
		}

		state, err := codec.Marshal(s.State())
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name(), err)
		}

		snap.States[n.Name()] = state
	}

	return codec.Marshal(snap)
}

// Decode rebuilds a graph from a blob produced by MarshalBinary. Nodes are
// created by b, the graph is recompiled with the recorded ratios and the
// operator state is restored.
func Decode(data []byte, b Builder) (*Graph, error) {
	var snap snapshot
	if err := codec.Unmarshal(data, &snap); err != nil {
		return nil, err
	}

	g := New()

	for _, spec := range snap.Nodes {
		n, err := b.Create(spec)
		if err != nil {
			return nil, err
		}

		g.Add(n)
	}

	live := g.declared

	if snap.Compiled {
		if err := g.Compile(snap.Workers, snap.LocalCollectors); err != nil {
			return nil, err
		}

		live = g.plan.topo.nodes
	}

	for _, n := range live {
		raw, ok := snap.States[n.Name()]
		if !ok {
			continue
		}

		s, ok := n.(snapshotter)
		if !ok {
			return nil, fmt.Errorf("node %q: snapshot has state for a stateless node", n.Name())
		}

		if err := s.Restore(func(target any) error { return codec.Unmarshal(raw, target) }); err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name(), err)
		}
	}

	return g, nil
}
