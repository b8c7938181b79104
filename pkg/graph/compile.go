package graph

import (
	"fmt"
	"slices"

	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
	"github.com/dukex/tierflow/pkg/operators"
)

// NoBranch is the branch key of nodes not gated by any filter.
const NoBranch = ""

// Branch is a filter-gated part of the pipeline.
type Branch struct {
	Filter    string   `json:"filter"`
	Condition string   `json:"condition"`
	Nodes     []string `json:"nodes"`
}

// Step is one node of the composed pipeline, in execution order.
type Step struct {
	Node   string      `json:"node"`
	Type   string      `json:"type"`
	Tier   models.Tier `json:"tier"`
	Branch string      `json:"branch,omitempty"`
}

type plan struct {
	workers         int
	localCollectors int

	topo  *topology
	order []NodeID

	selected []string
	expanded map[string]bool

	branches map[string]*Branch // keyed by filter name
	branchOf []string           // node -> branch key
	filters  map[string]*nodes.Filter

	requirements map[models.Tier]map[string][]PortID
	outputs      map[models.Tier][]PortID
}

// Compile builds the executable pipeline for the given expansion ratios.
// It is idempotent and can be called again after Add or Remove.
func (g *Graph) Compile(workers, localCollectors int) error {
	if workers < 1 || localCollectors < 1 {
		return models.NewConfigError("Compile", "", fmt.Errorf("%w: workers=%d local collectors=%d", models.ErrZeroExpansion, workers, localCollectors))
	}

	g.plan = nil

	for _, n := range g.declared {
		if op, ok := n.(operators.Operator); ok && op.Expanded() {
			continue
		}

		n.SetTier(models.TierUnset)
	}

	declared := buildTopology(g.declared)
	if err := declared.detectCycle(); err != nil {
		return err
	}

	selected := color(declared)

	expandedNodes, err := expand(g.declared, selected, workers, localCollectors)
	if err != nil {
		return err
	}

	topo := buildTopology(expandedNodes)
	if err := topo.detectCycle(); err != nil {
		return err
	}

	p := &plan{
		workers:         workers,
		localCollectors: localCollectors,
		topo:            topo,
		order:           topo.order(),
		selected:        selected,
		expanded:        make(map[string]bool),
	}

	for _, n := range expandedNodes {
		if op, ok := n.(operators.Operator); ok && op.Expanded() && op.Tier() == models.TierGlobal {
			p.expanded[n.Name()] = true
		}
	}

	p.extractBranches()
	p.index()

	g.plan = p

	g.logger.Debug("compiled graph",
		"workers", workers,
		"local_collectors", localCollectors,
		"nodes", len(topo.nodes),
		"expansion_points", selected,
		"branches", len(p.branches))

	return nil
}

// Compiled reports whether the graph has a current compilation.
func (g *Graph) Compiled() bool {
	return g.plan != nil
}

// Ratios returns the expansion ratios of the current compilation.
func (g *Graph) Ratios() (workers, localCollectors int, ok bool) {
	if g.plan == nil {
		return 0, 0, false
	}

	return g.plan.workers, g.plan.localCollectors, true
}

// color tags every declared node with a tier and returns the names of the
// expansion points: distributable nodes with no selected or already expanded
// ancestor. Expansion points, copies expanded earlier and everything
// downstream of them run past the worker boundary; all remaining nodes run on
// workers.
func color(t *topology) []string {
	var selected []string

	boundary := make(map[NodeID]bool)

	for id, n := range t.nodes {
		if op, ok := n.(operators.Operator); ok && op.Expanded() {
			boundary[NodeID(id)] = true
		}
	}

	for _, id := range t.order() {
		n := t.nodes[id]
		if !n.Distributable() || boundary[id] {
			continue
		}

		blocked := false

		for a := range t.ancestors(id) {
			if boundary[a] {
				blocked = true

				break
			}
		}

		if !blocked {
			boundary[id] = true
			selected = append(selected, n.Name())
		}
	}

	for _, id := range t.order() {
		if !boundary[id] {
			continue
		}

		tag(t.nodes[id], models.TierGlobal)

		for d := range t.descendants(id) {
			tag(t.nodes[d], models.TierGlobal)
		}

		for a := range t.ancestors(id) {
			tag(t.nodes[a], models.TierWorker)
		}
	}

	for _, n := range t.nodes {
		tag(n, models.TierWorker)
	}

	return selected
}

func tag(n nodes.Node, tier models.Tier) {
	if n.Tier() == models.TierUnset {
		n.SetTier(tier)
	}
}

// expand replaces every selected node with its worker, local collector and
// global collector copies. Other nodes are kept as they are.
func expand(declared []nodes.Node, selected []string, workers, localCollectors int) ([]nodes.Node, error) {
	out := make([]nodes.Node, 0, len(declared)+2*len(selected))

	for _, n := range declared {
		if !slices.Contains(selected, n.Name()) {
			out = append(out, n)

			continue
		}

		op, ok := n.(operators.Operator)
		if !ok {
			return nil, models.NewConfigError("Compile", n.Name(), fmt.Errorf("%w: distributable node %T is not an operator", models.ErrInvalidConfig, n))
		}

		copies, err := expandOperator(op, workers, localCollectors)
		if err != nil {
			return nil, err
		}

		out = append(out, copies...)
	}

	return out, nil
}

func expandOperator(op operators.Operator, workers, localCollectors int) ([]nodes.Node, error) {
	params := op.OnExpand()
	spec := op.Spec()

	workerOut := suffixed(spec.Outputs, models.TierWorker)
	localOut := suffixed(spec.Outputs, models.TierLocal)

	stages := []struct {
		tier         models.Tier
		inputs       []string
		needs        []string
		outputs      []string
		capacity     func(n int) int
		contributors int
	}{
		{
			tier:         models.TierWorker,
			inputs:       spec.Inputs,
			needs:        spec.ConditionNeeds,
			outputs:      workerOut,
			capacity:     func(n int) int { return max(n/workers, 1) },
			contributors: 0,
		},
		{
			tier:         models.TierLocal,
			inputs:       workerOut,
			outputs:      localOut,
			capacity:     func(n int) int { return max(n/localCollectors, 1) },
			contributors: max(workers/localCollectors, 1),
		},
		{
			tier:         models.TierGlobal,
			inputs:       localOut,
			outputs:      spec.Outputs,
			capacity:     func(n int) int { return max((n/workers)*workers, 1) },
			contributors: localCollectors,
		},
	}

	copies := make([]nodes.Node, 0, len(stages))

	for _, stage := range stages {
		stageParams := params
		if n, ok := params.Capacity(); ok {
			stageParams = params.WithCapacity(stage.capacity(n))
		}

		copySpec := models.NodeSpec{
			Name:           spec.Name + stage.tier.Suffix(),
			Type:           spec.Type,
			Inputs:         stage.inputs,
			Outputs:        stage.outputs,
			ConditionNeeds: stage.needs,
			Parent:         spec.Parent,
		}

		c, err := operators.Expand(copySpec, stageParams, stage.tier, stage.contributors)
		if err != nil {
			return nil, err
		}

		copies = append(copies, c)
	}

	return copies, nil
}

func suffixed(ports []string, tier models.Tier) []string {
	out := make([]string, len(ports))
	for i, p := range ports {
		out[i] = p + tier.Suffix()
	}

	return out
}

// extractBranches assigns every node reachable from a filter to that filter's
// branch. The walk stops at merge ports, at other filters and at nodes that
// already belong to a branch; paths that cross a merge port are left to the
// unconditioned part of the pipeline.
func (p *plan) extractBranches() {
	t := p.topo
	p.branches = make(map[string]*Branch)
	p.filters = make(map[string]*nodes.Filter)
	p.branchOf = make([]string, len(t.nodes))

	for _, id := range p.order {
		f, ok := t.nodes[id].(*nodes.Filter)
		if !ok {
			continue
		}

		key := f.Name()
		p.filters[key] = f
		p.branchOf[id] = key

		branch := &Branch{Filter: key, Condition: f.Condition()}
		members := map[NodeID]bool{id: true}

		queue := append([]PortID(nil), t.outputs[id]...)
		for len(queue) > 0 {
			port := queue[0]
			queue = queue[1:]

			if t.isMerge(port) {
				continue
			}

			for _, c := range t.consumers[port] {
				if members[c] || p.branchOf[c] != NoBranch {
					continue
				}

				if _, isFilter := t.nodes[c].(*nodes.Filter); isFilter {
					continue
				}

				members[c] = true
				p.branchOf[c] = key
				queue = append(queue, t.outputs[c]...)
			}
		}

		for _, n := range p.order {
			if members[n] {
				branch.Nodes = append(branch.Nodes, t.nodes[n].Name())
			}
		}

		p.branches[key] = branch
	}
}

// index computes, per tier and branch, the ports a branch needs from outside
// the tier, and per tier the ports handed to other tiers or to the caller.
func (p *plan) index() {
	t := p.topo
	p.requirements = make(map[models.Tier]map[string][]PortID)
	p.outputs = make(map[models.Tier][]PortID)

	for _, tier := range models.Tiers() {
		produced := make(map[PortID]bool)

		for id, n := range t.nodes {
			if n.Tier() == tier {
				for _, port := range t.outputs[id] {
					produced[port] = true
				}
			}
		}

		reqs := make(map[string][]PortID)

		for _, id := range p.order {
			if t.nodes[id].Tier() != tier {
				continue
			}

			key := p.branchOf[id]
			if _, ok := reqs[key]; !ok {
				reqs[key] = []PortID{}
			}

			for _, group := range [][]PortID{t.inputs[id], t.needs[id]} {
				for _, port := range group {
					if !produced[port] && !slices.Contains(reqs[key], port) {
						reqs[key] = append(reqs[key], port)
					}
				}
			}
		}

		p.requirements[tier] = reqs

		var outs []PortID

		for port := range t.ports {
			pid := PortID(port)
			if !produced[pid] {
				continue
			}

			if t.isSink(pid) || p.consumedOutside(pid, tier) {
				outs = append(outs, pid)
			}
		}

		p.outputs[tier] = outs
	}
}

func (p *plan) consumedOutside(port PortID, tier models.Tier) bool {
	for _, c := range p.topo.consumers[port] {
		if p.topo.nodes[c].Tier() != tier {
			return true
		}
	}

	return false
}
