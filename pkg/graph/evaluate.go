package graph

import (
	"fmt"

	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/nodes"
)

// Evaluate runs the part of the pipeline assigned to tier on the available
// values and returns the tier's outputs that were produced. Branches whose
// inputs are incomplete, or whose gate is closed, do not run. An empty result
// is not an error.
func (g *Graph) Evaluate(values map[string]any, tier models.Tier) (map[string]any, error) {
	if g.plan == nil {
		return nil, models.ErrNotCompiled
	}

	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownTier, string(tier))
	}

	p := g.plan
	t := p.topo

	runnable := p.runnable(values, tier)
	if len(runnable) == 0 {
		g.logger.Debug("no branch runnable", "tier", tier, "available", len(values))

		return map[string]any{}, nil
	}

	work := make(map[string]any, len(values))
	for k, v := range values {
		work[k] = v
	}

	for _, id := range p.order {
		n := t.nodes[id]
		if n.Tier() != tier || !runnable[p.branchOf[id]] {
			continue
		}

		if err := p.run(id, work); err != nil {
			return nil, &models.NodeError{Node: n.Name(), Tier: tier, Err: err}
		}
	}

	out := make(map[string]any)

	for _, port := range p.outputs[tier] {
		name := t.ports[port]
		if v, ok := work[name]; ok {
			out[name] = v
		}
	}

	return out, nil
}

// runnable selects the branches of tier whose required ports are all present.
// A branch whose filter runs on tier also needs its gate to be open; a gate fed
// from inside the tier is checked when the filter runs.
func (p *plan) runnable(values map[string]any, tier models.Tier) map[string]bool {
	out := make(map[string]bool)

	for key, ports := range p.requirements[tier] {
		if !present(values, p.topo.names(ports)) {
			continue
		}

		if key != NoBranch {
			f := p.filters[key]
			if cond, ok := values[f.Condition()]; ok && f.Tier() == tier && !f.Gate(cond) {
				continue
			}
		}

		out[key] = true
	}

	return out
}

// run calls one node. Nodes with missing inputs are skipped, as are pending results.
func (p *plan) run(id NodeID, work map[string]any) error {
	t := p.topo
	n := t.nodes[id]

	callable, ok := n.(nodes.Callable)
	if !ok {
		return nil
	}

	if !present(work, n.ConditionNeeds()) || !present(work, n.Inputs()) {
		return nil
	}

	var args []any

	if f, isFilter := n.(*nodes.Filter); isFilter {
		args = []any{work[f.Condition()]}
	} else {
		args = make([]any, len(n.Inputs()))
		for i, in := range n.Inputs() {
			args[i] = work[in]
		}
	}

	result, err := callable.Call(args...)
	if err != nil {
		return err
	}

	value, ready := result.Value()
	if !ready {
		return nil
	}

	outputs := n.Outputs()
	if len(outputs) == 1 {
		work[outputs[0]] = value

		return nil
	}

	values, ok := value.([]any)
	if !ok || len(values) != len(outputs) {
		return fmt.Errorf("produced %T for %d outputs", value, len(outputs))
	}

	for i, out := range outputs {
		work[out] = values[i]
	}

	return nil
}

func present(values map[string]any, ports []string) bool {
	for _, p := range ports {
		if _, ok := values[p]; !ok {
			return false
		}
	}

	return true
}
