package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dukex/tierflow/pkg/graph"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/persistence"
)

// TierReport describes what one tier consumes and produces.
type TierReport struct {
	Tier         models.Tier         `json:"tier"`
	Requirements map[string][]string `json:"requirements"`
	Outputs      []string            `json:"outputs"`
}

// CompileReport describes the current compilation of a pipeline.
type CompileReport struct {
	Workers         int            `json:"workers"`
	LocalCollectors int            `json:"local_collectors"`
	ExpansionPoints []string       `json:"expansion_points"`
	Steps           []graph.Step   `json:"steps"`
	Branches        []graph.Branch `json:"branches"`
	Tiers           []TierReport   `json:"tiers"`
}

// Pipeline serializes access to one graph. Control edits and evaluation may
// come from several goroutines.
type Pipeline struct {
	mu      sync.Mutex
	graph   *graph.Graph
	builder graph.Builder
	store   persistence.SnapshotStore
	key     string
	logger  *slog.Logger
}

// NewPipeline creates an empty pipeline. store may be nil, in which case Save
// and Load are unavailable.
func NewPipeline(logger *slog.Logger, builder graph.Builder, store persistence.SnapshotStore, key string) *Pipeline {
	return &Pipeline{
		graph:   graph.New(),
		builder: builder,
		store:   store,
		key:     key,
		logger:  logger.With("module", "pipeline", "key", key),
	}
}

// GetNodes returns the declared nodes.
func (p *Pipeline) GetNodes() []models.NodeSpec {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.graph.NodeSpecs()
}

// GetOutputs returns the final output ports.
func (p *Pipeline) GetOutputs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.graph.Outputs()
}

// GetTypes maps produced ports to node types.
func (p *Pipeline) GetTypes() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.graph.Types()
}

// UpsertNode builds the node and adds it, replacing a node of the same name.
func (p *Pipeline) UpsertNode(spec models.NodeSpec) (models.NodeSpec, error) {
	n, err := p.builder.Create(spec)
	if err != nil {
		return models.NodeSpec{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.graph.Add(n)
	p.logger.Info("Node upserted", "node", spec.Name, "type", spec.Type)

	return n.Spec(), nil
}

// RemoveNode removes the node and everything downstream of it.
func (p *Pipeline) RemoveNode(name string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed, err := p.graph.Remove(name)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Nodes removed", "root", name, "removed", removed)

	return removed, nil
}

// Clear removes every node.
func (p *Pipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.graph.Clear()
	p.logger.Info("Pipeline cleared")
}

// ResetAll clears all operator state.
func (p *Pipeline) ResetAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.graph.ResetAll()
}

// EndCycle runs the heartbeat hook of every operator.
func (p *Pipeline) EndCycle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.graph.EndCycle()
}

// Compile compiles the graph for the given ratios and reports the result.
func (p *Pipeline) Compile(workers, localCollectors int) (*CompileReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.graph.Compile(workers, localCollectors); err != nil {
		return nil, err
	}

	p.logger.Info("Pipeline compiled", "workers", workers, "local_collectors", localCollectors)

	return p.report(), nil
}

// Inspect reports the current compilation.
func (p *Pipeline) Inspect() (*CompileReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.graph.Compiled() {
		return nil, models.ErrNotCompiled
	}

	return p.report(), nil
}

func (p *Pipeline) report() *CompileReport {
	workers, locals, _ := p.graph.Ratios()

	r := &CompileReport{
		Workers:         workers,
		LocalCollectors: locals,
		ExpansionPoints: p.graph.ExpansionPoints(),
		Steps:           p.graph.Steps(),
		Branches:        p.graph.Branches(),
	}

	for _, tier := range models.Tiers() {
		r.Tiers = append(r.Tiers, TierReport{
			Tier:         tier,
			Requirements: p.graph.Requirements(tier),
			Outputs:      p.graph.OutputsFor(tier),
		})
	}

	return r
}

// Evaluate runs the tier's part of the pipeline on values.
func (p *Pipeline) Evaluate(values map[string]any, tier models.Tier) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.graph.Evaluate(values, tier)
}

// Snapshot encodes the graph with its compilation and state.
func (p *Pipeline) Snapshot() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.graph.MarshalBinary()
}

// Restore replaces the graph with one decoded from blob.
func (p *Pipeline) Restore(blob []byte) error {
	g, err := graph.Decode(blob, p.builder)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.graph = g

	return nil
}

// Save writes a snapshot to the store under the pipeline key.
func (p *Pipeline) Save(ctx context.Context) error {
	if p.store == nil {
		return ErrNoSnapshotStore
	}

	blob, err := p.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to snapshot pipeline: %w", err)
	}

	if err := p.store.Save(ctx, p.key, blob); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "Snapshot saved", "bytes", len(blob))

	return nil
}

// Load replaces the graph with the snapshot stored under the pipeline key.
func (p *Pipeline) Load(ctx context.Context) error {
	if p.store == nil {
		return ErrNoSnapshotStore
	}

	blob, err := p.store.Load(ctx, p.key)
	if err != nil {
		return err
	}

	if err := p.Restore(blob); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	p.logger.InfoContext(ctx, "Snapshot loaded", "bytes", len(blob))

	return nil
}

// HealthCheck reports whether the snapshot store answers. A pipeline without
// a store is always healthy.
func (p *Pipeline) HealthCheck(ctx context.Context) (string, bool) {
	if p.store == nil {
		return "no store", true
	}

	if err := p.store.HealthCheck(ctx); err != nil {
		return err.Error(), false
	}

	return "ok", true
}
