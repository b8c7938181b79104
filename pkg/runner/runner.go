// Package runner drives one tier of a compiled pipeline from the event bus.
//
// A runner evaluates every batch addressed to its tier and keeps the latest
// value of each output. On every heartbeat it forwards those values to the
// next tier and ends the cycle. The global collector forwards its outputs to
// the results topic as soon as they are produced.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/tierflow/pkg/eventbus"
	"github.com/dukex/tierflow/pkg/events"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/otelhelper"
)

// Evaluator is the part of a pipeline a runner drives.
type Evaluator interface {
	Evaluate(values map[string]any, tier models.Tier) (map[string]any, error)
	EndCycle()
}

type Config struct {
	// ID names the process in published batches.
	ID string

	Tier models.Tier

	// Key is the pipeline key, carried as message metadata.
	Key string

	// Heartbeat is the cron expression ending each cycle.
	Heartbeat string
}

type Runner struct {
	id        string
	tier      models.Tier
	key       string
	heartbeat *models.Heartbeat
	pipeline  Evaluator
	bus       eventbus.EventBus
	tracer    trace.Tracer
	logger    *slog.Logger

	mu     sync.Mutex
	latest map[string]any
	cron   *cron.Cron
}

func New(cfg Config, pipeline Evaluator, bus eventbus.EventBus, tracer trace.Tracer, logger *slog.Logger) (*Runner, error) {
	if !cfg.Tier.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownTier, string(cfg.Tier))
	}

	heartbeat, err := models.NewHeartbeat(cfg.Heartbeat, time.Now())
	if err != nil {
		return nil, err
	}

	if cfg.ID == "" {
		cfg.ID = bus.GenerateID()
	}

	return &Runner{
		id:        cfg.ID,
		tier:      cfg.Tier,
		key:       cfg.Key,
		heartbeat: heartbeat,
		pipeline:  pipeline,
		bus:       bus,
		tracer:    tracer,
		latest:    make(map[string]any),
		logger: logger.With(
			"module", "runner",
			"runner_id", cfg.ID,
			"tier", cfg.Tier,
		),
	}, nil
}

func (r *Runner) ID() string {
	return r.id
}

func (r *Runner) Tier() models.Tier {
	return r.tier
}

// Cycles returns the number of heartbeats handled so far.
func (r *Runner) Cycles() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.heartbeat.Cycles
}

// Latest returns a copy of the outputs waiting for the next heartbeat.
func (r *Runner) Latest() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return maps.Clone(r.latest)
}

// Start subscribes to the tier topic and schedules the heartbeat.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.bus.Handle(r.tier, r.handleBatch); err != nil {
		return err
	}

	if err := r.bus.Subscribe(ctx); err != nil {
		return err
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(r.logger.Handler(), slog.LevelWarn))

	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))
	r.cron.Schedule(r.heartbeat.Schedule(), cron.FuncJob(func() {
		if err := r.Beat(ctx); err != nil {
			r.logger.Error("Heartbeat failed", "error", err)
		}
	}))
	r.cron.Start()

	r.logger.InfoContext(ctx, "Runner started", "heartbeat", r.heartbeat.Expression)

	return nil
}

// Stop halts the heartbeat and waits for a running one to finish.
func (r *Runner) Stop(ctx context.Context) error {
	r.logger.Info("Stopping runner")

	if r.cron == nil {
		return nil
	}

	select {
	case <-r.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the runner and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return r.Stop(stopCtx)
}

// Beat ends the current cycle. Outputs collected since the previous beat go
// to the next tier.
func (r *Runner) Beat(ctx context.Context) error {
	r.mu.Lock()
	values := r.latest
	r.latest = make(map[string]any)
	r.heartbeat.Tick(time.Now())
	cycle := r.heartbeat.Cycles
	r.pipeline.EndCycle()
	r.mu.Unlock()

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "runner.beat",
		attribute.String(otelhelper.TierKey, string(r.tier)),
		attribute.Int(otelhelper.HeartbeatKey, cycle),
		attribute.Int(otelhelper.OutputsKey, len(values)),
	)
	defer span.End()

	if r.tier == models.TierGlobal || len(values) == 0 {
		r.logger.DebugContext(ctx, "Cycle ended", "cycle", cycle, "outputs", len(values))

		return nil
	}

	batch := events.NewTierBatch(r.id, cycle, r.tier.Next(), values)
	if err := r.bus.Publish(ctx, r.key, batch); err != nil {
		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to forward cycle %d: %w", cycle, err)
	}

	r.logger.InfoContext(ctx, "Cycle forwarded", "cycle", cycle, "outputs", len(values), "batch_id", batch.ID)

	return nil
}

func (r *Runner) handleBatch(ctx context.Context, batch *events.TierBatch) error {
	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "runner.evaluate",
		attribute.String(otelhelper.TierKey, string(r.tier)),
		attribute.String(otelhelper.BatchIDKey, batch.ID),
		attribute.String(otelhelper.BatchSourceKey, batch.Source),
		attribute.Int(otelhelper.HeartbeatKey, batch.Heartbeat),
	)
	defer span.End()

	r.mu.Lock()

	out, err := r.pipeline.Evaluate(batch.Values, r.tier)
	if err == nil {
		maps.Copy(r.latest, out)
	}

	r.mu.Unlock()

	if err != nil {
		var nodeErr *models.NodeError
		if errors.As(err, &nodeErr) {
			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeKey, nodeErr.Node))
		} else {
			otelhelper.SetError(span, err)
		}

		r.logger.WarnContext(ctx, "Dropping batch", "batch_id", batch.ID, "source", batch.Source, "error", err)

		return nil
	}

	span.SetAttributes(attribute.Int(otelhelper.OutputsKey, len(out)))
	r.logger.DebugContext(ctx, "Batch evaluated", "batch_id", batch.ID, "source", batch.Source, "outputs", len(out))

	if r.tier != models.TierGlobal || len(out) == 0 {
		return nil
	}

	// Not retried: the batch is already folded into operator state.
	result := events.NewTierBatch(r.id, batch.Heartbeat, models.TierUnset, out)
	if err := r.bus.Publish(ctx, r.key, result); err != nil {
		otelhelper.SetError(span, err)
		r.logger.ErrorContext(ctx, "Failed to publish results", "batch_id", batch.ID, "error", err)
	}

	return nil
}
