package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dukex/tierflow/pkg/cmd"
	"github.com/dukex/tierflow/pkg/eventbus"
	"github.com/dukex/tierflow/pkg/log"
	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/otelhelper"
	"github.com/dukex/tierflow/pkg/runner"
)

const allTiers = "all"

func transportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Tier transport (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run tiers of a compiled pipeline",
		Flags: append(transportFlags(),
			&cli.StringFlag{
				Name:    "tier",
				Usage:   "Tier to run (worker, local_collector, global_collector, all)",
				Value:   allTiers,
				Sources: cli.EnvVars("TIERFLOW_TIER"),
			},
			&cli.StringFlag{
				Name:    "heartbeat",
				Usage:   "Cron expression ending each cycle",
				Value:   "@every 10s",
				Sources: cli.EnvVars("TIERFLOW_HEARTBEAT"),
			},
			&cli.StringFlag{
				Name:    "runner-id",
				Usage:   "Identifier of this process in published batches",
				Sources: cli.EnvVars("TIERFLOW_RUNNER_ID"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("TIERFLOW_TRACING"),
			},
			databaseURLFlag(),
			keyFlag(),
			pluginsPathFlag(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			tiers, err := parseTiers(command.String("tier"))
			if err != nil {
				return err
			}

			runnerID := command.String("runner-id")
			if runnerID == "" {
				runnerID = "runner-" + uuid.New().String()[:8]
			}

			logger := log.FromContext(ctx).With("module", "run").With("runner_id", runnerID)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := openEnvironment(ctx, logger, command.String("plugins-path"), command.String("database-url"), command.String("key"))
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			blob, err := env.store.Load(ctx, env.key)
			if err != nil {
				return fmt.Errorf("failed to load pipeline %q: %w", env.key, err)
			}

			tracer := otelhelper.NoopTracer()
			if command.Bool("tracing") {
				if tracer, err = otelhelper.NewTracer(ctx, "tierflow-"+command.String("tier")); err != nil {
					return err
				}
			}

			bus, err := cmd.NewEventBus(command.String("event-bus"), logger, command.String("kafka-brokers"), "tierflow-"+env.key)
			if err != nil {
				return err
			}

			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			g, ctx := errgroup.WithContext(ctx)

			for _, tier := range tiers {
				r, err := newRunner(env, blob, tier, runnerID, command.String("heartbeat"), bus, tracer)
				if err != nil {
					return err
				}

				g.Go(func() error { return r.Run(ctx) })
			}

			logger.InfoContext(ctx, "Tierflow running", "tiers", tiers, "key", env.key)

			return g.Wait()
		},
	}
}

// newRunner gives every tier its own pipeline so heartbeats of one tier do
// not clear the state of another.
func newRunner(env *environment, blob []byte, tier models.Tier, runnerID, heartbeat string, bus eventbus.EventBus, tracer trace.Tracer) (*runner.Runner, error) {
	p := env.pipeline()
	if err := p.Restore(blob); err != nil {
		return nil, err
	}

	return runner.New(runner.Config{
		ID:        runnerID + "-" + string(tier),
		Tier:      tier,
		Key:       env.key,
		Heartbeat: heartbeat,
	}, p, bus, tracer, env.logger)
}

func parseTiers(name string) ([]models.Tier, error) {
	if name == allTiers {
		return models.Tiers(), nil
	}

	tier, err := models.ParseTier(name)
	if err != nil {
		return nil, err
	}

	return []models.Tier{tier}, nil
}
