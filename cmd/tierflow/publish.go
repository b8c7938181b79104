package main

import (
	"context"
	"errors"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/tierflow/pkg/cmd"
	"github.com/dukex/tierflow/pkg/codec"
	"github.com/dukex/tierflow/pkg/events"
	"github.com/dukex/tierflow/pkg/log"
	"github.com/dukex/tierflow/pkg/models"
)

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish input values to a tier",
		ArgsUsage: `'{"port": value, ...}'`,
		Flags: append(transportFlags(),
			&cli.StringFlag{
				Name:  "tier",
				Usage: "Tier receiving the values",
				Value: string(models.TierWorker),
			},
			keyFlag(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.FromContext(ctx).With("module", "publish")

			tier, err := models.ParseTier(command.String("tier"))
			if err != nil {
				return err
			}

			values, err := parseValues(command.Args().First())
			if err != nil {
				return err
			}

			bus, err := cmd.NewEventBus(command.String("event-bus"), logger, command.String("kafka-brokers"), "tierflow-publish")
			if err != nil {
				return err
			}

			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			batch := events.NewTierBatch("cli", 0, tier, values)
			if err := bus.Publish(ctx, command.String("key"), batch); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Batch published", "batch_id", batch.ID, "topic", batch.Topic(), "values", len(values))

			return nil
		},
	}
}

// parseValues decodes a JSON object of port values. Numbers become int64 when
// they are whole and float64 otherwise.
func parseValues(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, errors.New("values are required")
	}

	values, err := codec.DecodeJSONObject([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid values: %w", err)
	}

	return values, nil
}
