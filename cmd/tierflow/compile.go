package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/tierflow/pkg/log"
)

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Compile a graph file and save the snapshot",
		ArgsUsage: "<graph.json|graph.hcl>",
		Flags: append(ratioFlags(),
			databaseURLFlag(),
			keyFlag(),
			pluginsPathFlag(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.FromContext(ctx).With("module", "compile")

			path := command.Args().First()
			if path == "" {
				return cli.Exit("a graph file is required", 2)
			}

			env, err := openEnvironment(ctx, logger, command.String("plugins-path"), command.String("database-url"), command.String("key"))
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			p, err := env.loadGraph(path)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}

			report, err := p.Compile(command.Int("workers"), command.Int("local-collectors"))
			if err != nil {
				return err
			}

			if err := p.Save(ctx); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Pipeline compiled",
				"graph", path,
				"key", env.key,
				"steps", len(report.Steps),
				"expansion_points", report.ExpansionPoints,
				"branches", len(report.Branches),
			)

			return nil
		},
	}
}
