package main

import (
	"context"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/tierflow/pkg/log"
	"github.com/dukex/tierflow/pkg/persistence"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the control API of a pipeline",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			databaseURLFlag(),
			keyFlag(),
			pluginsPathFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing Tierflow API")

			env, err := openEnvironment(ctx, logger, command.String("plugins-path"), command.String("database-url"), command.String("key"))
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			p := env.pipeline()

			switch err := p.Load(ctx); {
			case err == nil:
				logger.InfoContext(ctx, "Restored pipeline", "key", env.key)
			case persistence.IsSnapshotNotFound(err):
				logger.InfoContext(ctx, "Starting with an empty pipeline", "key", env.key)
			default:
				return err
			}

			return NewAPI(logger, p, env.registry).Start(command.Int("port"))
		},
	}
}
