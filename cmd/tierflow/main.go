package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/tierflow/pkg/log"
)

const (
	defaultPort        = 9091
	defaultDatabaseURL = "file://./snapshots"
	defaultKey         = "default"
)

func main() {
	cmd := &cli.Command{
		Name:                  "tierflow",
		Usage:                 "Compile and run tier-partitioned dataflow pipelines",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"), command.String("log-format"))

			return log.WithLogger(ctx, slog.Default()), nil
		},
		Commands: []*cli.Command{
			compileCommand(),
			inspectCommand(),
			serveCommand(),
			runCommand(),
			publishCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.WithModule("cli").Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database-url",
		Usage:   "Snapshot store URL (file://<dir> or redis://host:port/db)",
		Value:   defaultDatabaseURL,
		Sources: cli.EnvVars("DATABASE_URL"),
	}
}

func keyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Snapshot key of the pipeline",
		Value:   defaultKey,
		Sources: cli.EnvVars("TIERFLOW_KEY"),
	}
}

func pluginsPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "plugins-path",
		Usage:   "Path to the directory containing node plugins",
		Sources: cli.EnvVars("PLUGINS_PATH"),
	}
}

func ratioFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Number of worker processes",
			Value:   1,
			Sources: cli.EnvVars("TIERFLOW_WORKERS"),
		},
		&cli.IntFlag{
			Name:    "local-collectors",
			Aliases: []string{"l"},
			Usage:   "Number of local collector processes",
			Value:   1,
			Sources: cli.EnvVars("TIERFLOW_LOCAL_COLLECTORS"),
		},
	}
}
