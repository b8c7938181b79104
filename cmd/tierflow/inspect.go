package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/tierflow/pkg/graph"
	"github.com/dukex/tierflow/pkg/log"
	"github.com/dukex/tierflow/pkg/services"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Draw the tiers of a compiled pipeline",
		ArgsUsage: "[graph.json|graph.hcl]",
		Description: "Without a graph file the snapshot stored under --key is inspected. " +
			"With one, the file is compiled in memory using --workers and --local-collectors.",
		Flags: append(ratioFlags(),
			databaseURLFlag(),
			keyFlag(),
			pluginsPathFlag(),
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			env, err := openEnvironment(ctx, log.WithModule("inspect"), command.String("plugins-path"), command.String("database-url"), command.String("key"))
			if err != nil {
				return err
			}
			defer env.Close(ctx)

			var p *services.Pipeline

			var report *services.CompileReport

			if path := command.Args().First(); path != "" {
				if p, err = env.loadGraph(path); err != nil {
					return err
				}

				report, err = p.Compile(command.Int("workers"), command.Int("local-collectors"))
			} else {
				p = env.pipeline()
				if err = p.Load(ctx); err != nil {
					return err
				}

				report, err = p.Inspect()
			}

			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(command.Root().Writer, drawTiers(env.key, report))

			return err
		},
	}
}

// drawTiers renders the pipeline as a tree: tiers, then branches, then nodes
// in execution order.
func drawTiers(key string, report *services.CompileReport) string {
	root := tree.NewTree(tree.NodeString(fmt.Sprintf("%s (w=%d, l=%d)", key, report.Workers, report.LocalCollectors)))

	for _, tr := range report.Tiers {
		tierNode := root.AddChild(tree.NodeString(tierLabel(tr)))
		branches := make(map[string]*tree.Tree)

		for _, step := range report.Steps {
			if step.Tier != tr.Tier {
				continue
			}

			parent := tierNode
			if step.Branch != graph.NoBranch {
				if branches[step.Branch] == nil {
					branches[step.Branch] = tierNode.AddChild(tree.NodeString("if " + step.Branch))
				}

				parent = branches[step.Branch]
			}

			parent.AddChild(tree.NodeString(step.Node + " [" + step.Type + "]"))
		}
	}

	return root.String()
}

func tierLabel(tr services.TierReport) string {
	if len(tr.Outputs) == 0 {
		return tr.Tier.String()
	}

	return tr.Tier.String() + " -> " + strings.Join(tr.Outputs, ", ")
}
