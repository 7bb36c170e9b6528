package main

import (
	"context"
	"os"

	"github.com/neosense/neosense/pkg/log"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 8000

func main() {
	logger := log.WithModule("neosense")

	sharedFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "results-url",
			Usage:   "Result store URL (file path, postgres:// or redis://)",
			Value:   "./workflow_results",
			Sources: cli.EnvVars("RESULTS_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus provider (gochannel, kafka); empty disables events",
			Value:   "",
			Sources: cli.EnvVars("EVENT_BUS"),
		},
		&cli.StringFlag{
			Name:    "graph-uri",
			Usage:   "Graph database connection URI",
			Sources: cli.EnvVars("NEO4J_URI"),
		},
		&cli.StringFlag{
			Name:    "graph-username",
			Usage:   "Graph database username",
			Sources: cli.EnvVars("NEO4J_USERNAME"),
		},
		&cli.StringFlag{
			Name:    "graph-password",
			Usage:   "Graph database password",
			Sources: cli.EnvVars("NEO4J_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "probes-config",
			Usage:   "Path to a YAML file overriding the built-in quality probes",
			Value:   "",
			Sources: cli.EnvVars("PROBES_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}

	cmd := &cli.Command{
		Name:                  "neosense",
		Usage:                 "Extract and serve graph database metadata reports",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the extraction API server",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "Port to run the API server on",
						Value:   defaultPort,
						Sources: cli.EnvVars("PORT"),
					},
					&cli.StringFlag{
						Name:    "schedule",
						Usage:   "Cron expression for recurring extraction runs",
						Value:   "",
						Sources: cli.EnvVars("EXTRACTION_SCHEDULE"),
					},
				}, sharedFlags...),
				Action: func(ctx context.Context, command *cli.Command) error {
					return serve(ctx, logger, command)
				},
			},
			{
				Name:  "extract",
				Usage: "Run one extraction and print the report",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "run-id",
						Usage: "Custom run ID (auto-generated if not provided)",
						Value: "",
					},
				}, sharedFlags...),
				Action: func(ctx context.Context, command *cli.Command) error {
					return extract(ctx, logger, command)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
