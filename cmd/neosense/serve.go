package main

import (
	"context"
	"log/slog"

	"github.com/neosense/neosense/pkg/log"
	"github.com/neosense/neosense/pkg/schedule"
	cli "github.com/urfave/cli/v3"
)

func serve(ctx context.Context, logger *slog.Logger, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger.InfoContext(ctx, "Initializing Neosense API",
		"results_url", command.String("results-url"))

	deps, err := buildDeps(ctx, logger, command)
	if err != nil {
		return err
	}

	defer deps.close(ctx, logger)

	if expression := command.String("schedule"); expression != "" {
		scheduler := schedule.NewScheduler(logger, deps.orch)
		if err := scheduler.Start(ctx, expression); err != nil {
			return err
		}

		defer scheduler.Stop()
	}

	api := NewAPI(logger, deps)

	return api.Start(command.Int("port"))
}
