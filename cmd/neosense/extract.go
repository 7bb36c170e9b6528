package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/neosense/neosense/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func extract(ctx context.Context, logger *slog.Logger, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	deps, err := buildDeps(ctx, logger, command)
	if err != nil {
		return err
	}

	defer deps.close(ctx, logger)

	runID := command.String("run-id")
	if runID == "" {
		runID = uuid.New().String()
	}

	logger.InfoContext(ctx, "Starting extraction run", "run_id", runID)

	rep, err := deps.orch.Execute(ctx, runID, nil)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))

	return nil
}
