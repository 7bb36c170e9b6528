package main

import (
	"context"
	"log/slog"

	"github.com/neosense/neosense/pkg/catalog"
	"github.com/neosense/neosense/pkg/cmd"
	"github.com/neosense/neosense/pkg/config"
	"github.com/neosense/neosense/pkg/credentials"
	"github.com/neosense/neosense/pkg/eventbus"
	"github.com/neosense/neosense/pkg/graph"
	"github.com/neosense/neosense/pkg/graph/neo4j"
	"github.com/neosense/neosense/pkg/orchestrator"
	"github.com/neosense/neosense/pkg/otelhelper"
	"github.com/neosense/neosense/pkg/resultstore"
	cli "github.com/urfave/cli/v3"
)

// deps holds everything a command needs after construction.
type deps struct {
	store    resultstore.Store
	eventBus eventbus.EventBus
	dialer   graph.Dialer
	defaults credentials.Credentials
	orch     *orchestrator.Orchestrator
}

func buildDeps(ctx context.Context, logger *slog.Logger, command *cli.Command) (*deps, error) {
	store, err := cmd.NewResultStore(ctx, logger, command.String("results-url"))
	if err != nil {
		return nil, err
	}

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
	if err != nil {
		return nil, err
	}

	defaults := credentials.Credentials{
		Endpoint: command.String("graph-uri"),
		Username: command.String("graph-username"),
		Secret:   command.String("graph-password"),
	}

	operations := catalog.Default()

	if path := command.String("probes-config"); path != "" {
		probes, err := config.LoadProbeConfig(path)
		if err != nil {
			return nil, err
		}

		operations[catalog.SlotQualityMetrics].Fetch = catalog.QualityFetch(probes)
	}

	dialer := neo4j.Dial(logger)

	tracer, err := otelhelper.NewTracer(ctx, "neosense")
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(logger, orchestrator.Options{
		Dialer:     dialer,
		Store:      store,
		EventBus:   eventBus,
		Defaults:   defaults,
		Operations: operations,
		Tracer:     tracer,
	})

	return &deps{
		store:    store,
		eventBus: eventBus,
		dialer:   dialer,
		defaults: defaults,
		orch:     orch,
	}, nil
}

func (d *deps) close(ctx context.Context, logger *slog.Logger) {
	if err := d.orch.Close(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to close graph connection", "error", err)
	}

	if err := d.store.Close(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to close result store", "error", err)
	}

	if d.eventBus != nil {
		if err := d.eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}
}
