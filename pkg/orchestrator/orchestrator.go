// Package orchestrator drives extraction runs end to end: credential
// resolution, the gating connectivity check, parallel metadata collection,
// aggregation into a report, and idempotent persistence.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neosense/neosense/pkg/aggregate"
	"github.com/neosense/neosense/pkg/catalog"
	"github.com/neosense/neosense/pkg/credentials"
	"github.com/neosense/neosense/pkg/eventbus"
	"github.com/neosense/neosense/pkg/events"
	"github.com/neosense/neosense/pkg/graph"
	"github.com/neosense/neosense/pkg/otelhelper"
	"github.com/neosense/neosense/pkg/report"
	"github.com/neosense/neosense/pkg/resultstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Options configures an Orchestrator. Dialer and Store are required;
// everything else has a default.
type Options struct {
	Dialer     graph.Dialer
	Store      resultstore.Store
	EventBus   eventbus.EventBus
	Defaults   credentials.Credentials
	Operations []catalog.Operation
	Preflight  *catalog.Operation
	Tracer     trace.Tracer
}

// Orchestrator executes extraction runs. The operation catalog is shared
// read-only by all runs; each run gets its own outcome slice. All runs share
// one lazily-dialed graph connection, torn down via Close.
type Orchestrator struct {
	logger     *slog.Logger
	handle     *graph.Handle
	store      resultstore.Store
	eventBus   eventbus.EventBus
	defaults   credentials.Credentials
	operations []catalog.Operation
	preflight  catalog.Operation
	tracer     trace.Tracer
	runs       *runRegistry
}

// New creates an orchestrator with the default operation catalog unless
// Options overrides it.
func New(logger *slog.Logger, opts Options) *Orchestrator {
	operations := opts.Operations
	if operations == nil {
		operations = catalog.Default()
	}

	preflight := catalog.Preflight()
	if opts.Preflight != nil {
		preflight = *opts.Preflight
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("neosense")
	}

	return &Orchestrator{
		logger:     logger.With("module", "orchestrator"),
		handle:     graph.NewHandle(opts.Dialer),
		store:      opts.Store,
		eventBus:   opts.EventBus,
		defaults:   opts.Defaults,
		operations: operations,
		preflight:  preflight,
		tracer:     tracer,
		runs:       newRunRegistry(),
	}
}

// Execute runs one extraction end to end and returns the aggregated report.
// The report is non-nil even on credential or preflight failure; those runs
// persist an error-shaped report so the failure itself is queryable.
func (o *Orchestrator) Execute(ctx context.Context, runID string, explicit *credentials.Credentials) (*report.Report, error) {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "run.execute",
		attribute.String(otelhelper.RunIDKey, runID))
	defer span.End()

	logger := o.logger.With("run_id", runID)
	run := o.runs.begin(runID)

	creds, err := credentials.Resolve(explicit, o.defaults)
	if err != nil {
		logger.ErrorContext(ctx, "Credential resolution failed", "error", err)
		o.runs.setError(runID, err.Error())
		o.runs.transition(runID, StatePreflightFailed)
		otelhelper.SetError(span, err)

		rep := report.Errored(fmt.Sprintf("Credential resolution failed: %v", err))
		o.persist(ctx, logger, runID, rep)

		return rep, err
	}

	o.runs.transition(runID, StateCredentialsResolved)
	o.publish(ctx, logger, runID, events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, runID),
		Endpoint:  creds.Endpoint,
	})
	logger.InfoContext(ctx, "Starting extraction run", "endpoint", creds.Endpoint)

	if outcome := o.runOperation(ctx, creds, o.preflight); outcome.Failed() {
		logger.ErrorContext(ctx, "Preflight connectivity check failed", "error", outcome.Err)
		o.runs.setError(runID, outcome.Err.Error())
		o.runs.transition(runID, StatePreflightFailed)
		otelhelper.SetError(span, outcome.Err)
		o.publish(ctx, logger, runID, events.RunPreflightFailed{
			BaseEvent: events.NewBaseEvent(events.RunPreflightFailedEvent, runID),
			Attempts:  o.preflight.Retry.MaxAttempts,
			Error:     outcome.Err.Error(),
		})

		rep := report.Errored(fmt.Sprintf("Failed to connect to graph database: %v", outcome.Err))
		o.persist(ctx, logger, runID, rep)

		return rep, &PreflightError{Attempts: o.preflight.Retry.MaxAttempts, Err: outcome.Err}
	}

	o.runs.transition(runID, StatePreflightOK)
	o.runs.transition(runID, StateFetching)

	outcomes := o.fanOut(ctx, logger, runID, creds)

	rep := aggregate.Aggregate(outcomes)
	o.runs.transition(runID, StateAggregated)

	partial := len(rep.FailedOperations) > 0
	if partial {
		o.runs.markPartial(runID)
		logger.WarnContext(ctx, "Run completed with failed operations",
			"failed_operations", rep.FailedOperations)
	}

	o.persist(ctx, logger, runID, rep)

	o.publish(ctx, logger, runID, events.RunCompleted{
		BaseEvent:        events.NewBaseEvent(events.RunCompletedEvent, runID),
		Partial:          partial,
		FailedOperations: rep.FailedOperations,
		Duration:         time.Since(run.StartedAt),
	})
	logger.InfoContext(ctx, "Extraction run completed",
		"partial", partial, "duration", time.Since(run.StartedAt))

	return rep, nil
}

// Lookup resolves a report by run id. A run that is known but has not
// persisted yet reports pending before the store is consulted, so an
// in-flight run never resolves to another run's report through the store's
// latest-alias fallback.
func (o *Orchestrator) Lookup(ctx context.Context, runID string) (*report.Report, error) {
	if run, ok := o.runs.get(runID); ok && !run.State.terminal() {
		return nil, &resultstore.StoreError{Op: "lookup", RunID: runID, Err: resultstore.ErrReportPending}
	}

	return o.store.Get(ctx, runID)
}

// Close tears down the shared graph connection. The orchestrator stays
// usable; the next run dials again.
func (o *Orchestrator) Close(ctx context.Context) error {
	return o.handle.Close(ctx)
}

// Latest returns the most recently persisted report.
func (o *Orchestrator) Latest(ctx context.Context) (*report.Report, error) {
	return o.store.Latest(ctx)
}

// Status returns the registry view of a run.
func (o *Orchestrator) Status(runID string) (Run, error) {
	run, ok := o.runs.get(runID)
	if !ok {
		return Run{}, ErrRunNotFound
	}

	return run, nil
}

// fanOut launches every catalog operation concurrently and joins all of
// them. Outcomes keep the catalog's positional order regardless of
// completion order, and one failure never disturbs the other slots.
func (o *Orchestrator) fanOut(ctx context.Context, logger *slog.Logger, runID string, creds credentials.Credentials) []catalog.Outcome {
	outcomes := make([]catalog.Outcome, len(o.operations))

	var group sync.WaitGroup

	for i, op := range o.operations {
		group.Add(1)

		go func(slot int, op catalog.Operation) {
			defer group.Done()

			started := time.Now()
			outcomes[slot] = o.runOperation(ctx, creds, op)

			if outcomes[slot].Failed() {
				logger.ErrorContext(ctx, "Operation failed",
					"operation", op.Name, "error", outcomes[slot].Err)
				o.publish(ctx, logger, runID, events.OperationFailed{
					BaseEvent: events.NewBaseEvent(events.OperationFailedEvent, runID),
					Operation: op.Name,
					Attempts:  op.Retry.MaxAttempts,
					Error:     outcomes[slot].Err.Error(),
				})

				return
			}

			logger.InfoContext(ctx, "Operation completed",
				"operation", op.Name, "duration", time.Since(started))
			o.publish(ctx, logger, runID, events.OperationCompleted{
				BaseEvent: events.NewBaseEvent(events.OperationCompletedEvent, runID),
				Operation: op.Name,
				Duration:  time.Since(started),
			})
		}(i, op)
	}

	group.Wait()

	return outcomes
}

// runOperation executes one operation with its timeout and retry policy.
// The backoff before retry n is Retry.Backoff(n-1) and respects context
// cancellation.
func (o *Orchestrator) runOperation(ctx context.Context, creds credentials.Credentials, op catalog.Operation) catalog.Outcome {
	ctx, span := otelhelper.StartSpan(ctx, o.tracer, "operation."+op.Name,
		attribute.String(otelhelper.OperationNameKey, op.Name))
	defer span.End()

	var lastErr error

	for attempt := 0; attempt < op.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := op.Retry.Backoff(attempt - 1)

			select {
			case <-ctx.Done():
				lastErr = ctx.Err()

				return o.failedOutcome(span, op, lastErr)
			case <-time.After(wait):
			}
		}

		client, err := o.handle.Client(ctx, creds)
		if err != nil {
			lastErr = err

			continue
		}

		opCtx, cancel := context.WithTimeout(ctx, op.Timeout)
		payload, err := op.Fetch(opCtx, client)
		cancel()

		if err == nil {
			return catalog.Outcome{Name: op.Name, Payload: payload}
		}

		span.AddEvent("attempt_failed", trace.WithAttributes(
			attribute.Int(otelhelper.AttemptKey, attempt+1)))

		lastErr = err
	}

	return o.failedOutcome(span, op, lastErr)
}

func (o *Orchestrator) failedOutcome(span trace.Span, op catalog.Operation, err error) catalog.Outcome {
	wrapped := &OperationError{Name: op.Name, Attempts: op.Retry.MaxAttempts, Err: err}
	otelhelper.SetError(span, wrapped)

	return catalog.Outcome{Name: op.Name, Err: wrapped}
}

// persist writes the report and repoints the latest alias. A store failure
// does not fail the run; the report is still returned to the caller.
func (o *Orchestrator) persist(ctx context.Context, logger *slog.Logger, runID string, rep *report.Report) {
	if err := o.store.Put(ctx, runID, rep); err != nil {
		logger.ErrorContext(ctx, "Failed to persist report", "error", err)

		return
	}

	o.runs.transition(runID, StatePersisted)
	o.publish(ctx, logger, runID, events.ReportPersisted{
		BaseEvent: events.NewBaseEvent(events.ReportPersistedEvent, runID),
	})
}

// publish sends a lifecycle event. Event delivery is best-effort; a bus
// failure never affects the run.
func (o *Orchestrator) publish(ctx context.Context, logger *slog.Logger, runID string, event eventbus.Event) {
	if o.eventBus == nil {
		return
	}

	if err := o.eventBus.Publish(ctx, runID, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}
