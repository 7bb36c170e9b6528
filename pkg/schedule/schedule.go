// Package schedule triggers recurring extraction runs on a cron expression.
package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/neosense/neosense/pkg/orchestrator"
	"github.com/robfig/cron/v3"
)

// Scheduler starts a fresh extraction run every time the cron expression
// fires. Runs use the orchestrator's default credentials.
type Scheduler struct {
	logger       *slog.Logger
	orchestrator *orchestrator.Orchestrator
	cron         *cron.Cron
}

func NewScheduler(logger *slog.Logger, orch *orchestrator.Orchestrator) *Scheduler {
	return &Scheduler{
		logger:       logger.With("module", "scheduler"),
		orchestrator: orch,
		cron:         cron.New(),
	}
}

// Start registers the expression and begins firing. The context bounds the
// lifetime of every triggered run.
func (s *Scheduler) Start(ctx context.Context, expression string) error {
	_, err := s.cron.AddFunc(expression, func() {
		runID := uuid.New().String()
		s.logger.InfoContext(ctx, "Starting scheduled extraction run", "run_id", runID)

		if _, err := s.orchestrator.Execute(ctx, runID, nil); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled extraction run failed",
				"run_id", runID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register schedule %q: %w", expression, err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Scheduler started", "expression", expression)

	return nil
}

// Stop halts the cron loop and waits for in-flight jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
