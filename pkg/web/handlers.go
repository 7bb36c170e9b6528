// Package web provides HTTP handlers and REST API endpoints for extraction runs.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/neosense/neosense/pkg/credentials"
	"github.com/neosense/neosense/pkg/graph"
	"github.com/neosense/neosense/pkg/orchestrator"
	"github.com/neosense/neosense/pkg/report"
	"github.com/neosense/neosense/pkg/resultstore"
)

const connectionProbeTimeout = 30 * time.Second

type APIHandlers struct {
	logger       *slog.Logger
	orchestrator *orchestrator.Orchestrator
	store        resultstore.Store
	dialer       graph.Dialer
	defaults     credentials.Credentials
	validator    *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	orch *orchestrator.Orchestrator,
	store resultstore.Store,
	dialer graph.Dialer,
	defaults credentials.Credentials,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:       logger.With("module", "web"),
		orchestrator: orch,
		store:        store,
		dialer:       dialer,
		defaults:     defaults,
		validator:    validator,
	}
}

// StartRun accepts an extraction run and executes it in the background.
// The run id in the 202 response is usable for status and report lookups
// immediately.
func (h *APIHandlers) StartRun(c fiber.Ctx) error {
	var req StartRunRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, "Invalid request: "+err.Error())
		}
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	explicit := req.Credentials.toCredentials()

	go func() {
		if _, err := h.orchestrator.Execute(context.Background(), runID, explicit); err != nil {
			h.logger.Error("Extraction run failed", "run_id", runID, "error", err)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(StartRunResponse{
		RunID: runID,
		State: string(orchestrator.StatePending),
	})
}

// GetRun returns the lifecycle status of a run.
func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.orchestrator.Status(id)
	if err != nil {
		return notFound(c, "Run not found")
	}

	return c.JSON(run)
}

// GetRunReport returns the persisted report for a run. A known run that has
// not persisted yet answers 202 instead of 404.
func (h *APIHandlers) GetRunReport(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	rep, err := h.orchestrator.Lookup(c.Context(), id)
	if err != nil {
		if resultstore.IsPending(err) {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"run_id": id,
				"status": "pending",
			})
		}

		if resultstore.IsNotFound(err) {
			return notFound(c, "Report not found")
		}

		return internalError(c, err)
	}

	return c.JSON(rep)
}

// GetLatestReport returns the most recently persisted report.
func (h *APIHandlers) GetLatestReport(c fiber.Ctx) error {
	rep, err := h.store.Latest(c.Context())
	if err != nil {
		if resultstore.IsNotFound(err) {
			return notFound(c, "No report has been persisted yet")
		}

		return internalError(c, err)
	}

	return c.JSON(rep)
}

// StoreReport upserts an externally produced report under a run id.
// The document is validated against the report schema before it is stored.
func (h *APIHandlers) StoreReport(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	body := c.Body()
	if len(body) == 0 {
		return badRequest(c, "Request body is required")
	}

	if err := report.ValidateDocument(body); err != nil {
		return unprocessable(c, err.Error())
	}

	var rep report.Report
	if err := json.Unmarshal(body, &rep); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.store.Put(c.Context(), id, &rep); err != nil {
		return internalError(c, err)
	}

	return c.JSON(StoreReportResponse{RunID: id})
}

// TestConnection probes graph connectivity with the supplied or configured
// credentials. Probe failure is reported in the body, not as an HTTP error.
func (h *APIHandlers) TestConnection(c fiber.Ctx) error {
	var req TestConnectionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}

		if err := h.validator.Struct(req); err != nil {
			return badRequest(c, "Invalid request: "+err.Error())
		}
	}

	creds, err := credentials.Resolve(req.Credentials.toCredentials(), h.defaults)
	if err != nil {
		return c.JSON(TestConnectionResponse{Success: false, Error: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Context(), connectionProbeTimeout)
	defer cancel()

	if err := h.probe(ctx, creds); err != nil {
		return c.JSON(TestConnectionResponse{Success: false, Error: err.Error()})
	}

	return c.JSON(TestConnectionResponse{Success: true})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	storeErr := h.store.HealthCheck(c.Context())

	status := "healthy"
	message := "Neosense API is healthy"
	httpStatus := http.StatusOK

	if storeErr != nil {
		status = "unhealthy"
		message = "Neosense API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"resultstore": healthDetail(storeErr),
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) probe(ctx context.Context, creds credentials.Credentials) error {
	client, err := h.dialer(creds)
	if err != nil {
		return err
	}

	defer func() {
		if err := client.Close(ctx); err != nil {
			h.logger.Warn("Failed to close probe client", "error", err)
		}
	}()

	if err := client.Connect(ctx); err != nil {
		return err
	}

	return client.VerifyConnectivity(ctx)
}

func healthDetail(err error) string {
	if err != nil {
		return err.Error()
	}

	return "ok"
}

func (p *CredentialsPayload) toCredentials() *credentials.Credentials {
	if p == nil {
		return nil
	}

	return &credentials.Credentials{
		Endpoint: p.URI,
		Username: p.Username,
		Secret:   p.Password,
	}
}
