// Package main provides the neosense extraction service.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/neosense/neosense/pkg/web"
)

type API struct {
	logger   *slog.Logger
	deps     *deps
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, deps *deps) *API {
	return &API{
		logger:   logger,
		deps:     deps,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(
		a.logger,
		a.deps.orch,
		a.deps.store,
		a.deps.dialer,
		a.deps.defaults,
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Neosense API")
	})

	runs := app.Group("/runs")
	runs.Post("/", handlers.StartRun)
	runs.Get("/:id", handlers.GetRun)
	runs.Get("/:id/report", handlers.GetRunReport)
	runs.Put("/:id/report", handlers.StoreReport)

	app.Get("/reports/latest", handlers.GetLatestReport)
	app.Post("/connection/test", handlers.TestConnection)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
