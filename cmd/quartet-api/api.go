// Package main provides the quartet API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/quartetdev/quartet/pkg/orchestrator"
	"github.com/quartetdev/quartet/pkg/persistence"
	"github.com/quartetdev/quartet/pkg/runner"
	"github.com/quartetdev/quartet/pkg/web"
)

type API struct {
	logger       *slog.Logger
	orchestrator *orchestrator.Orchestrator
	runner       *runner.Runner
	persistence  persistence.Persistence
}

func NewAPI(
	logger *slog.Logger,
	orch *orchestrator.Orchestrator,
	run *runner.Runner,
	store persistence.Persistence,
) *API {
	return &API{
		logger:       logger,
		orchestrator: orch,
		runner:       run,
		persistence:  store,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.orchestrator, a.runner, a.persistence)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Quartet API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
