package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dukex/tierflow/pkg/registry"
	"github.com/dukex/tierflow/pkg/services"
	"github.com/dukex/tierflow/pkg/web"
)

// API serves the control surface of one pipeline.
type API struct {
	logger   *slog.Logger
	pipeline *services.Pipeline
	registry *registry.Registry
	validate *validator.Validate
}

func NewAPI(logger *slog.Logger, pipeline *services.Pipeline, registry *registry.Registry) *API {
	return &API{
		logger:   logger,
		pipeline: pipeline,
		registry: registry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.pipeline, a.validate, a.registry)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Tierflow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
