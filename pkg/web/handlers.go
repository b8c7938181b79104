// Package web provides HTTP handlers and REST API endpoints for pipeline control.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/tierflow/pkg/models"
	"github.com/dukex/tierflow/pkg/registry"
	"github.com/dukex/tierflow/pkg/services"
)

type APIHandlers struct {
	pipeline  *services.Pipeline
	validator *validator.Validate
	registry  *registry.Registry
}

func NewAPIHandlers(
	pipeline *services.Pipeline,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		pipeline:  pipeline,
		validator: validator,
		registry:  registry,
	}
}

// Register mounts every endpoint on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/nodes", h.GetNodes)
	router.Put("/nodes/:name", h.UpsertNode)
	router.Delete("/nodes/:name", h.RemoveNode)
	router.Delete("/nodes", h.ClearNodes)
	router.Get("/node-types", h.GetNodeTypes)
	router.Get("/outputs", h.GetOutputs)
	router.Get("/types", h.GetTypes)
	router.Post("/reset", h.ResetAll)
	router.Post("/compile", h.Compile)
	router.Get("/compile", h.Inspect)
	router.Post("/evaluate/:tier", h.Evaluate)
	router.Get("/snapshot", h.GetSnapshot)
	router.Put("/snapshot", h.PutSnapshot)
	router.Post("/snapshot/save", h.SaveSnapshot)
	router.Post("/snapshot/load", h.LoadSnapshot)
	router.Get("/health", h.HealthCheck)
}

func (h *APIHandlers) GetNodes(c fiber.Ctx) error {
	return c.JSON(h.pipeline.GetNodes())
}

func (h *APIHandlers) UpsertNode(c fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return badRequest(c, "Node name is required")
	}

	var req UpsertNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	stored, err := h.pipeline.UpsertNode(req.Spec(name))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stored)
}

func (h *APIHandlers) RemoveNode(c fiber.Ctx) error {
	removed, err := h.pipeline.RemoveNode(c.Params("name"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(RemoveNodeResponse{Removed: removed})
}

func (h *APIHandlers) ClearNodes(c fiber.Ctx) error {
	h.pipeline.Clear()

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	factories := h.registry.GetAvailableNodes()

	out := make([]NodeTypeResponse, 0, len(factories))
	for _, f := range factories {
		out = append(out, NodeTypeResponse{
			ID:          f.ID(),
			Name:        f.Name(),
			Description: f.Description(),
			Schema:      f.Schema(),
		})
	}

	return c.JSON(out)
}

func (h *APIHandlers) GetOutputs(c fiber.Ctx) error {
	return c.JSON(h.pipeline.GetOutputs())
}

func (h *APIHandlers) GetTypes(c fiber.Ctx) error {
	return c.JSON(h.pipeline.GetTypes())
}

func (h *APIHandlers) ResetAll(c fiber.Ctx) error {
	h.pipeline.ResetAll()

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) Compile(c fiber.Ctx) error {
	var req CompileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	report, err := h.pipeline.Compile(req.Workers, req.LocalCollectors)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) Inspect(c fiber.Ctx) error {
	report, err := h.pipeline.Inspect()
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) Evaluate(c fiber.Ctx) error {
	tier, err := models.ParseTier(c.Params("tier"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req EvaluateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	outputs, err := h.pipeline.Evaluate(req.Values, tier)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(EvaluateResponse{
		Tier:    tier,
		Outputs: jsonValue(outputs).(map[string]any),
	})
}

func (h *APIHandlers) GetSnapshot(c fiber.Ctx) error {
	blob, err := h.pipeline.Snapshot()
	if err != nil {
		return internalError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)

	return c.Send(blob)
}

func (h *APIHandlers) PutSnapshot(c fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return badRequest(c, "Snapshot body is required")
	}

	if err := h.pipeline.Restore(c.Body()); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(h.pipeline.GetNodes())
}

func (h *APIHandlers) SaveSnapshot(c fiber.Ctx) error {
	if err := h.pipeline.Save(c.Context()); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) LoadSnapshot(c fiber.Ctx) error {
	if err := h.pipeline.Load(c.Context()); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.pipeline.GetNodes())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	storeCheck, ok := h.pipeline.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Tierflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Tierflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"store": storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
