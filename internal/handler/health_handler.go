package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/go-mini-rag/internal/service"
)

// HealthHandler handles health and API info endpoints.
type HealthHandler struct {
	rag     *service.RAGService
	appName string
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(rag *service.RAGService, appName, version string) *HealthHandler {
	return &HealthHandler{rag: rag, appName: appName, version: version}
}

// Register sets up the public health routes.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
	router.Get("/api-info", h.APIInfo)
}

// Health probes the vector store and the embedding backend. A down
// backend degrades the report instead of failing the request.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	return c.JSON(h.rag.Health(c.Context()))
}

// APIInfo returns static service metadata.
func (h *HealthHandler) APIInfo(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":         h.appName,
		"version":         h.version,
		"health_endpoint": "/health",
	})
}
