package handlers

import (
	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store          repositories.Store
	paymentService *services.PaymentService
	mode           string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store repositories.Store, paymentService *services.PaymentService, mode string) *HealthHandler {
	return &HealthHandler{
		store:          store,
		paymentService: paymentService,
		mode:           mode,
	}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 GenieQ API v1.0 is running",
		"mode":    h.mode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API, database and staging store health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	status := fiber.StatusOK

	dbStatus := "healthy"
	if err := h.store.Ping(c.Context()); err != nil {
		dbStatus = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}

	stagingStatus := "healthy"
	if err := h.paymentService.Healthy(c.Context()); err != nil {
		stagingStatus = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}

	overall := "ok"
	if status != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"api":      "healthy",
			"database": dbStatus,
			"staging":  stagingStatus,
		},
	})
}

// StorageTest runs a stage, fetch, verify, remove round against the staging store
// @Summary Staging store self-test
// @Tags Health
// @Produce json
// @Success 200 {object} services.StorageCheck
// @Failure 503 {object} services.StorageCheck
// @Router /health/storage-test [get]
func (h *HealthHandler) StorageTest(c *fiber.Ctx) error {
	result := h.paymentService.CheckStorage(c.Context())
	if !result.Removed || !result.Verified {
		return c.Status(fiber.StatusServiceUnavailable).JSON(result)
	}
	return c.JSON(result)
}
