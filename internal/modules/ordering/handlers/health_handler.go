package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tablevox/phone-agent-be/internal/shared/database"
)

// HealthHandler reports service liveness
type HealthHandler struct {
	db *database.DB
}

func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check returns 200 when the service and its database are reachable
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.db.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  "database unreachable",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "phone-agent-be",
	})
}
