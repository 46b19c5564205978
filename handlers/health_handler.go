package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"insights-gateway/models"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// APITest godoc
// @Summary API smoke test
// @Tags health
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Router /api/test [get]
func (h *HealthHandler) APITest(c *fiber.Ctx) error {
	return c.JSON(models.MessageResponse{Message: "API is working"})
}

// Health godoc
// @Summary Readiness check
// @Description Reports DOWN when a configured dependency (Redis lock backend) is unreachable
// @Tags health
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Failure 503 {object} models.StatusResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(models.StatusResponse{
				Status: "DOWN",
				Error:  name + ": " + err.Error(),
			})
		}
	}
	return c.JSON(models.StatusResponse{Status: "UP"})
}
