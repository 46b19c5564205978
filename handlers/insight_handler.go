package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"insights-gateway/models"
	"insights-gateway/services"
)

// InsightGenerator runs the insight script once per call.
type InsightGenerator interface {
	Generate(ctx context.Context) (*services.InsightResult, error)
}

type InsightHandler struct {
	service InsightGenerator
}

func NewInsightHandler(svc InsightGenerator) *InsightHandler {
	return &InsightHandler{service: svc}
}

// GenerateInsights godoc
// @Summary Generate insights
// @Description Run the insight script and return everything it printed. The request body is ignored.
// @Tags insights
// @Produce json
// @Success 200 {object} models.InsightResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/generate-insights [post]
func (h *InsightHandler) GenerateInsights(c *fiber.Ctx) error {
	result, err := h.service.Generate(c.UserContext())
	if errors.Is(err, services.ErrLockUnavailable) {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   models.ErrLockFailed,
			Details: err.Error(),
		})
	}
	if err != nil {
		return err
	}

	status, body := insightResponse(result)
	return c.Status(status).JSON(body)
}

// insightResponse maps a finished run to the status code and body sent to the client.
// Stdout only reaches the client on success.
func insightResponse(result *services.InsightResult) (int, interface{}) {
	run := result.Run
	switch run.Outcome {
	case models.OutcomeLaunchFailed:
		return fiber.StatusInternalServerError, models.ErrorResponse{
			Error:   models.ErrStartFailed,
			Details: run.ErrorMessage(),
		}
	case models.OutcomeInterrupted:
		return fiber.StatusInternalServerError, models.ErrorResponse{
			Error:   models.ErrInterrupted,
			Details: run.ErrorMessage(),
		}
	case models.OutcomeExitedNonZero:
		details := run.Stderr
		if details == "" {
			details = models.NoErrorDetails
		}
		return fiber.StatusInternalServerError, models.ErrorResponse{
			Error:   models.ErrGenerateFailed,
			Details: details,
		}
	}

	if !result.ArtifactFound {
		return fiber.StatusInternalServerError, models.ErrorResponse{
			Error:   models.ErrOutputMissing,
			Details: models.OutputMissingCause,
		}
	}
	return fiber.StatusOK, models.InsightResponse{
		Success: true,
		Output:  run.Stdout,
	}
}
