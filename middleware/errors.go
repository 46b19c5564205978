package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"insights-gateway/models"
)

// ErrorHandler is the last stop for errors returned by handlers and panics
// caught by the recover middleware. Client errors keep their status; anything
// else becomes a 500 whose details are hidden in production.
func ErrorHandler(log *zap.SugaredLogger, production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
			return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
		}

		log.Errorw("Server error", "method", c.Method(), "path", c.Path(), "error", err)

		details := err.Error()
		if production {
			details = models.GenericErrorDetail
		}
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Error:   models.ErrInternal,
			Details: details,
		})
	}
}
