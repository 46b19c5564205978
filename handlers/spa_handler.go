package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SPAHandler answers every unmatched GET with the bundle's entry document
// so the client-side router can take over.
type SPAHandler struct {
	indexPath string
	log       *zap.SugaredLogger
}

func NewSPAHandler(indexPath string, log *zap.SugaredLogger) *SPAHandler {
	return &SPAHandler{indexPath: indexPath, log: log}
}

func (h *SPAHandler) ServeIndex(c *fiber.Ctx) error {
	h.log.Debugw("Serving index.html", "path", c.Path())
	return c.SendFile(h.indexPath)
}
