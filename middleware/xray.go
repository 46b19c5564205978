package middleware

import (
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// untracedPaths are probes that would only add noise to the trace map
var untracedPaths = map[string]bool{
	"/health":   true,
	"/api/test": true,
}

// XRayMiddleware wraps Fiber requests with an AWS X-Ray segment named
// after the service.
func XRayMiddleware(segmentName string, log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if untracedPaths[c.Path()] {
			return c.Next()
		}

		ctx, seg := xray.BeginSegment(c.UserContext(), segmentName)
		defer seg.Close(nil)

		// Add HTTP request metadata
		req := seg.GetHTTP().GetRequest()
		req.Method = c.Method()
		req.URL = c.OriginalURL()
		req.ClientIP = c.IP()
		req.UserAgent = c.Get(fiber.HeaderUserAgent)

		seg.AddAnnotation("route", c.Path())
		seg.AddAnnotation("method", c.Method())

		// Downstream handlers pick the segment up from the user context
		c.SetUserContext(ctx)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			log.Debugw("Traced request failed", "path", c.Path(), "error", err)
			seg.AddError(err)
			status = fiber.StatusInternalServerError
		}
		seg.GetHTTP().GetResponse().Status = status
		if status >= fiber.StatusInternalServerError {
			seg.Fault = true
		}

		return err
	}
}
