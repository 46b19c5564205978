package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestXRayMiddlewareOpensSegment(t *testing.T) {
	var traced, untraced *xray.Segment

	app := fiber.New()
	app.Use(XRayMiddleware("insights-gateway", zap.NewNop().Sugar()))
	app.Post("/api/generate-insights", func(c *fiber.Ctx) error {
		traced = xray.GetSegment(c.UserContext())
		return c.SendStatus(fiber.StatusAccepted)
	})
	app.Get("/api/test", func(c *fiber.Ctx) error {
		untraced = xray.GetSegment(c.UserContext())
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/api/generate-insights", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	require.NotNil(t, traced)
	require.Equal(t, "insights-gateway", traced.Name)
	require.Equal(t, fiber.MethodPost, traced.GetHTTP().GetRequest().Method)
	require.Equal(t, fiber.StatusAccepted, traced.GetHTTP().GetResponse().Status)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/test", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Nil(t, untraced)
}
