package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_ReturnsSingleton(t *testing.T) {
	first := InitMetrics("gigboard-test")
	second := InitMetrics("gigboard-test")
	assert.Same(t, first, second)
}

func TestMetricsMiddleware_ExposesRequestCounters(t *testing.T) {
	prom := InitMetrics("gigboard-test")

	app := fiber.New()
	prom.RegisterAt(app, "/metrics")
	app.Use(MetricsMiddleware(prom))
	app.Get("/api/services", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/services", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/api/services")
}
