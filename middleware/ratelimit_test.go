package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(2, time.Hour, "Please wait before trying again.", zap.NewNop())

	app := fiber.New()
	app.Get("/limited", limiter.Handler(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/limited", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		rec.Code = resp.StatusCode
		body, _ := io.ReadAll(resp.Body)
		rec.Body.Write(body)
		return rec
	}

	assert.Equal(t, fiber.StatusOK, get().Code)
	assert.Equal(t, fiber.StatusOK, get().Code)

	rec := get()
	assert.Equal(t, fiber.StatusTooManyRequests, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "RATE_LIMITED", body["error"])
	assert.Equal(t, "Please wait before trying again.", body["message"])
	assert.NotEmpty(t, body["retryAfter"])
}

func TestIPRateLimiterSeparateInstances(t *testing.T) {
	// Two limiters must not share state: exhausting one leaves the other alone.
	a := NewIPRateLimiter(1, time.Hour, "a", zap.NewNop())
	b := NewIPRateLimiter(1, time.Hour, "b", zap.NewNop())

	app := fiber.New()
	app.Get("/a", a.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/b", b.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for _, path := range []string{"/a", "/b"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/a", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
