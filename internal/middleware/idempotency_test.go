package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywave/paywave/internal/logging"
)

func setupIdempotentApp(t *testing.T, status int) (*fiber.App, *int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	var calls int32
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(userIDLocal, c.Get("X-Test-User"))
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/wallet/p2p", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(&calls, 1)
		return c.Status(status).JSON(fiber.Map{"call": n})
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, user, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/wallet/p2p", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set("X-Test-User", user)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, calls := setupIdempotentApp(t, fiber.StatusOK)
	status, _ := post(t, app, "u1", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestIdempotencyReplaysSuccessfulResponse(t *testing.T) {
	app, calls := setupIdempotentApp(t, fiber.StatusOK)

	status1, body1 := post(t, app, "u1", "abc123")
	status2, body2 := post(t, app, "u1", "abc123")

	assert.Equal(t, fiber.StatusOK, status1)
	assert.Equal(t, status1, status2)
	assert.Equal(t, body1, body2)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	app, calls := setupIdempotentApp(t, fiber.StatusOK)

	post(t, app, "u1", "same")
	post(t, app, "u2", "same")

	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	app, calls := setupIdempotentApp(t, fiber.StatusUnprocessableEntity)

	post(t, app, "u1", "retry-me")
	post(t, app, "u1", "retry-me")

	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}
