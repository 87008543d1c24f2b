package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

// RegisterHealthRoutes adds the readiness endpoint. Without a database the
// service runs on in-memory stores, reported as "memory".
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "memory"
		redisStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if d.DB != nil {
			dbStatus = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if err := d.Cache.Ping(ctx).Err(); err != nil {
			redisStatus = err.Error()
		}

		status := http.StatusOK
		if (dbStatus != "ok" && dbStatus != "memory") || redisStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
