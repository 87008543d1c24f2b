package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimit caps requests per authenticated user (or client IP) within window
// using a Redis counter. It fails open when Redis is unavailable.
func RateLimit(cache *redis.Client, name string, limit int, window time.Duration, logger *slog.Logger) fiber.Handler {
	if limit <= 0 {
		limit = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject, _ := c.Locals(userIDLocal).(string)
		if subject == "" {
			subject = c.IP()
		}
		key := "rl:" + name + ":" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("rate limit counter unavailable", slog.String("key", key), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, window)
		}
		if cnt > int64(limit) {
			return fiber.NewError(http.StatusTooManyRequests, "too many requests, try again later")
		}
		return c.Next()
	}
}
