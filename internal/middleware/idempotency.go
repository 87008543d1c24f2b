package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v2:"
	inProgressMarker     = "__in_progress__"
	idempotencyOpTimeout = 2 * time.Second
)

type storedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type"`
}

// Idempotency replays the first response recorded for an Idempotency-Key on
// unsafe methods. Keys are scoped to the caller and route so two users cannot
// collide. Only 2xx responses are recorded; a failed attempt releases the key.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := strings.TrimSpace(c.Get(idempotencyKeyHeader))
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		owner, _ := c.Locals(userIDLocal).(string)
		cacheKey := idempotencyPrefix + owner + ":" + c.Method() + ":" + c.Path() + ":" + key
		attrs := []any{slog.String("idempotency_key", key), slog.String("user_id", owner)}

		ctx, cancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err == nil && !reserved {
			var cached string
			cached, err = cache.Get(ctx, cacheKey).Result()
			cancel()
			if err == nil {
				return replay(c, cached, logger, attrs)
			}
		} else {
			cancel()
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Error("idempotency reservation failed", append(attrs, slog.Any("error", err))...)
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}

		handlerErr := c.Next()
		status := c.Response().StatusCode()
		if handlerErr != nil || status < 200 || status >= 300 {
			release(cache, cacheKey)
			return handlerErr
		}

		payload, err := json.Marshal(storedResponse{
			Status:      status,
			Body:        string(c.Response().Body()),
			ContentType: string(c.Response().Header.ContentType()),
		})
		if err == nil {
			persistCtx, persistCancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
			err = cache.Set(persistCtx, cacheKey, payload, ttl).Err()
			persistCancel()
		}
		if err != nil {
			// The operation already happened; keep the marker so a retry sees 409 instead of re-executing.
			logger.Error("persist idempotent response failed", append(attrs, slog.Any("error", err))...)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, cached string, logger *slog.Logger, attrs []any) error {
	if cached == inProgressMarker {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		logger.Warn("decode stored idempotent response failed", append(attrs, slog.Any("error", err))...)
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	c.Set("Idempotent-Replayed", "true")
	return c.Status(stored.Status).SendString(stored.Body)
}

func release(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyOpTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey)
}
