package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/response"
)

// Audit logs one structured line per request. Errors are logged with the
// status the error handler will render, not the pre-handler default.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if id := GetRequestID(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if uid, _ := c.Locals(userIDLocal).(string); uid != "" {
			attrs = append(attrs, slog.String("user_id", uid))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("request completed", append(attrs, slog.Any("error", err))...)
		case err != nil:
			logger.Warn("request completed", append(attrs, slog.Any("error", err))...)
		default:
			logger.Info("request completed", attrs...)
		}
		return err
	}
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return response.StatusFor(apperr.KindOf(err))
}
