package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDHeader is both the header and the Locals key carrying the request ID.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 64

// RequestID ensures each request has an identifier that is echoed back and
// attached to logs. Oversized client IDs are replaced.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(RequestIDHeader)
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}
		c.Set(RequestIDHeader, reqID)
		c.Locals(RequestIDHeader, reqID)
		return c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID, or "".
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDHeader).(string)
	return id
}
