package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paywave/paywave/internal/payments"
)

// RegisterPaymentRoutes wires payment endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, limit fiber.Handler) {
	r.Post("/wallet/p2p", limit, h.P2P)
}
