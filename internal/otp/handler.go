package otp

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paywave/paywave/internal/middleware"
	"github.com/paywave/paywave/internal/response"
)

// Handler exposes code issuance.
type Handler struct {
	service *Service
}

// NewHandler constructs an OTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Request handles POST /account/otp.
func (h *Handler) Request(c *fiber.Ctx) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	if err := h.service.RequestWithdrawalCode(c.UserContext(), uid); err != nil {
		return err
	}
	return response.OK(c, "A one-time code has been sent to your email", nil)
}
