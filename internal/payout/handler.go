package payout

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/middleware"
	"github.com/paywave/paywave/internal/money"
	"github.com/paywave/paywave/internal/response"
)

// Handler exposes disbursement and withdrawal endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a payout HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Disburse handles POST /wallet/transfer.
func (h *Handler) Disburse(c *fiber.Ctx) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	var req disburseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	amount, err := money.ToKobo(req.Amount)
	if err != nil {
		return apperr.Validation("invalid amount", map[string]string{"amount": err.Error()})
	}
	receipt, err := h.service.Disburse(c.UserContext(), uid, DisburseInput{
		BankCode: req.BankCode, AccountNumber: req.AccountNumber, Amount: amount, Narration: req.Narration, PIN: req.PIN,
	})
	return h.respond(c, receipt, err)
}

// Withdraw handles POST /wallet/withdraw.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	amount, err := money.ToKobo(req.Amount)
	if err != nil {
		return apperr.Validation("invalid amount", map[string]string{"amount": err.Error()})
	}
	receipt, err := h.service.Withdraw(c.UserContext(), uid, WithdrawInput{
		Amount: amount, Narration: req.Narration, PIN: req.PIN, OTP: req.OTP,
	})
	return h.respond(c, receipt, err)
}

func (h *Handler) respond(c *fiber.Ctx, receipt Receipt, err error) error {
	if errors.Is(err, ErrOutcomeUnknown) {
		return c.Status(http.StatusAccepted).JSON(response.Envelope{
			Status:  true,
			Message: "Transfer is being processed; you will be notified when it completes",
			Data:    receipt,
		})
	}
	if err != nil {
		return err
	}
	return response.OK(c, "Transfer initiated successfully", receipt)
}
