package wallet

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/paywave/paywave/internal/middleware"
	"github.com/paywave/paywave/internal/money"
	"github.com/paywave/paywave/internal/response"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	Balance       string    `json:"balance"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func toResponse(w Wallet) walletResponse {
	return walletResponse{
		AccountNumber: w.AccountNumber,
		BankName:      w.BankName,
		Balance:       money.Format(w.Balance),
		Status:        w.Status,
		CreatedAt:     w.CreatedAt,
	}
}

// Info returns the caller's wallet snapshot.
func (h *Handler) Info(c *fiber.Ctx) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	w, err := h.service.Info(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return response.OK(c, "Wallet information retrieved successfully", toResponse(w))
}

// Provision creates the caller's virtual account and wallet.
func (h *Handler) Provision(c *fiber.Ctx) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	var req ProvisionInput
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	w, err := h.service.Provision(c.UserContext(), uid, req)
	if err != nil {
		return err
	}
	return response.Created(c, "Virtual account created", toResponse(w))
}
