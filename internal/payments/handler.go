package payments

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/middleware"
	"github.com/paywave/paywave/internal/money"
	"github.com/paywave/paywave/internal/response"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Username string          `json:"username"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
}

// P2P handles POST /wallet/p2p.
func (h *Handler) P2P(c *fiber.Ctx) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	amount, err := money.ToKobo(req.Amount)
	if err != nil {
		return apperr.Validation("invalid amount", map[string]string{"amount": err.Error()})
	}

	res, err := h.service.Transfer(c.UserContext(), uid, TransferInput{
		RecipientUsername: req.Username,
		Amount:            amount,
		Note:              req.Note,
	})
	if err != nil {
		return err
	}
	return response.OK(c, "Transfer successful", res)
}
