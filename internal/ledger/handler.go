package ledger

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paywave/paywave/internal/middleware"
	"github.com/paywave/paywave/internal/response"
)

// Handler serves transaction history endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// History handles GET /transaction/all-transactions?page=&limit=.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	result, err := h.service.History(c.UserContext(), uid, c.QueryInt("page", DefaultPage), c.QueryInt("limit", DefaultLimit))
	if err != nil {
		return err
	}
	return response.OK(c, "Transactions retrieved successfully", result)
}

// Detail handles GET /transaction/view/:transactionId.
func (h *Handler) Detail(c *fiber.Ctx) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	tx, err := h.service.Detail(c.UserContext(), uid, c.Params("transactionId"))
	if err != nil {
		return err
	}
	return response.OK(c, "Transaction retrieved successfully", tx)
}
