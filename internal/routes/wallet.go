package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paywave/paywave/internal/ledger"
	"github.com/paywave/paywave/internal/otp"
	"github.com/paywave/paywave/internal/payout"
	"github.com/paywave/paywave/internal/wallet"
	"github.com/paywave/paywave/internal/webhook"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet/info", h.Info)
	r.Post("/wallet/virtual-account", h.Provision)
}

// RegisterPayoutRoutes wires outbound bank transfers.
func RegisterPayoutRoutes(r fiber.Router, h *payout.Handler, limit fiber.Handler) {
	r.Post("/wallet/transfer", limit, h.Disburse)
	r.Post("/wallet/withdraw", limit, h.Withdraw)
}

// RegisterAccountRoutes wires account confirmation endpoints.
func RegisterAccountRoutes(r fiber.Router, h *otp.Handler, limit fiber.Handler) {
	r.Post("/account/otp", limit, h.Request)
}

// RegisterTransactionRoutes wires ledger history.
func RegisterTransactionRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/transaction/all-transactions", h.History)
	r.Get("/transaction/view/:transactionId", h.Detail)
}

// RegisterWebhookRoutes wires processor callbacks.
func RegisterWebhookRoutes(r fiber.Router, h *webhook.Handler) {
	r.Post("/webhook/flw-webhook", h.Receive)
}
