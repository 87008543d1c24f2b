package webhook

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// HashHeader carries the shared secret configured on the processor dashboard.
const HashHeader = "verif-hash"

// Submitter queues events for processing.
type Submitter interface {
	Submit(event Event) bool
}

// Handler receives processor callbacks.
type Handler struct {
	secretHash []byte
	queue      Submitter
	logger     *slog.Logger
}

// NewHandler constructs a webhook handler.
func NewHandler(secretHash string, queue Submitter, logger *slog.Logger) *Handler {
	return &Handler{secretHash: []byte(secretHash), queue: queue, logger: logger}
}

// Receive handles POST /webhook/flw-webhook. The callback is acknowledged as
// soon as it is queued; settlement happens on the pool.
func (h *Handler) Receive(c *fiber.Ctx) error {
	h.logger.Info("webhook state", slog.String("state", "RECEIVED"))

	got := []byte(c.Get(HashHeader))
	if len(h.secretHash) == 0 || subtle.ConstantTimeCompare(got, h.secretHash) != 1 {
		h.logger.Warn("webhook rejected: bad signature", slog.String("ip", c.IP()))
		return c.SendStatus(http.StatusUnauthorized)
	}
	h.logger.Info("webhook state", slog.String("state", "HASH_VERIFIED"))

	event, err := ParseEvent(c.Body())
	if err != nil {
		h.logger.Warn("webhook body discarded", slog.Any("error", err))
		return c.SendStatus(http.StatusOK)
	}
	if !event.Supported() {
		h.logger.Info("webhook event ignored", slog.String("kind", string(event.Kind)))
		return c.SendStatus(http.StatusOK)
	}
	if !h.queue.Submit(event) {
		h.logger.Warn("webhook queue full", slog.String("event_key", event.Key()))
		return c.SendStatus(http.StatusServiceUnavailable)
	}
	return c.SendStatus(http.StatusOK)
}
