// Package response renders the JSON envelopes shared by every HTTP handler and
// maps classified errors to status codes.
package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/paywave/paywave/internal/apperr"
)

// Envelope is the success/failure body returned by every endpoint.
type Envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// OK writes a 200 success envelope.
func OK(c *fiber.Ctx, message string, data any) error {
	return c.Status(http.StatusOK).JSON(Envelope{Status: true, Message: message, Data: data})
}

// Created writes a 201 success envelope.
func Created(c *fiber.Ctx, message string, data any) error {
	return c.Status(http.StatusCreated).JSON(Envelope{Status: true, Message: message, Data: data})
}

// StatusFor maps an error Kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUpstream:
		return http.StatusBadGateway
	case apperr.KindUnknownOutcome:
		return http.StatusAccepted
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler returns a fiber.ErrorHandler that renders classified errors.
// Upstream and integrity failures get generic messages; the detail is logged.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(Envelope{Status: false, Message: fe.Message})
		}

		reqID, _ := c.Locals("X-Request-ID").(string)
		e, ok := apperr.As(err)
		if !ok {
			logger.Error("unhandled error", slog.String("request_id", reqID),
				slog.String("path", c.Path()), slog.String("error", err.Error()))
			return c.Status(http.StatusInternalServerError).JSON(Envelope{Status: false, Message: "internal server error"})
		}

		status := StatusFor(e.Kind)
		message := e.Message
		switch e.Kind {
		case apperr.KindUpstream:
			logger.Error("upstream failure", slog.String("request_id", reqID),
				slog.String("path", c.Path()), slog.String("error", err.Error()))
			message = "payment processor is unavailable, please try again later"
		case apperr.KindIntegrity, apperr.KindInternal:
			logger.Error("internal failure", slog.String("request_id", reqID),
				slog.String("path", c.Path()), slog.String("error", err.Error()))
			message = "an unexpected error occurred"
		}
		return c.Status(status).JSON(Envelope{Status: false, Message: message, Errors: e.Fields})
	}
}
