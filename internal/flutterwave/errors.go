package flutterwave

import (
	"fmt"

	"github.com/paywave/paywave/internal/apperr"
)

// ErrOutcomeUnknown means the request may or may not have reached the
// processor. Callers must not retry blindly.
var ErrOutcomeUnknown = apperr.New(apperr.KindUnknownOutcome, "OUTCOME_UNKNOWN",
	"payment processor did not respond in time; the transfer may still complete")

// APIError is a non-success response from the processor.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flutterwave: http %d: %s: %s", e.StatusCode, e.Status, e.Message)
}
