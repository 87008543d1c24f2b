// Package apperr defines the error taxonomy shared by every service layer.
// Handlers translate a Kind into a transport status; services only decide
// which Kind a failure belongs to.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for propagation and reporting.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindBusinessRule   Kind = "business_rule"
	KindForbidden      Kind = "forbidden"
	KindUpstream       Kind = "upstream"
	KindIntegrity      Kind = "integrity"
	KindUnknownOutcome Kind = "unknown_outcome"
	KindInternal       Kind = "internal"
)

// Error is a classified application error. Sentinels declared with New can be
// matched with errors.Is even after being wrapped by Wrap.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

// New declares a classified error, normally used for package-level sentinels.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so a wrapped copy of a sentinel still compares equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// Wrap attaches a cause to a sentinel without mutating it.
func Wrap(sentinel *Error, cause error) *Error {
	cp := *sentinel
	cp.Err = cause
	return &cp
}

// Validation builds a field-level validation error.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: message, Fields: fields}
}

// Upstream wraps a payment-rail or other dependency failure.
func Upstream(message string, cause error) *Error {
	return &Error{Kind: KindUpstream, Code: "UPSTREAM_FAILURE", Message: message, Err: cause}
}

// Integrity flags state that needs reconciliation tooling.
func Integrity(message string, cause error) *Error {
	return &Error{Kind: KindIntegrity, Code: "RECONCILIATION_REQUIRED", Message: message, Err: cause}
}

// KindOf reports the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As is a convenience around errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
