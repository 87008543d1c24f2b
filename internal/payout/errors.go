package payout

import (
	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/flutterwave"
)

var (
	// ErrInvalidOTP covers wrong, expired and already-used codes alike.
	ErrInvalidOTP = apperr.New(apperr.KindBusinessRule, "INVALID_OTP", "invalid or expired one-time code")

	// ErrNoSettlementAccount blocks withdrawal until the user sets a payout account.
	ErrNoSettlementAccount = apperr.New(apperr.KindBusinessRule, "NO_SETTLEMENT_ACCOUNT", "no settlement account on file")

	// ErrOutcomeUnknown is surfaced when the rail timed out; the transfer may still complete.
	ErrOutcomeUnknown = flutterwave.ErrOutcomeUnknown
)
