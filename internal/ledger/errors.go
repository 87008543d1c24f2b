package ledger

import "github.com/paywave/paywave/internal/apperr"

var (
	// ErrDuplicateReference means the wallet already has a row for the reference.
	ErrDuplicateReference = apperr.New(apperr.KindBusinessRule, "DUPLICATE_REFERENCE", "transaction reference already recorded")

	// ErrTransactionNotFound is returned by Detail for unknown ids.
	ErrTransactionNotFound = apperr.New(apperr.KindNotFound, "TRANSACTION_NOT_FOUND", "transaction not found")

	// ErrForbidden hides another wallet's transaction from the caller.
	ErrForbidden = apperr.New(apperr.KindForbidden, "TRANSACTION_FORBIDDEN", "you are not authorized to view this transaction")
)

func invalid(fields map[string]string) error {
	e := apperr.Validation("transaction is missing required fields", fields)
	e.Code = "INVALID_TRANSACTION"
	return e
}
