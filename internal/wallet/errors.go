package wallet

import "github.com/paywave/paywave/internal/apperr"

var (
	// ErrWalletNotFound means no wallet exists for the owner. When it surfaces
	// from a balance mutation it indicates a data-integrity problem.
	ErrWalletNotFound = apperr.New(apperr.KindNotFound, "WALLET_NOT_FOUND", "wallet not found")

	// ErrInsufficientFunds occurs when a debit would take the balance below zero.
	ErrInsufficientFunds = apperr.New(apperr.KindBusinessRule, "INSUFFICIENT_BALANCE", "insufficient wallet balance")

	// ErrWalletExists is returned when an owner already has a wallet or the
	// account number is taken.
	ErrWalletExists = apperr.New(apperr.KindBusinessRule, "WALLET_EXISTS", "wallet already exists")

	// ErrInvalidAmount rejects non-positive mutation amounts.
	ErrInvalidAmount = apperr.New(apperr.KindValidation, "INVALID_AMOUNT", "amount must be positive")
)
