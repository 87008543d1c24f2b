// Package payout orchestrates outbound transfers to external bank accounts.
// It checks credentials, holds the amount against the balance under a fresh
// reference and submits to the rail. The debit itself happens when the
// processor confirms completion through the webhook.
package payout

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paywave/paywave/internal/flutterwave"
	"github.com/paywave/paywave/internal/identity"
	"github.com/paywave/paywave/internal/ledger"
	"github.com/paywave/paywave/internal/money"
	"github.com/paywave/paywave/internal/otp"
	"github.com/paywave/paywave/internal/validate"
	"github.com/paywave/paywave/internal/wallet"
)

// Orchestration states, logged as the "state" attribute.
const (
	stateRequested       = "REQUESTED"
	stateSubmitted       = "SUBMITTED_TO_PROCESSOR"
	stateReferenceStored = "REFERENCE_STORED"
	stateFailed          = "FAILED"
)

// Users verifies transaction PINs.
type Users interface {
	VerifyPIN(ctx context.Context, userID, pin string) (identity.User, error)
}

// Wallets reads the balance used by the pre-submission guard.
type Wallets interface {
	GetByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error)
}

// Codes reserves and burns one-time confirmation codes. A reserved code
// cannot be reserved again until it is released.
type Codes interface {
	Reserve(ctx context.Context, subject, code, purpose string) (bool, error)
	Release(ctx context.Context, subject, purpose string) error
	MarkConsumed(ctx context.Context, subject, purpose string) error
}

// References remembers which user started a transfer and how much of their
// balance it holds until the completion callback settles it.
type References interface {
	Hold(ctx context.Context, reference, ownerID string, amount, balance int64) (bool, error)
	Forget(ctx context.Context, reference string) error
}

// Service is the transfer orchestrator.
type Service struct {
	users   Users
	wallets Wallets
	codes   Codes
	refs    References
	rail    Rail
	logger  *slog.Logger
}

// NewService wires the orchestrator.
func NewService(users Users, wallets Wallets, codes Codes, refs References, rail Rail, logger *slog.Logger) *Service {
	return &Service{users: users, wallets: wallets, codes: codes, refs: refs, rail: rail, logger: logger}
}

// Disburse sends money from the caller's wallet to any bank account.
func (s *Service) Disburse(ctx context.Context, userID string, in DisburseInput) (Receipt, error) {
	if err := validate.Struct(in); err != nil {
		return Receipt{}, err
	}
	if _, err := s.users.VerifyPIN(ctx, userID, in.PIN); err != nil {
		return Receipt{}, err
	}
	return s.submit(ctx, userID, ledger.PurposeDisburse, flutterwave.TransferRequest{
		BankCode:      in.BankCode,
		AccountNumber: in.AccountNumber,
		Amount:        in.Amount,
		Narration:     in.Narration,
	})
}

// Withdraw sends money to the caller's own settlement account. It needs a
// withdrawal code, reserved for the duration of the rail call and burned once
// the rail accepts the transfer or its outcome is unknown.
func (s *Service) Withdraw(ctx context.Context, userID string, in WithdrawInput) (Receipt, error) {
	if err := validate.Struct(in); err != nil {
		return Receipt{}, err
	}
	user, err := s.users.VerifyPIN(ctx, userID, in.PIN)
	if err != nil {
		return Receipt{}, err
	}
	if !user.HasSettlementAccount() {
		return Receipt{}, ErrNoSettlementAccount
	}
	ok, err := s.codes.Reserve(ctx, user.Email, in.OTP, otp.PurposeWithdrawal)
	if err != nil {
		return Receipt{}, err
	}
	if !ok {
		return Receipt{}, ErrInvalidOTP
	}
	log := s.logger.With(slog.String("user_id", userID))

	narration := in.Narration
	if narration == "" {
		narration = "Withdrawal to " + user.SettlementBankName
	}
	receipt, err := s.submit(ctx, userID, ledger.PurposeWithdraw, flutterwave.TransferRequest{
		BankCode:      user.SettlementBankCode,
		AccountNumber: user.SettlementAccountNumber,
		Amount:        in.Amount,
		Narration:     narration,
	})
	if err != nil && !errors.Is(err, ErrOutcomeUnknown) {
		if rerr := s.codes.Release(context.WithoutCancel(ctx), user.Email, otp.PurposeWithdrawal); rerr != nil {
			log.Warn("release withdrawal code", slog.Any("error", rerr))
		}
		return Receipt{}, err
	}
	if cerr := s.codes.MarkConsumed(context.WithoutCancel(ctx), user.Email, otp.PurposeWithdrawal); cerr != nil {
		log.Warn("consume withdrawal code", slog.Any("error", cerr))
	}
	return receipt, err
}

// submit runs the shared tail of both flows: balance hold, rail call and
// reference bookkeeping. The reference is stored with its hold before the rail
// sees it, so a completion callback can always be matched and concurrent
// payouts cannot spend the same balance twice. On ErrOutcomeUnknown the
// receipt is still returned so the caller can track the reference.
func (s *Service) submit(ctx context.Context, userID, purpose string, req flutterwave.TransferRequest) (Receipt, error) {
	w, err := s.wallets.GetByOwner(ctx, userID)
	if err != nil {
		return Receipt{}, err
	}
	if w.Balance < req.Amount {
		return Receipt{}, wallet.ErrInsufficientFunds
	}

	req.Reference = ledger.NewReference(purpose)
	log := s.logger.With(slog.String("user_id", userID), slog.String("reference", req.Reference))
	log.Info("transfer requested", slog.String("state", stateRequested), slog.Int64("amount", req.Amount))

	held, err := s.refs.Hold(ctx, req.Reference, userID, req.Amount, w.Balance)
	if err != nil {
		return Receipt{}, err
	}
	if !held {
		log.Info("transfer refused, balance held by pending transfers", slog.String("state", stateFailed))
		return Receipt{}, wallet.ErrInsufficientFunds
	}
	log.Info("transfer reference stored", slog.String("state", stateReferenceStored))

	receipt := Receipt{
		Reference:     req.Reference,
		Amount:        money.Format(req.Amount),
		AccountNumber: req.AccountNumber,
		BankCode:      req.BankCode,
	}

	ack, err := s.rail.SubmitTransfer(ctx, req)
	switch {
	case errors.Is(err, ErrOutcomeUnknown):
		// The processor may have accepted it; the hold stays until a callback
		// settles the reference or it expires.
		log.Warn("transfer outcome unknown", slog.String("state", stateSubmitted))
		receipt.Status = "PENDING"
		return receipt, err
	case err != nil:
		log.Warn("transfer rejected", slog.String("state", stateFailed), slog.Any("error", err))
		if ferr := s.refs.Forget(context.WithoutCancel(ctx), req.Reference); ferr != nil {
			log.Warn("release transfer hold", slog.Any("error", ferr))
		}
		return Receipt{}, err
	}
	log.Info("transfer submitted", slog.String("state", stateSubmitted), slog.Int64("processor_id", ack.ID))

	receipt.ProcessorID = ack.ID
	receipt.Status = ack.Status
	return receipt, nil
}
