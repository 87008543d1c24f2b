// Package payments settles internal wallet-to-wallet transfers. Unlike payouts
// these never touch the processor, so success means the money has moved.
package payments

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/identity"
	"github.com/paywave/paywave/internal/ledger"
	"github.com/paywave/paywave/internal/money"
	"github.com/paywave/paywave/internal/notification"
	"github.com/paywave/paywave/internal/settlement"
	"github.com/paywave/paywave/internal/validate"
	"github.com/paywave/paywave/internal/wallet"
)

const internalBank = "PayWave"

// ErrSelfTransfer rejects transfers where sender and recipient are the same user.
var ErrSelfTransfer = apperr.New(apperr.KindBusinessRule, "SELF_TRANSFER", "you cannot transfer to yourself")

// Users resolves senders and recipients.
type Users interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
	FindByUsername(ctx context.Context, username string) (identity.User, error)
}

// Wallets reads wallets for the balance guard and ledger rows.
type Wallets interface {
	GetByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error)
}

// Service settles P2P transfers.
type Service struct {
	users    Users
	wallets  Wallets
	applier  settlement.Applier
	notifier notification.Dispatcher
	logger   *slog.Logger
}

// NewService constructs a payment service.
func NewService(users Users, wallets Wallets, applier settlement.Applier, notifier notification.Dispatcher, logger *slog.Logger) *Service {
	return &Service{users: users, wallets: wallets, applier: applier, notifier: notifier, logger: logger}
}

// TransferInput names the recipient by username. Amount is kobo.
type TransferInput struct {
	RecipientUsername string `json:"username" validate:"required,max=64"`
	Amount            int64  `json:"amount" validate:"gt=0"`
	Note              string `json:"note" validate:"max=140"`
}

// TransferResult describes a settled transfer from the sender's side.
type TransferResult struct {
	Reference   string             `json:"reference"`
	Amount      string             `json:"amount"`
	Recipient   string             `json:"recipient"`
	Balance     string             `json:"balance"`
	Transaction ledger.Transaction `json:"transaction"`
	CompletedAt time.Time          `json:"completed_at"`
}

// Transfer moves amount from senderID's wallet to the recipient's wallet as a
// single settlement with two ledger rows sharing one reference.
func (s *Service) Transfer(ctx context.Context, senderID string, in TransferInput) (TransferResult, error) {
	if err := validate.Struct(in); err != nil {
		return TransferResult{}, err
	}

	sender, err := s.users.FindByID(ctx, senderID)
	if err != nil {
		return TransferResult{}, err
	}
	recipient, err := s.users.FindByUsername(ctx, strings.TrimPrefix(strings.TrimSpace(in.RecipientUsername), "@"))
	if err != nil {
		return TransferResult{}, err
	}
	if recipient.ID == sender.ID {
		return TransferResult{}, ErrSelfTransfer
	}

	senderWallet, err := s.wallets.GetByOwner(ctx, sender.ID)
	if err != nil {
		return TransferResult{}, err
	}
	recipientWallet, err := s.wallets.GetByOwner(ctx, recipient.ID)
	if err != nil {
		return TransferResult{}, err
	}
	if senderWallet.Balance < in.Amount {
		return TransferResult{}, wallet.ErrInsufficientFunds
	}

	reference := ledger.NewReference(ledger.PurposeP2P)
	log := s.logger.With(slog.String("reference", reference), slog.String("user_id", sender.ID))

	credit := ledger.Transaction{
		WalletID:         recipientWallet.ID,
		From:             "Wallet transfer",
		CounterpartyName: sender.FullName(),
		CounterpartyBank: internalBank,
		AmountCredited:   in.Amount,
		Reference:        reference,
		Type:             ledger.TypeP2P,
		Status:           ledger.StatusSuccessful,
		Description:      describe("Funding from @"+sender.Username, in.Note),
	}
	debit := ledger.Transaction{
		WalletID:         senderWallet.ID,
		From:             "Wallet transfer",
		CounterpartyName: recipient.FullName(),
		CounterpartyBank: internalBank,
		AmountDebited:    in.Amount,
		Reference:        reference,
		Type:             ledger.TypeP2P,
		Status:           ledger.StatusSuccessful,
		Description:      describe("Withdrawal to @"+recipient.Username, in.Note),
	}

	results, err := s.applier.Apply(ctx, settlement.Posting{
		EventKey: "p2p:" + reference,
		Legs: []settlement.Leg{
			{OwnerID: recipient.ID, Delta: in.Amount, Entry: credit},
			{OwnerID: sender.ID, Delta: -in.Amount, Entry: debit},
		},
	})
	if err != nil {
		log.Warn("p2p transfer failed", slog.Any("error", err))
		return TransferResult{}, err
	}
	recipientResult, senderResult := results[0], results[1]
	log.Info("p2p transfer settled", slog.String("recipient_id", recipient.ID), slog.Int64("amount", in.Amount))

	now := time.Now().UTC()
	notification.Notify(ctx, s.notifier, s.logger, notification.NewBalanceAlert(recipient.Email, notification.BalanceAlert{
		Name: recipient.FirstName, AlertType: notification.AlertCredit, AccountName: sender.FullName(),
		Description: credit.Description, Reference: reference, Amount: in.Amount, Balance: recipientResult.Balance, Date: now,
	}))
	notification.Notify(ctx, s.notifier, s.logger, notification.NewBalanceAlert(sender.Email, notification.BalanceAlert{
		Name: sender.FirstName, AlertType: notification.AlertDebit, AccountName: recipient.FullName(),
		Description: debit.Description, Reference: reference, Amount: in.Amount, Balance: senderResult.Balance, Date: now,
	}))

	return TransferResult{
		Reference:   reference,
		Amount:      money.Format(in.Amount),
		Recipient:   recipient.Username,
		Balance:     money.Format(senderResult.Balance),
		Transaction: senderResult.Entry,
		CompletedAt: now,
	}, nil
}

func describe(base, note string) string {
	if note = strings.TrimSpace(note); note != "" {
		return base + ": " + note
	}
	return base
}
