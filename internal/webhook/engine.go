package webhook

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/flutterwave"
	"github.com/paywave/paywave/internal/identity"
	"github.com/paywave/paywave/internal/ledger"
	"github.com/paywave/paywave/internal/logging"
	"github.com/paywave/paywave/internal/notification"
	"github.com/paywave/paywave/internal/settlement"
	"github.com/paywave/paywave/internal/wallet"
)

const (
	currency      = "NGN"
	fundingSource = "Virtual account transfer"
	payoutSource  = "Wallet transfer"
)

var (
	// ErrUnknownReference means a transfer callback could not be tied to a user.
	ErrUnknownReference = apperr.New(apperr.KindNotFound, "UNKNOWN_TRANSFER_REFERENCE", "transfer reference is unknown or expired")
	// ErrUnsupportedEvent is returned for event kinds the engine does not settle.
	ErrUnsupportedEvent = apperr.New(apperr.KindValidation, "UNSUPPORTED_EVENT", "webhook event is not supported")
	// ErrUnsupportedCurrency rejects charges outside the single wallet currency.
	ErrUnsupportedCurrency = apperr.New(apperr.KindBusinessRule, "UNSUPPORTED_CURRENCY", "charge currency is not supported")
	// ErrUnattributedCharge rejects a verified charge that names no customer.
	ErrUnattributedCharge = apperr.New(apperr.KindBusinessRule, "UNATTRIBUTED_CHARGE", "verified charge carries no customer email")
)

// Verifier re-reads events from the processor.
type Verifier interface {
	VerifyTransaction(ctx context.Context, id int64) (flutterwave.VerifiedTransaction, error)
	VerifyTransfer(ctx context.Context, id int64) (flutterwave.VerifiedTransfer, error)
}

// Users resolves the wallet owner of a charge.
type Users interface {
	FindByID(ctx context.Context, id string) (identity.User, error)
	FindByEmail(ctx context.Context, email string) (identity.User, error)
}

// Wallets reads the wallet a leg lands on.
type Wallets interface {
	GetByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error)
}

// References correlates outbound transfers with their initiator.
type References interface {
	Retrieve(ctx context.Context, reference string) (string, bool, error)
	Forget(ctx context.Context, reference string) error
}

// Engine settles verified processor events.
type Engine struct {
	verifier Verifier
	users    Users
	wallets  Wallets
	refs     References
	applier  settlement.Applier
	notifier notification.Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine wires an engine.
func NewEngine(verifier Verifier, users Users, wallets Wallets, refs References, applier settlement.Applier, notifier notification.Dispatcher, logger *slog.Logger) *Engine {
	return &Engine{
		verifier: verifier,
		users:    users,
		wallets:  wallets,
		refs:     refs,
		applier:  applier,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleEvent settles event. A replay returns settlement.ErrAlreadyApplied
// without touching any balance.
func (e *Engine) HandleEvent(ctx context.Context, event Event) error {
	log := e.logger.With(slog.String("event_key", event.Key()))
	log.Info("webhook state", slog.String("state", "EVENT_DISPATCHED"), slog.String("kind", string(event.Kind)))

	if !event.Supported() {
		return ErrUnsupportedEvent
	}
	applied, err := e.applier.Applied(ctx, event.Key())
	if err != nil {
		log.Warn("applied check failed", slog.Any("error", err))
	} else if applied {
		return settlement.ErrAlreadyApplied
	}

	switch event.Kind {
	case KindChargeCompleted:
		return e.settleCharge(ctx, event, log)
	default:
		return e.settleTransfer(ctx, event, log)
	}
}

func (e *Engine) settleCharge(ctx context.Context, event Event, log *slog.Logger) error {
	charge, err := e.verifier.VerifyTransaction(ctx, event.ID)
	if err != nil {
		return err
	}
	if !charge.Successful() {
		log.Info("charge not successful, nothing to settle", slog.String("status", charge.Status))
		return nil
	}
	if !strings.EqualFold(charge.Currency, currency) {
		log.Warn("charge currency rejected", slog.String("currency", charge.Currency))
		return ErrUnsupportedCurrency
	}
	log.Info("webhook state", slog.String("state", "PROCESSOR_VERIFIED"), slog.Int64("amount", charge.Amount))

	// Only the verified record attributes funds; the callback body is unsigned.
	email := strings.TrimSpace(charge.CustomerEmail)
	if email == "" {
		logging.ReconciliationRequired(log, "verified charge has no customer email",
			slog.Int64("amount", charge.Amount), slog.String("callback_email", event.CustomerEmail))
		return ErrUnattributedCharge
	}
	owner, err := e.users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return err
	}
	w, err := e.wallets.GetByOwner(ctx, owner.ID)
	if err != nil {
		return err
	}

	entry := ledger.Transaction{
		WalletID:         w.ID,
		From:             fundingSource,
		CounterpartyName: orDefault(charge.OriginatorName, "Unknown sender"),
		CounterpartyBank: orDefault(charge.OriginatorBank, "Unknown bank"),
		AmountCredited:   charge.Amount,
		Reference:        ledger.NewReference(ledger.PurposeFunding),
		ProcessorRef:     charge.FlwRef,
		Type:             ledger.TypeFunding,
		Status:           ledger.StatusSuccessful,
		Description:      "Transfer to wallet from bank account " + charge.OriginatorAccountNumber,
	}
	results, err := e.applier.Apply(ctx, settlement.Posting{
		EventKey: eventKey(KindChargeCompleted, charge.ID),
		Legs:     []settlement.Leg{{OwnerID: owner.ID, Delta: charge.Amount, Entry: entry}},
	})
	if err != nil {
		return err
	}
	log.Info("webhook state", slog.String("state", "LEDGER_APPLIED"),
		slog.String("user_id", owner.ID), slog.String("reference", entry.Reference))

	notification.Notify(ctx, e.notifier, log, notification.NewBalanceAlert(owner.Email, notification.BalanceAlert{
		Name:        owner.FirstName,
		AlertType:   notification.AlertCredit,
		AccountName: entry.CounterpartyName,
		Description: entry.Description,
		Reference:   entry.Reference,
		Amount:      charge.Amount,
		Balance:     results[0].Balance,
		Date:        e.now().UTC(),
	}))
	log.Info("webhook state", slog.String("state", "NOTIFIED"))
	return nil
}

func (e *Engine) settleTransfer(ctx context.Context, event Event, log *slog.Logger) error {
	transfer, err := e.verifier.VerifyTransfer(ctx, event.ID)
	if err != nil {
		return err
	}
	log = log.With(slog.String("reference", transfer.Reference))
	log.Info("webhook state", slog.String("state", "PROCESSOR_VERIFIED"), slog.String("status", transfer.Status))

	ownerID, found, err := e.refs.Retrieve(ctx, transfer.Reference)
	if err != nil {
		return err
	}
	if !found {
		logging.ReconciliationRequired(log, "transfer callback has no initiator")
		return ErrUnknownReference
	}
	key := eventKey(KindTransferCompleted, transfer.ID)

	if !transfer.Successful() {
		if _, err := e.applier.Apply(ctx, settlement.Posting{EventKey: key}); err != nil {
			return err
		}
		e.forget(ctx, transfer.Reference, log)
		log.Info("transfer failed at processor, no debit", slog.String("user_id", ownerID))
		return nil
	}

	owner, err := e.users.FindByID(ctx, ownerID)
	if err != nil {
		return err
	}
	w, err := e.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		return err
	}
	entry := ledger.Transaction{
		WalletID:         w.ID,
		From:             payoutSource,
		CounterpartyName: orDefault(transfer.FullName, "Unknown recipient"),
		CounterpartyBank: orDefault(transfer.BankName, "Unknown bank"),
		AmountDebited:    transfer.Amount,
		Reference:        transfer.Reference,
		ProcessorRef:     strconv.FormatInt(transfer.ID, 10),
		Type:             ledger.TypeDisbursement,
		Status:           ledger.StatusSuccessful,
		Description:      orDefault(transfer.Narration, "Withdrawal from wallet to bank account"),
	}
	results, err := e.applier.Apply(ctx, settlement.Posting{
		EventKey: key,
		Legs:     []settlement.Leg{{OwnerID: ownerID, Delta: -transfer.Amount, Entry: entry}},
	})
	if errors.Is(err, wallet.ErrInsufficientFunds) {
		logging.ReconciliationRequired(log, "processor paid out more than the wallet holds",
			slog.String("user_id", ownerID), slog.Int64("amount", transfer.Amount))
		return err
	}
	if err != nil {
		return err
	}
	log.Info("webhook state", slog.String("state", "LEDGER_APPLIED"), slog.String("user_id", ownerID))
	e.forget(ctx, transfer.Reference, log)

	notification.Notify(ctx, e.notifier, log, notification.NewBalanceAlert(owner.Email, notification.BalanceAlert{
		Name:        owner.FirstName,
		AlertType:   notification.AlertDebit,
		AccountName: entry.CounterpartyName,
		Description: entry.Description,
		Reference:   entry.Reference,
		Amount:      transfer.Amount,
		Balance:     results[0].Balance,
		Date:        e.now().UTC(),
	}))
	log.Info("webhook state", slog.String("state", "NOTIFIED"))
	return nil
}

// forget drops a settled reference. A failure only delays expiry.
func (e *Engine) forget(ctx context.Context, reference string, log *slog.Logger) {
	if err := e.refs.Forget(ctx, reference); err != nil {
		log.Warn("reference forget failed", slog.Any("error", err))
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
