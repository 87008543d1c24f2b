package ledger

import (
	"context"

	"github.com/paywave/paywave/internal/wallet"
)

// WalletLookup resolves the caller's wallet.
type WalletLookup interface {
	GetByOwner(ctx context.Context, ownerID string) (wallet.Wallet, error)
}

// Service is the caller-facing view of the ledger. It owns the authorization
// check the store deliberately leaves out.
type Service struct {
	store   Store
	wallets WalletLookup
}

// NewService wires a ledger service.
func NewService(store Store, wallets WalletLookup) *Service {
	return &Service{store: store, wallets: wallets}
}

// HistoryResult is a page of the caller's transactions.
type HistoryResult struct {
	Transactions []Transaction `json:"transactions"`
	Page
}

// History lists the caller's transactions, newest first.
func (s *Service) History(ctx context.Context, userID string, page, limit int) (HistoryResult, error) {
	w, err := s.wallets.GetByOwner(ctx, userID)
	if err != nil {
		return HistoryResult{}, err
	}
	page, limit = NormalizePage(page, limit)
	items, total, err := s.store.History(ctx, w.ID, page, limit)
	if err != nil {
		return HistoryResult{}, err
	}
	return HistoryResult{Transactions: items, Page: NewPage(total, page, limit)}, nil
}

// Detail returns one transaction if it belongs to the caller's wallet.
func (s *Service) Detail(ctx context.Context, userID, transactionID string) (Transaction, error) {
	w, err := s.wallets.GetByOwner(ctx, userID)
	if err != nil {
		return Transaction{}, err
	}
	tx, err := s.store.Detail(ctx, transactionID)
	if err != nil {
		return Transaction{}, err
	}
	if tx.WalletID != w.ID {
		return Transaction{}, ErrForbidden
	}
	return tx, nil
}
