package wallet

import (
	"context"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.Mutex
	storage map[string]Wallet
}

// NewMemoryRepository constructs an in-memory repository for tests and dev mode.
// Each mutation holds the lock for its whole read-modify-write.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Wallet)}
}

func (r *memoryRepository) Create(_ context.Context, wallet Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.storage {
		if existing.OwnerID == wallet.OwnerID || existing.AccountNumber == wallet.AccountNumber {
			return ErrWalletExists
		}
	}
	r.storage[wallet.OwnerID] = wallet
	return nil
}

func (r *memoryRepository) GetByOwner(_ context.Context, ownerID string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[ownerID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return wallet, nil
}

func (r *memoryRepository) GetByAccountNumber(_ context.Context, accountNumber string) (Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.storage {
		if w.AccountNumber == accountNumber {
			return w, nil
		}
	}
	return Wallet{}, ErrWalletNotFound
}

func (r *memoryRepository) Increment(_ context.Context, ownerID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[ownerID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	wallet.Balance += amount
	wallet.UpdatedAt = time.Now().UTC()
	r.storage[ownerID] = wallet
	return wallet.Balance, nil
}

func (r *memoryRepository) Decrement(_ context.Context, ownerID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet, ok := r.storage[ownerID]
	if !ok {
		return 0, ErrWalletNotFound
	}
	if wallet.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	wallet.Balance -= amount
	wallet.UpdatedAt = time.Now().UTC()
	r.storage[ownerID] = wallet
	return wallet.Balance, nil
}
