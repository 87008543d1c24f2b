package wallet

import "context"

// SeedBalance is a test helper that sets the balance of an in-memory wallet.
func SeedBalance(repo Repository, ownerID string, amount int64) {
	if mem, ok := repo.(*memoryRepository); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		w := mem.storage[ownerID]
		w.Balance = amount
		mem.storage[ownerID] = w
	}
}

// MustBalance returns the current balance of ownerID or panics. Test use only.
func MustBalance(repo Repository, ownerID string) int64 {
	w, err := repo.GetByOwner(context.Background(), ownerID)
	if err != nil {
		panic(err)
	}
	return w.Balance
}
