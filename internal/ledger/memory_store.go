package ledger

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu    sync.RWMutex
	rows  map[string]Transaction
	byRef map[string]string
}

// NewMemoryStore returns an in-process store for tests and dev mode.
func NewMemoryStore() Store {
	return &memoryStore{rows: make(map[string]Transaction), byRef: make(map[string]string)}
}

func refKey(walletID, reference string) string { return walletID + "|" + reference }

func (s *memoryStore) Record(_ context.Context, tx Transaction) (Transaction, error) {
	tx, err := prepare(tx)
	if err != nil {
		return Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := refKey(tx.WalletID, tx.Reference)
	if _, ok := s.byRef[key]; ok {
		return Transaction{}, ErrDuplicateReference
	}
	s.rows[tx.ID] = tx
	s.byRef[key] = tx.ID
	return tx, nil
}

func (s *memoryStore) History(_ context.Context, walletID string, page, limit int) ([]Transaction, int64, error) {
	page, limit = NormalizePage(page, limit)
	s.mu.RLock()
	var all []Transaction
	for _, tx := range s.rows {
		if tx.WalletID == walletID {
			all = append(all, tx)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []Transaction{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *memoryStore) Detail(_ context.Context, id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.rows[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return tx, nil
}
