package wallet

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWallet(t *testing.T, repo Repository, balance int64) string {
	t.Helper()
	owner := uuid.NewString()
	require.NoError(t, repo.Create(context.Background(), Wallet{
		ID: uuid.NewString(), OwnerID: owner, AccountNumber: owner[:10], Balance: balance, Status: StatusActive,
	}))
	return owner
}

func TestIncrementDecrement(t *testing.T) {
	repo := NewMemoryRepository()
	owner := seedWallet(t, repo, 100)
	ctx := context.Background()

	bal, err := repo.Increment(ctx, owner, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(150), bal)

	bal, err = repo.Decrement(ctx, owner, 150)
	require.NoError(t, err)
	assert.Zero(t, bal)
}

func TestDecrementRefusesNegative(t *testing.T) {
	repo := NewMemoryRepository()
	owner := seedWallet(t, repo, 100)

	_, err := repo.Decrement(context.Background(), owner, 101)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(100), MustBalance(repo, owner))
}

func TestMutationsOnUnknownOwner(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.Increment(context.Background(), uuid.NewString(), 1)
	require.ErrorIs(t, err, ErrWalletNotFound)
	_, err = repo.Decrement(context.Background(), uuid.NewString(), 1)
	require.ErrorIs(t, err, ErrWalletNotFound)
}

func TestMutationsRejectNonPositiveAmounts(t *testing.T) {
	repo := NewMemoryRepository()
	owner := seedWallet(t, repo, 100)
	_, err := repo.Increment(context.Background(), owner, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = repo.Decrement(context.Background(), owner, -5)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	repo := NewMemoryRepository()
	owner := seedWallet(t, repo, 1_000)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Decrement(context.Background(), owner, 100); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Zero(t, MustBalance(repo, owner))
}

func TestCreateRejectsSecondWallet(t *testing.T) {
	repo := NewMemoryRepository()
	owner := seedWallet(t, repo, 0)
	err := repo.Create(context.Background(), Wallet{ID: uuid.NewString(), OwnerID: owner, AccountNumber: "9999999999"})
	require.ErrorIs(t, err, ErrWalletExists)
}
