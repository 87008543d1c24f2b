package otp

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestIssueAndValidate(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	code, err := store.Issue(ctx, "Ada@Example.com", PurposeWithdrawal)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, keyTTL, mr.TTL(key("ada@example.com", PurposeWithdrawal)))

	ok, err := store.Validate(ctx, "ada@example.com", code, PurposeWithdrawal)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Validate(ctx, "ada@example.com", "000000x", PurposeWithdrawal)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateIsScopedByPurpose(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	code, err := store.Issue(ctx, "ada@example.com", PurposeWithdrawal)
	require.NoError(t, err)

	ok, err := store.Validate(ctx, "ada@example.com", code, "pin_change")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumedCodeIsRejected(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	code, err := store.Issue(ctx, "ada@example.com", PurposeWithdrawal)
	require.NoError(t, err)

	require.NoError(t, store.MarkConsumed(ctx, "ada@example.com", PurposeWithdrawal))
	ok, err := store.Validate(ctx, "ada@example.com", code, PurposeWithdrawal)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpiredCodeIsRejected(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	code, err := store.Issue(ctx, "ada@example.com", PurposeWithdrawal)
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(codeValidTo + time.Minute) }
	ok, err := store.Validate(ctx, "ada@example.com", code, PurposeWithdrawal)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkConsumedWithoutCodeIsNoop(t *testing.T) {
	store, mr := newStore(t)
	require.NoError(t, store.MarkConsumed(context.Background(), "nobody@example.com", PurposeWithdrawal))
	assert.False(t, mr.Exists(key("nobody@example.com", PurposeWithdrawal)))
}

func TestReserveIsSingleUseUnderConcurrency(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	code, err := store.Issue(ctx, "ada@example.com", PurposeWithdrawal)
	require.NoError(t, err)

	var won atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Reserve(ctx, "ada@example.com", code, PurposeWithdrawal)
			if err == nil && ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), won.Load())

	ok, err := store.Validate(ctx, "ada@example.com", code, PurposeWithdrawal)
	require.NoError(t, err)
	assert.False(t, ok, "a reserved code is not available")
}

func TestReleaseMakesCodeUsableAgain(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	code, err := store.Issue(ctx, "ada@example.com", PurposeWithdrawal)
	require.NoError(t, err)

	ok, err := store.Reserve(ctx, "ada@example.com", code, PurposeWithdrawal)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, "ada@example.com", PurposeWithdrawal))

	ok, err = store.Reserve(ctx, "ada@example.com", code, PurposeWithdrawal)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.MarkConsumed(ctx, "ada@example.com", PurposeWithdrawal))
	require.NoError(t, store.Release(ctx, "ada@example.com", PurposeWithdrawal))
	ok, err = store.Reserve(ctx, "ada@example.com", code, PurposeWithdrawal)
	require.NoError(t, err)
	assert.False(t, ok, "release must not revive a consumed code")
}

func TestMarkConsumedKeepsExpiry(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	_, err := store.Issue(ctx, "ada@example.com", PurposeWithdrawal)
	require.NoError(t, err)
	mr.FastForward(10 * time.Minute)

	require.NoError(t, store.MarkConsumed(ctx, "ada@example.com", PurposeWithdrawal))
	k := key("ada@example.com", PurposeWithdrawal)
	ttl := mr.TTL(k)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, keyTTL-10*time.Minute)

	mr.FastForward(keyTTL)
	assert.False(t, mr.Exists(k))
}
