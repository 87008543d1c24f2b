// Package refcache maps outbound transfer references to the user who started
// them, bridging the gap until the processor's completion callback arrives.
// It also tracks the amount each open reference holds against its owner's
// balance so concurrent payouts cannot oversubscribe a wallet.
package refcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "transfer_ref:"
	pendingPrefix = "pending_out:"
	// TTL bounds how long a completion callback can still be correlated.
	TTL = 24 * time.Hour

	holdAttempts = 3
)

// ErrContended is returned when a hold kept losing the race on the owner's
// pending set.
var ErrContended = errors.New("refcache: pending transfers changed concurrently")

// Cache is a Redis-backed reference cache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a cache with the standard 24h expiry.
func New(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: TTL}
}

func key(reference string) string { return keyPrefix + reference }

func pendingKey(ownerID string) string { return pendingPrefix + ownerID }

// Hold records that reference belongs to ownerID and reserves amount against
// balance. It reports false, storing nothing, when balance minus the amounts
// already held by the owner's open references cannot cover amount.
func (c *Cache) Hold(ctx context.Context, reference, ownerID string, amount, balance int64) (bool, error) {
	pk := pendingKey(ownerID)
	for i := 0; i < holdAttempts; i++ {
		var held bool
		err := c.client.Watch(ctx, func(tx *redis.Tx) error {
			open, err := tx.HGetAll(ctx, pk).Result()
			if err != nil {
				return err
			}
			var total int64
			var stale []string
			for ref, v := range open {
				n, err := tx.Exists(ctx, key(ref)).Result()
				if err != nil {
					return err
				}
				if n == 0 {
					stale = append(stale, ref)
					continue
				}
				amt, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return fmt.Errorf("pending amount for %s: %w", ref, err)
				}
				total += amt
			}
			if balance-total < amount {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				if len(stale) > 0 {
					p.HDel(ctx, pk, stale...)
				}
				p.HSet(ctx, pk, reference, amount)
				p.Expire(ctx, pk, c.ttl)
				p.Set(ctx, key(reference), ownerID, c.ttl)
				return nil
			})
			if err == nil {
				held = true
			}
			return err
		}, pk)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("hold transfer reference %s: %w", reference, err)
		}
		return held, nil
	}
	return false, fmt.Errorf("hold transfer reference %s: %w", reference, ErrContended)
}

// Retrieve returns the owner of reference. An unknown or expired reference is
// reported through found, not as an error.
func (c *Cache) Retrieve(ctx context.Context, reference string) (string, bool, error) {
	owner, err := c.client.Get(ctx, key(reference)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("retrieve transfer reference %s: %w", reference, err)
	}
	return owner, true, nil
}

// Pending returns the total amount held by ownerID's open references.
func (c *Cache) Pending(ctx context.Context, ownerID string) (int64, error) {
	open, err := c.client.HGetAll(ctx, pendingKey(ownerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("pending transfers for %s: %w", ownerID, err)
	}
	var total int64
	for ref, v := range open {
		n, err := c.client.Exists(ctx, key(ref)).Result()
		if err != nil {
			return 0, fmt.Errorf("pending transfers for %s: %w", ownerID, err)
		}
		if n == 0 {
			continue
		}
		amt, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("pending amount for %s: %w", ref, err)
		}
		total += amt
	}
	return total, nil
}

// Forget drops reference and releases its hold once the transfer has settled
// or failed. Forgetting an unknown reference is a no-op.
func (c *Cache) Forget(ctx context.Context, reference string) error {
	owner, err := c.client.Get(ctx, key(reference)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("forget transfer reference %s: %w", reference, err)
	}
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key(reference))
		p.HDel(ctx, pendingKey(owner), reference)
		return nil
	})
	if err != nil {
		return fmt.Errorf("forget transfer reference %s: %w", reference, err)
	}
	return nil
}
