// Package otp issues and checks one-time confirmation codes used to authorize
// sensitive wallet actions such as withdrawals.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Purposes scope codes so one issued for a withdrawal cannot authorize anything else.
const (
	PurposeWithdrawal = "withdrawal"
)

const (
	codeDigits  = 6
	keyTTL      = time.Hour
	codeValidTo = 15 * time.Minute

	fieldCode      = "code"
	fieldConsumed  = "consumed"
	fieldExpiresAt = "expires_at"

	// Values of fieldConsumed. A reserved code is held by one in-flight action.
	stateUnused   = "0"
	stateReserved = "reserved"
	stateConsumed = "1"
)

// Store keeps codes in a Redis hash at {purpose}:{sha256(subject)}.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

// NewStore builds a Redis-backed code store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

func key(subject, purpose string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(subject))))
	return purpose + ":" + hex.EncodeToString(sum[:])
}

// Issue generates a fresh code for subject and purpose, replacing any earlier one.
func (s *Store) Issue(ctx context.Context, subject, purpose string) (string, error) {
	code, err := generate(codeDigits)
	if err != nil {
		return "", err
	}
	k := key(subject, purpose)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k,
			fieldCode, code,
			fieldConsumed, stateUnused,
			fieldExpiresAt, strconv.FormatInt(s.now().Add(codeValidTo).Unix(), 10))
		p.Expire(ctx, k, keyTTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store one-time code: %w", err)
	}
	return code, nil
}

// Validate reports whether code is the live, unused code for subject and
// purpose. It does not reserve or consume the code.
func (s *Store) Validate(ctx context.Context, subject, code, purpose string) (bool, error) {
	rec, err := s.client.HGetAll(ctx, key(subject, purpose)).Result()
	if err != nil {
		return false, fmt.Errorf("load one-time code: %w", err)
	}
	return s.live(rec, code), nil
}

// Reserve atomically claims a live code for one action. While reserved, the
// same code is rejected for every other caller until Release or MarkConsumed.
func (s *Store) Reserve(ctx context.Context, subject, code, purpose string) (bool, error) {
	ok, err := s.transition(ctx, key(subject, purpose), stateReserved, func(rec map[string]string) bool {
		return s.live(rec, code)
	})
	if err != nil {
		return false, fmt.Errorf("reserve one-time code: %w", err)
	}
	return ok, nil
}

// Release returns a reserved code to the unused state.
func (s *Store) Release(ctx context.Context, subject, purpose string) error {
	_, err := s.transition(ctx, key(subject, purpose), stateUnused, func(rec map[string]string) bool {
		return rec[fieldConsumed] == stateReserved
	})
	if err != nil {
		return fmt.Errorf("release one-time code: %w", err)
	}
	return nil
}

// MarkConsumed burns the code for subject and purpose. A missing code is a no-op.
func (s *Store) MarkConsumed(ctx context.Context, subject, purpose string) error {
	_, err := s.transition(ctx, key(subject, purpose), stateConsumed, func(rec map[string]string) bool {
		return rec[fieldCode] != ""
	})
	if err != nil {
		return fmt.Errorf("consume one-time code: %w", err)
	}
	return nil
}

func (s *Store) live(rec map[string]string, code string) bool {
	stored, ok := rec[fieldCode]
	if !ok || rec[fieldConsumed] != stateUnused {
		return false
	}
	expiresAt, err := strconv.ParseInt(rec[fieldExpiresAt], 10, 64)
	if err != nil || s.now().Unix() > expiresAt {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1
}

// transition sets fieldConsumed to state when allow accepts the current hash.
// The read and write run under WATCH, and the key keeps its remaining TTL, so a
// concurrent change or an expiry in between never leaves a code without expiry.
// Losing a race reports false.
func (s *Store) transition(ctx context.Context, k, state string, allow func(map[string]string) bool) (bool, error) {
	applied := false
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := tx.HGetAll(ctx, k).Result()
		if err != nil {
			return err
		}
		if len(rec) == 0 || !allow(rec) {
			return nil
		}
		ttl, err := tx.PTTL(ctx, k).Result()
		if err != nil {
			return err
		}
		if ttl <= 0 {
			ttl = keyTTL
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, fieldConsumed, state)
			p.PExpire(ctx, k, ttl)
			return nil
		})
		if err == nil {
			applied = true
		}
		return err
	}, k)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return applied, err
}

func generate(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate one-time code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
