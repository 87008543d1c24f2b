package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/ledger"
	"github.com/paywave/paywave/internal/logging"
	"github.com/paywave/paywave/internal/wallet"
)

// staleClaim is how long a claim may sit before balances are applied before the
// sweeper flags it.
const staleClaim = 5 * time.Minute

// Coordinator settles postings against stores that cannot share a transaction.
// It journals the posting first, applies the balance legs concurrently,
// compensates if any leg fails, then writes the ledger rows. A ledger failure
// after the balances moved leaves the journal entry pending for Sweep.
type Coordinator struct {
	wallets wallet.Repository
	ledger  ledger.Store
	journal Journal
	logger  *slog.Logger
	now     func() time.Time
}

// NewCoordinator wires a coordinator.
func NewCoordinator(wallets wallet.Repository, store ledger.Store, journal Journal, logger *slog.Logger) *Coordinator {
	return &Coordinator{wallets: wallets, ledger: store, journal: journal, logger: logger, now: time.Now}
}

// Apply settles posting.
func (c *Coordinator) Apply(ctx context.Context, posting Posting) ([]Result, error) {
	if err := posting.validate(); err != nil {
		return nil, err
	}
	if err := c.journal.Claim(ctx, posting); err != nil {
		return nil, err
	}
	log := c.logger.With(slog.String("event_key", posting.EventKey))

	results, err := c.applyBalances(ctx, posting, log)
	if err != nil {
		return nil, err
	}
	if err := c.journal.Advance(ctx, posting.EventKey, StageBalancesApplied, results); err != nil {
		log.Warn("journal advance failed", slog.Any("error", err))
	}

	if err := c.writeEntries(ctx, posting, results); err != nil {
		logging.ReconciliationRequired(log, "ledger write failed after balance mutation", slog.Any("error", err))
		return nil, apperr.Integrity("settlement recorded balances but not ledger rows", err)
	}
	if err := c.journal.Advance(ctx, posting.EventKey, StageCompleted, results); err != nil {
		log.Warn("journal completion failed", slog.Any("error", err))
	}
	return results, nil
}

// Applied reports whether eventKey has been claimed.
func (c *Coordinator) Applied(ctx context.Context, eventKey string) (bool, error) {
	return c.journal.Exists(ctx, eventKey)
}

// applyBalances issues every leg concurrently and waits for all of them. If any
// leg fails the successful ones are reversed and the claim released.
func (c *Coordinator) applyBalances(ctx context.Context, posting Posting, log *slog.Logger) ([]Result, error) {
	results := make([]Result, len(posting.Legs))
	applied := make([]bool, len(posting.Legs))
	var mu sync.Mutex

	// Legs must not be cancelled by a sibling's failure, so the group gets the
	// parent context rather than the derived one.
	var g errgroup.Group
	for i, leg := range posting.Legs {
		i, leg := i, leg
		g.Go(func() error {
			balance, err := c.move(ctx, leg.OwnerID, leg.Delta)
			if err != nil {
				return err
			}
			mu.Lock()
			results[i] = Result{Entry: leg.Entry, Balance: balance}
			applied[i] = true
			mu.Unlock()
			return nil
		})
	}
	legErr := g.Wait()
	if legErr == nil {
		return results, nil
	}

	compensated := true
	for i, ok := range applied {
		if !ok {
			continue
		}
		leg := posting.Legs[i]
		if _, err := c.move(context.WithoutCancel(ctx), leg.OwnerID, -leg.Delta); err != nil {
			compensated = false
			logging.ReconciliationRequired(log, "compensation failed",
				slog.String("user_id", leg.OwnerID), slog.Int64("delta", leg.Delta), slog.Any("error", err))
		}
	}
	if compensated {
		if err := c.journal.Release(ctx, posting.EventKey); err != nil {
			log.Warn("journal release failed", slog.Any("error", err))
		}
	}
	return nil, legErr
}

func (c *Coordinator) move(ctx context.Context, ownerID string, delta int64) (int64, error) {
	if delta > 0 {
		return c.wallets.Increment(ctx, ownerID, delta)
	}
	return c.wallets.Decrement(ctx, ownerID, -delta)
}

func (c *Coordinator) writeEntries(ctx context.Context, posting Posting, results []Result) error {
	var errs []error
	for i, leg := range posting.Legs {
		entry, err := c.ledger.Record(ctx, leg.Entry)
		switch {
		case err == nil:
			results[i].Entry = entry
		case errors.Is(err, ledger.ErrDuplicateReference):
		default:
			errs = append(errs, fmt.Errorf("leg %d (%s): %w", i, leg.Entry.Reference, err))
		}
	}
	return errors.Join(errs...)
}

// Sweep retries the ledger writes of postings whose balances moved but whose
// rows were not all recorded. It returns the number of entries completed.
func (c *Coordinator) Sweep(ctx context.Context) (int, error) {
	pending, err := c.journal.Pending(ctx)
	if err != nil {
		return 0, err
	}
	completed := 0
	for _, entry := range pending {
		key := entry.Posting.EventKey
		log := c.logger.With(slog.String("event_key", key))
		switch entry.Stage {
		case StageBalancesApplied:
			results := entry.Results
			if len(results) != len(entry.Posting.Legs) {
				results = make([]Result, len(entry.Posting.Legs))
			}
			if err := c.writeEntries(ctx, entry.Posting, results); err != nil {
				logging.ReconciliationRequired(log, "sweep could not record ledger rows", slog.Any("error", err))
				continue
			}
			if err := c.journal.Advance(ctx, key, StageCompleted, results); err != nil {
				log.Warn("journal completion failed", slog.Any("error", err))
				continue
			}
			log.Info("pending settlement completed by sweep")
			completed++
		case StageClaimed:
			if c.now().Sub(entry.ClaimedAt) > staleClaim {
				logging.ReconciliationRequired(log, "settlement claimed but never applied", slog.Time("claimed_at", entry.ClaimedAt))
			}
		}
	}
	return completed, nil
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (c *Coordinator) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil {
				c.logger.Error("settlement sweep failed", slog.Any("error", err))
			}
		}
	}
}
