package settlement

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/paywave/paywave/internal/ledger"
	"github.com/paywave/paywave/internal/wallet"
)

// PostgresApplier settles a posting in a single database transaction: the
// event key, every balance update and every ledger row commit or roll back together.
type PostgresApplier struct {
	db *pgxpool.Pool
}

// NewPostgresApplier builds an applier on db.
func NewPostgresApplier(db *pgxpool.Pool) *PostgresApplier {
	return &PostgresApplier{db: db}
}

// Apply settles posting or returns ErrAlreadyApplied without side effects.
func (a *PostgresApplier) Apply(ctx context.Context, posting Posting) ([]Result, error) {
	if err := posting.validate(); err != nil {
		return nil, err
	}

	tx, err := a.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	tag, err := tx.Exec(ctx, `INSERT INTO applied_events (event_key) VALUES ($1)
        ON CONFLICT (event_key) DO NOTHING`, posting.EventKey)
	if err != nil {
		return nil, fmt.Errorf("claim event %s: %w", posting.EventKey, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyApplied
	}

	// Lock wallets in a stable order so two opposite transfers cannot deadlock.
	order := make([]int, len(posting.Legs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return posting.Legs[order[i]].OwnerID < posting.Legs[order[j]].OwnerID
	})

	results := make([]Result, len(posting.Legs))
	for _, i := range order {
		leg := posting.Legs[i]
		var balance int64
		if leg.Delta > 0 {
			balance, err = wallet.IncrementWith(ctx, tx, leg.OwnerID, leg.Delta)
		} else {
			balance, err = wallet.DecrementWith(ctx, tx, leg.OwnerID, -leg.Delta)
		}
		if err != nil {
			return nil, err
		}
		entry, err := ledger.RecordWith(ctx, tx, leg.Entry)
		if err != nil {
			return nil, err
		}
		results[i] = Result{Entry: entry, Balance: balance}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settlement %s: %w", posting.EventKey, err)
	}
	return results, nil
}

// Applied reports whether eventKey has been settled.
func (a *PostgresApplier) Applied(ctx context.Context, eventKey string) (bool, error) {
	var exists bool
	err := a.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM applied_events WHERE event_key = $1)`, eventKey).Scan(&exists)
	return exists, err
}
