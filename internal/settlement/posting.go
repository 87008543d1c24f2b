// Package settlement applies balance movements and their ledger rows as one
// unit, exactly once per event key.
package settlement

import (
	"context"
	"fmt"

	"github.com/paywave/paywave/internal/apperr"
	"github.com/paywave/paywave/internal/ledger"
)

// ErrAlreadyApplied means the event key was settled before; nothing changed.
var ErrAlreadyApplied = apperr.New(apperr.KindBusinessRule, "EVENT_ALREADY_APPLIED", "event already applied")

// Leg moves Delta kobo on one owner's wallet and records Entry for it.
// Entry's signed amount must equal Delta.
type Leg struct {
	OwnerID string
	Delta   int64
	Entry   ledger.Transaction
}

// Posting is every leg of one settlement event. EventKey is the exactly-once
// guard, e.g. flw:charge.completed:4975363 or p2p:{reference}. A posting with
// no legs only marks the event as handled.
type Posting struct {
	EventKey string
	Legs     []Leg
}

// Result is the outcome of one leg, in the order the legs were given.
type Result struct {
	Entry   ledger.Transaction
	Balance int64
}

// Applier settles postings. Applied is an advisory pre-check; Apply remains
// the authority on whether an event key was already used.
type Applier interface {
	Apply(ctx context.Context, posting Posting) ([]Result, error)
	Applied(ctx context.Context, eventKey string) (bool, error)
}

func (p Posting) validate() error {
	if p.EventKey == "" {
		return apperr.Validation("posting requires an event key", map[string]string{"event_key": "is required"})
	}
	for i, leg := range p.Legs {
		if leg.OwnerID == "" || leg.Delta == 0 {
			return apperr.Validation(fmt.Sprintf("leg %d is missing owner or amount", i), nil)
		}
		if leg.Entry.Signed() != leg.Delta {
			return apperr.Validation(fmt.Sprintf("leg %d entry does not match its delta", i), nil)
		}
		if err := leg.Entry.Validate(); err != nil {
			return err
		}
	}
	return nil
}
