// Package ledger keeps the append-only record of every balance-affecting event.
// Rows are written once at settlement time and never mutated.
package ledger

import "time"

// Type classifies a ledger row.
type Type string

const (
	TypeFunding      Type = "funding"
	TypeDisbursement Type = "disbursement"
	TypeP2P          Type = "p2p"
)

// Status of the settled event.
type Status string

const (
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
)

// Transaction is one immutable ledger row. Exactly one of AmountCredited and
// AmountDebited is non-zero; both are kobo.
type Transaction struct {
	ID               string    `json:"id"`
	WalletID         string    `json:"wallet_id"`
	From             string    `json:"from"`
	CounterpartyName string    `json:"recipient_name"`
	CounterpartyBank string    `json:"recipient_bank"`
	AmountCredited   int64     `json:"amount_credited"`
	AmountDebited    int64     `json:"amount_debited"`
	Reference        string    `json:"reference"`
	ProcessorRef     string    `json:"processor_ref,omitempty"`
	Type             Type      `json:"type"`
	Status           Status    `json:"status"`
	Description      string    `json:"description"`
	CreatedAt        time.Time `json:"created_at"`
}

// Signed returns the balance effect of the row.
func (t Transaction) Signed() int64 {
	return t.AmountCredited - t.AmountDebited
}

// Validate checks the fields every row must carry.
func (t Transaction) Validate() error {
	fields := map[string]string{}
	if t.WalletID == "" {
		fields["wallet_id"] = "is required"
	}
	if t.CounterpartyName == "" {
		fields["recipient_name"] = "is required"
	}
	if t.CounterpartyBank == "" {
		fields["recipient_bank"] = "is required"
	}
	if t.Reference == "" {
		fields["reference"] = "is required"
	}
	switch t.Type {
	case TypeFunding, TypeDisbursement, TypeP2P:
	default:
		fields["type"] = "is invalid"
	}
	switch t.Status {
	case StatusSuccessful, StatusFailed:
	default:
		fields["status"] = "is invalid"
	}
	switch {
	case t.AmountCredited < 0 || t.AmountDebited < 0:
		fields["amount"] = "must not be negative"
	case (t.AmountCredited == 0) == (t.AmountDebited == 0):
		fields["amount"] = "exactly one of credited or debited must be set"
	}
	if len(fields) > 0 {
		return invalid(fields)
	}
	return nil
}
