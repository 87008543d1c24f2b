package wallet

import "time"

// Wallet is a user's balance-holding account, linked 1:1 to a virtual bank
// account issued by the payment processor. Balance is held in kobo.
type Wallet struct {
	ID            string
	OwnerID       string
	AccountNumber string
	BankName      string
	Balance       int64
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	StatusActive = "active"
)
