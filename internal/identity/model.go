package identity

import "time"

// User is the account holder a wallet belongs to. Credentials other than the
// transaction PIN are owned by the external auth service.
type User struct {
	ID                      string
	Email                   string
	FirstName               string
	LastName                string
	Username                string
	PhoneNumber             string
	PINHash                 []byte
	SettlementAccountNumber string
	SettlementBankCode      string
	SettlementBankName      string
	CreatedAt               time.Time
}

// FullName joins first and last name.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// HasSettlementAccount reports whether withdrawals have a destination.
func (u User) HasSettlementAccount() bool {
	return u.SettlementAccountNumber != "" && u.SettlementBankCode != ""
}
