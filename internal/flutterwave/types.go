package flutterwave

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// envelope is the wrapper every Flutterwave v3 response uses.
type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// TransferRequest is a payout to an external bank account. Amount is in kobo.
type TransferRequest struct {
	BankCode      string
	AccountNumber string
	Amount        int64
	Narration     string
	Reference     string
}

type transferBody struct {
	AccountBank   string      `json:"account_bank"`
	AccountNumber string      `json:"account_number"`
	Amount        json.Number `json:"amount"`
	Narration     string      `json:"narration"`
	Currency      string      `json:"currency"`
	Reference     string      `json:"reference"`
	DebitCurrency string      `json:"debit_currency"`
}

// TransferAck is the processor's acceptance of a submitted transfer.
type TransferAck struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

type transactionData struct {
	ID       int64           `json:"id"`
	TxRef    string          `json:"tx_ref"`
	FlwRef   string          `json:"flw_ref"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	Customer struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer"`
	Meta struct {
		OriginatorName          string `json:"originatorname"`
		BankName                string `json:"bankname"`
		OriginatorAccountNumber string `json:"originatoraccountnumber"`
	} `json:"meta"`
}

// VerifiedTransaction is an inbound charge as confirmed by the processor.
type VerifiedTransaction struct {
	ID                      int64
	FlwRef                  string
	Amount                  int64
	Currency                string
	Status                  string
	CustomerEmail           string
	OriginatorName          string
	OriginatorBank          string
	OriginatorAccountNumber string
}

// Successful reports whether the processor considers the charge settled.
func (v VerifiedTransaction) Successful() bool { return v.Status == "successful" }

type transferData struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Narration     string          `json:"narration"`
	BankName      string          `json:"bank_name"`
	FullName      string          `json:"full_name"`
	AccountNumber string          `json:"account_number"`
}

// VerifiedTransfer is an outbound transfer as confirmed by the processor.
type VerifiedTransfer struct {
	ID            int64
	Reference     string
	Amount        int64
	Status        string
	Narration     string
	BankName      string
	FullName      string
	AccountNumber string
}

// Successful reports whether the processor completed the transfer.
func (v VerifiedTransfer) Successful() bool { return v.Status == "SUCCESSFUL" }

// VirtualAccountRequest asks the processor for a permanent virtual account.
type VirtualAccountRequest struct {
	Email       string `json:"email"`
	IsPermanent bool   `json:"is_permanent"`
	BVN         string `json:"bvn"`
	PhoneNumber string `json:"phonenumber"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	Narration   string `json:"narration"`
}

// VirtualAccount is the issued account a user funds their wallet through.
type VirtualAccount struct {
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
}
