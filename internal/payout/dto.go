package payout

import "github.com/shopspring/decimal"

// DisburseInput pays out to any external bank account. Amount is kobo.
type DisburseInput struct {
	BankCode      string `json:"account_bank" validate:"required,bankcode"`
	AccountNumber string `json:"account_number" validate:"required,nuban"`
	Amount        int64  `json:"amount" validate:"gt=0"`
	Narration     string `json:"narration" validate:"max=100"`
	PIN           string `json:"pin" validate:"required,pin"`
}

// WithdrawInput pays out to the user's own settlement account.
type WithdrawInput struct {
	Amount    int64  `json:"amount" validate:"gt=0"`
	Narration string `json:"narration" validate:"max=100"`
	PIN       string `json:"pin" validate:"required,pin"`
	OTP       string `json:"otp" validate:"required,len=6,numeric"`
}

// Receipt confirms the processor accepted a transfer. The wallet is debited
// only when the completion callback arrives.
type Receipt struct {
	Reference     string `json:"reference"`
	ProcessorID   int64  `json:"processor_id,omitempty"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"account_bank"`
}

type disburseRequest struct {
	BankCode      string          `json:"account_bank"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Narration     string          `json:"narration"`
	PIN           string          `json:"pin"`
}

type withdrawRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Narration string          `json:"narration"`
	PIN       string          `json:"pin"`
	OTP       string          `json:"otp"`
}
