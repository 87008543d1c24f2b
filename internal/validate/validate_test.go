package validate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paywave/paywave/internal/apperr"
)

type sampleRequest struct {
	AccountNumber string `json:"account_number" validate:"required,nuban"`
	BankCode      string `json:"account_bank" validate:"required,bankcode"`
	PIN           string `json:"pin" validate:"required,pin"`
	Amount        int64  `json:"amount" validate:"gt=0"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sampleRequest{AccountNumber: "123", BankCode: "044", PIN: "12a4"})

	e, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindValidation, e.Kind)
	require.Contains(t, e.Fields, "account_number")
	require.Contains(t, e.Fields, "pin")
	require.Contains(t, e.Fields, "amount")
	require.NotContains(t, e.Fields, "account_bank")
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(sampleRequest{AccountNumber: "0123456789", BankCode: "044", PIN: "1234", Amount: 100}))
}
