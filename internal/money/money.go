// Package money converts between naira amounts as they appear on the wire and
// the int64 kobo values stored on wallets and ledger rows.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const koboExponent = 2

var (
	hundred = decimal.NewFromInt(100)
	maxKobo = decimal.NewFromInt(1 << 62)
	minKobo = maxKobo.Neg()
)

// ToKobo converts a naira amount to kobo. Amounts with more than two decimal
// places are rejected rather than rounded.
func ToKobo(naira decimal.Decimal) (int64, error) {
	kobo := naira.Mul(hundred)
	if !kobo.Equal(kobo.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", naira.String(), koboExponent)
	}
	if kobo.GreaterThan(maxKobo) || kobo.LessThan(minKobo) {
		return 0, fmt.Errorf("amount %s out of range", naira.String())
	}
	return kobo.IntPart(), nil
}

// ParseNaira parses a decimal string such as "1500.50" into kobo.
func ParseNaira(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return ToKobo(d)
}

// ToNaira returns the naira value of a kobo amount.
func ToNaira(kobo int64) decimal.Decimal {
	return decimal.New(kobo, -koboExponent)
}

// Format renders kobo as a fixed two-decimal naira string.
func Format(kobo int64) string {
	return ToNaira(kobo).StringFixed(koboExponent)
}
