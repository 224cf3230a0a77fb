package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid money amount")

// maxAmountCents bounds accepted amounts to 100M TRY in kurus, well above any
// plausible single ticket.
var maxAmountCents = decimal.NewFromInt(100_000_000).Mul(decimal.NewFromInt(100))

// CentsFromDecimal converts a currency amount to integer kurus. Amounts must
// be non-negative, have at most two fractional digits and stay under the
// sanity bound; anything else fails with ErrInvalidAmount.
func CentsFromDecimal(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, ErrInvalidAmount
	}
	if cents.GreaterThan(maxAmountCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// DecimalFromCents renders integer kurus as a two-decimal currency amount.
func DecimalFromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}
