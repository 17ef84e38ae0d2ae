// Package sizing converts probabilities and payout odds into bankroll
// fractions using the Kelly criterion.
package sizing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrZeroOdds is returned when the payout ratio is zero; the caller must not
// proceed to size a stake from it.
var ErrZeroOdds = errors.New("sizing: odds must be non-zero")

var one = decimal.NewFromInt(1)

// Kelly returns the Kelly fraction f = (p*odds - (1-p)) / odds for a binary
// bet, where p is a probability-like input in [0, 1] and odds is the net
// decimal payout ratio. The result is clamped to [0, 1]: a negative fraction
// means no position, a fraction above one means the full bankroll.
func Kelly(p, odds decimal.Decimal) (decimal.Decimal, error) {
	if odds.IsZero() {
		return decimal.Zero, ErrZeroOdds
	}

	f := p.Mul(odds).Sub(one.Sub(p)).Div(odds)

	if f.IsNegative() {
		return decimal.Zero, nil
	}
	if f.GreaterThan(one) {
		return one, nil
	}
	return f, nil
}
