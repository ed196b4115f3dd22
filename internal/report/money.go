// Package report shapes settlement results into the public response
// envelopes and their CSV projections.
package report

import (
	"github.com/shopspring/decimal"
)

// Money is a charge rendered as a JSON number with exactly two fraction
// digits, e.g. 2.50.
type Money struct{ decimal.Decimal }

// NewMoney wraps d.
func NewMoney(d decimal.Decimal) Money { return Money{d} }

// MarshalJSON renders the amount with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

// UnmarshalJSON accepts a JSON number or a quoted number.
func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}

// String renders the amount with two decimals.
func (m Money) String() string { return m.StringFixed(2) }
