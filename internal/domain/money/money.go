// Package money implements a non-negative, currency-tagged amount with two
// decimal places.
package money

import (
	"fmt"

	"github.com/corray333/backend-labs/orderddd/internal/domain/currency"
	"github.com/corray333/backend-labs/orderddd/internal/domain/domainerr"
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every amount is stored with.
const Scale = 2

// Money is immutable; every operation returns a new value.
// The zero value is "unset" and is rejected wherever a price is required.
type Money struct {
	amount   decimal.Decimal
	currency currency.Currency
}

// New validates amount and cur and rounds amount half-up to Scale places.
func New(amount decimal.Decimal, cur currency.Currency) (Money, error) {
	if !cur.IsValid() {
		return Money{}, domainerr.Newf(domainerr.KindInvalidFormat, "money.New", "unsupported currency %q", cur)
	}
	if amount.IsNegative() {
		return Money{}, domainerr.Newf(domainerr.KindNegativeAmount, "money.New", "amount %s is negative", amount)
	}

	return Money{amount: amount.Round(Scale), currency: cur}, nil
}

// FromString parses a decimal string such as "1000" or "12.345".
func FromString(amount string, cur currency.Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, domainerr.Newf(domainerr.KindInvalidFormat, "money.FromString", "%q is not a decimal amount", amount)
	}

	return New(d, cur)
}

// Zero returns a zero amount in cur. An unsupported currency yields the unset
// value, so IsUnset reports true.
func Zero(cur currency.Currency) Money {
	if !cur.IsValid() {
		return Money{}
	}

	return Money{amount: decimal.Zero, currency: cur}
}

// Amount returns the amount rounded to Scale places.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the currency of m.
func (m Money) Currency() currency.Currency { return m.currency }

// IsUnset reports whether m is the zero value of the type, not a zero amount.
func (m Money) IsUnset() bool { return m.currency == "" }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Equals reports value equality: same currency and numerically equal amount.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// Add sums two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency("Money.Add", other); err != nil {
		return Money{}, err
	}

	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract fails with NegativeResult rather than go below zero.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency("Money.Subtract", other); err != nil {
		return Money{}, err
	}

	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, domainerr.Newf(domainerr.KindNegativeResult, "Money.Subtract", "%s - %s is negative", m, other)
	}

	return Money{amount: result, currency: m.currency}, nil
}

// Multiply scales m by a non-negative factor and rounds half-up to Scale places.
func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, domainerr.Newf(domainerr.KindNegativeFactor, "Money.Multiply", "factor %s is negative", factor)
	}

	return Money{amount: m.amount.Mul(factor).Round(Scale), currency: m.currency}, nil
}

// Compare returns -1, 0 or +1. Both values must share a currency.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency("Money.Compare", other); err != nil {
		return 0, err
	}

	return m.amount.Cmp(other.amount), nil
}

// GreaterThan reports m > other. Both values must share a currency.
func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.Compare(other)

	return c > 0, err
}

// LessThan reports m < other. Both values must share a currency.
func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.Compare(other)

	return c < 0, err
}

// String renders "2000.00 JPY".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(Scale), m.currency)
}

func (m Money) sameCurrency(op string, other Money) error {
	if m.currency != other.currency {
		return domainerr.Newf(domainerr.KindCurrencyMismatch, op, "%s vs %s", m.currency, other.currency)
	}

	return nil
}
