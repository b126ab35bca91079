// Package core provides the ledger domain: money, months, transactions,
// budgets, categories and the pure analytics derived from them.
//
// This file contains the Money type. Amounts are fixed-point decimals with
// two fractional digits and travel over the wire as decimal strings.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is a two-decimal currency-agnostic amount.
type Money struct {
	d decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Zero is the zero amount.
var Zero = Money{}

// MaxAmount is the largest amount or budget limit accepted from users. It
// matches a decimal(10,2) column and keeps sums far from int64 cents.
var MaxAmount = MoneyFromCents(9_999_999_999)

// NewMoney rounds d to two decimals.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d.Round(2)}
}

// MoneyFromCents builds an amount from an integer number of cents.
func MoneyFromCents(cents int64) Money {
	return Money{d: decimal.New(cents, -2)}
}

// MustMoney parses s and panics on error. Intended for constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseAmount parses a strictly positive user supplied amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Values
// with more than two fractional digits are rounded half-up on the third.
// Signs, exponents, zero, values above MaxAmount and anything that is not
// plain digits are rejected.
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	m := NewMoney(d)
	if !m.ValidAmount() {
		return Zero, ErrInvalidAmount
	}
	return m, nil
}

// ParseMoney parses any signed decimal string, as stored or exchanged
// between services.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("parse money %q: %w", s, err)
	}
	return NewMoney(d), nil
}

// Cents returns the amount as an integer number of cents.
func (m Money) Cents() int64 {
	return m.d.Mul(hundred).Round(0).IntPart()
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }
func (m Money) Neg() Money        { return Money{d: m.d.Neg()} }

// ValidAmount reports whether m is within (0, MaxAmount].
func (m Money) ValidAmount() bool {
	return m.d.IsPositive() && m.d.Cmp(MaxAmount.d) <= 0
}

func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// Cmp compares m and o and returns -1, 0 or +1.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Equal reports whether both amounts are numerically equal.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// FloorZero clamps negative amounts to zero.
func (m Money) FloorZero() Money {
	if m.d.IsNegative() {
		return Zero
	}
	return m
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a quoted decimal string or a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
