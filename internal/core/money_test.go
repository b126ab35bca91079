package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{".5", "0.50", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
		{"99999999.99", "99999999.99", true},
		{"99999999,994", "99999999.99", true},
		{"99999999.995", "", false},
		{"100000000", "", false},
		{"92233720368547758.08", "", false},
		{"100000000000000000000", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestMaxAmountBoundsValidation(t *testing.T) {
	over := MaxAmount.Add(MoneyFromCents(1))
	if !MaxAmount.ValidAmount() || over.ValidAmount() {
		t.Fatalf("ValidAmount: max=%v over=%v", MaxAmount.ValidAmount(), over.ValidAmount())
	}

	var ve *ValidationError
	tx := Transaction{Amount: over, Description: "x", Category: "Other", Type: Expense, Date: time.Now()}
	if err := tx.Validate(); !errors.As(err, &ve) || ve.Field != "amount" {
		t.Errorf("transaction over max: got %v", err)
	}
	b := Budget{Category: "Other", Limit: over, Month: "2024-01"}
	if err := b.Validate(); !errors.As(err, &ve) || ve.Field != "limit" {
		t.Errorf("budget over max: got %v", err)
	}
	if err := (BudgetPatch{Limit: &over}).Validate(); !errors.As(err, &ve) || ve.Field != "limit" {
		t.Errorf("budget patch over max: got %v", err)
	}
}

func TestMoneyCentsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 12345, -250, 9_999_999_999} {
		if got := MoneyFromCents(cents).Cents(); got != cents {
			t.Errorf("MoneyFromCents(%d).Cents() = %d", cents, got)
		}
	}
}

func TestMoneyFloorZero(t *testing.T) {
	m := MustMoney("10").Sub(MustMoney("25.50"))
	if !m.IsNegative() {
		t.Fatalf("expected negative, got %s", m)
	}
	if got := m.FloorZero(); !got.IsZero() {
		t.Fatalf("FloorZero() = %s, want 0.00", got)
	}
	if got := MustMoney("3.10").FloorZero(); got.String() != "3.10" {
		t.Fatalf("FloorZero() on positive = %s", got)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Money `json:"a"`
	}{A: MustMoney("62.5")})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":"62.50"}` {
		t.Fatalf("unexpected encoding %s", b)
	}

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"12.30","b":7.5}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if in.A.String() != "12.30" || in.B.String() != "7.50" {
		t.Fatalf("decoded %s and %s", in.A, in.B)
	}
	if err := json.Unmarshal([]byte(`{"a":"twelve"}`), &in); err == nil {
		t.Fatal("expected error for non numeric amount")
	}
}
