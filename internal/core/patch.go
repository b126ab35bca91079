package core

import (
	"strings"
	"time"
)

// TransactionPatch lists the fields an edit may change. Nil fields are left
// untouched. ID and CreatedAt are never editable.
type TransactionPatch struct {
	Amount      *Money
	Description *string
	Category    *string
	Type        *TransactionType
	Date        *time.Time
}

func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Description == nil && p.Category == nil && p.Type == nil && p.Date == nil
}

// Validate checks every present field before anything is merged.
func (p TransactionPatch) Validate() error {
	if p.IsEmpty() {
		return Invalid("body", ErrEmptyPatch)
	}
	if p.Amount != nil && !p.Amount.ValidAmount() {
		return Invalid("amount", ErrInvalidAmount)
	}
	if p.Description != nil {
		if err := validateDescription(*p.Description); err != nil {
			return err
		}
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if p.Type != nil && !p.Type.Valid() {
		return Invalid("type", ErrInvalidType)
	}
	if p.Date != nil && p.Date.IsZero() {
		return Invalid("date", ErrInvalidDate)
	}
	return nil
}

// Apply returns t with the patch merged in.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

// BudgetPatch lists the editable budget fields. Spent is deliberately absent.
type BudgetPatch struct {
	Category *string
	Limit    *Money
	Month    *Month
}

func (p BudgetPatch) IsEmpty() bool {
	return p.Category == nil && p.Limit == nil && p.Month == nil
}

func (p BudgetPatch) Validate() error {
	if p.IsEmpty() {
		return Invalid("body", ErrEmptyPatch)
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if p.Limit != nil && !p.Limit.ValidAmount() {
		return Invalid("limit", ErrInvalidLimit)
	}
	if p.Month != nil {
		if err := p.Month.Validate(); err != nil {
			return Invalid("month", err)
		}
	}
	return nil
}

func (p BudgetPatch) Apply(b Budget) Budget {
	if p.Category != nil {
		b.Category = strings.TrimSpace(*p.Category)
	}
	if p.Limit != nil {
		b.Limit = *p.Limit
	}
	if p.Month != nil {
		b.Month = *p.Month
	}
	return b
}
