package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const maxDescriptionLen = 200

type (
	TransactionType string

	// Transaction is a dated money movement. Amount is always a positive
	// magnitude; the sign is implied by Type.
	Transaction struct {
		ID              string          `json:"id"`
		Amount          Money           `json:"amount"`
		Description     string          `json:"description"`
		Category        string          `json:"category"`
		Type            TransactionType `json:"type"`
		Date            time.Time       `json:"date"`
		AutoCategorized bool            `json:"isAutoCategorized"`
		CreatedAt       time.Time       `json:"createdAt"`
	}

	// Budget is a spending limit for one category in one month. Spent is
	// maintained by reconciliation only.
	Budget struct {
		ID        string    `json:"id"`
		Category  string    `json:"category"`
		Limit     Money     `json:"limit"`
		Spent     Money     `json:"spent"`
		Month     Month     `json:"month"`
		CreatedAt time.Time `json:"createdAt"`
	}

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}
)

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t Transaction) IsExpense() bool { return t.Type == Expense }

func (t Transaction) Validate() error {
	if !t.Amount.ValidAmount() {
		return Invalid("amount", ErrInvalidAmount)
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if !t.Type.Valid() {
		return Invalid("type", ErrInvalidType)
	}
	if t.Date.IsZero() {
		return Invalid("date", ErrInvalidDate)
	}
	return nil
}

func validateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return Invalid("description", ErrEmptyDescription)
	}
	if len(desc) > maxDescriptionLen {
		return Invalid("description", ErrLongDescription)
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if !b.Limit.ValidAmount() {
		return Invalid("limit", ErrInvalidLimit)
	}
	if err := b.Month.Validate(); err != nil {
		return Invalid("month", err)
	}
	return nil
}

// Remaining is limit minus spent and may be negative.
func (b Budget) Remaining() Money {
	return b.Limit.Sub(b.Spent)
}

// Key identifies the (category, month) pair a budget is unique on.
func (b Budget) Key() string {
	return BudgetKey(b.Category, b.Month)
}

func BudgetKey(category string, month Month) string {
	return string(month) + "|" + category
}
