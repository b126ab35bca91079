// Package ledger implements the transaction and budget ledgers on top of a
// pluggable Store, keeping budget spending reconciled with expense
// transactions and serving analytics snapshots.
package ledger

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero fields do not filter.
// Start and End are inclusive.
type TransactionFilter struct {
	Category string
	Start    time.Time
	End      time.Time
}

// Match reports whether t passes the filter.
func (f TransactionFilter) Match(t core.Transaction) bool {
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if !f.Start.IsZero() && t.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && t.Date.After(f.End) {
		return false
	}
	return true
}

// Ports for storage adapters.
type (
	TransactionStore interface {
		// ListTransactions returns matching transactions, newest date first.
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		InsertTransaction(ctx context.Context, t core.Transaction) error
		// UpdateTransaction replaces every field except ID and CreatedAt.
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	BudgetStore interface {
		// ListBudgets returns the budgets of month, or every budget when month is empty.
		ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error)
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		FindBudget(ctx context.Context, category string, month core.Month) (core.Budget, error)
		// InsertBudget fails with core.ErrBudgetExists on a duplicate (category, month).
		InsertBudget(ctx context.Context, b core.Budget) error
		// UpdateBudget writes category, limit and month only. Spent is never touched.
		UpdateBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id string) error
		// AdjustBudgetSpent atomically sets spent = max(0, spent + delta) on the
		// budget for (category, month). It reports whether such a budget exists.
		AdjustBudgetSpent(ctx context.Context, category string, month core.Month, delta core.Money) (bool, error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		InsertCategories(ctx context.Context, cats []core.Category) error
	}

	// Store is the full persistence port. Every method returns errors
	// wrapping core.ErrNotFound for missing ids.
	Store interface {
		TransactionStore
		BudgetStore
		CategoryStore
		// RunInTx runs fn as one unit of work. Stores able to roll back do so
		// when fn returns an error.
		RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
		Ping(ctx context.Context) error
	}

	// EventPublisher receives committed ledger changes.
	EventPublisher interface {
		PublishLedgerEvent(ctx context.Context, ev core.LedgerEvent) error
	}
)
