package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/categorize"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// NewTransaction is the input of CreateTransaction. An empty Category asks
// the categorization oracle; a nil Date means now.
type NewTransaction struct {
	Amount          core.Money
	Description     string
	Category        string
	Type            core.TransactionType
	Date            *time.Time
	AutoCategorized bool
}

// TransactionQuery selects transactions for listing. Category takes
// precedence over the date range when both are given.
type TransactionQuery struct {
	Category string
	Start    *time.Time
	End      *time.Time
}

func (q TransactionQuery) filter() (TransactionFilter, error) {
	if c := strings.TrimSpace(q.Category); c != "" {
		return TransactionFilter{Category: c}, nil
	}
	var f TransactionFilter
	if q.Start != nil {
		f.Start = *q.Start
	}
	if q.End != nil {
		f.End = *q.End
	}
	if !f.Start.IsZero() && !f.End.IsZero() && f.Start.After(f.End) {
		return f, core.Invalid("startDate", core.ErrInvalidRange)
	}
	return f, nil
}

func (s *Service) ListTransactions(ctx context.Context, q TransactionQuery) ([]core.Transaction, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

// CreateTransaction records a transaction and, for expenses, adds its amount
// to the current month's budget of the same category.
func (s *Service) CreateTransaction(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	now := s.Now()
	t := core.Transaction{
		ID:              uuid.NewString(),
		Amount:          in.Amount,
		Description:     strings.TrimSpace(in.Description),
		Category:        strings.TrimSpace(in.Category),
		Type:            in.Type,
		Date:            now,
		AutoCategorized: in.AutoCategorized,
		CreatedAt:       now,
	}
	if in.Date != nil && !in.Date.IsZero() {
		t.Date = *in.Date
	}

	if t.Category == "" {
		t.Category = s.oracle.Categorize(t.Description)
		t.AutoCategorized = true
		s.metrics.autoCategorizedTotal.Add(1)
	} else {
		t.Category = s.resolveCategory(ctx, t.Category)
	}

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		if err := tx.InsertTransaction(ctx, t); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		if t.IsExpense() {
			return s.reconcile(ctx, tx, t, t.Amount)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.metrics.transactionsCreated.Add(1)
	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().WithTransaction(t).WithOperation(log.OpCreate).ToSlice()...)
	s.publish(ctx, core.EventTransactionCreated, t)
	return t, nil
}

// UpdateTransaction merges patch into the stored transaction. Budgets are
// not re-reconciled: spent keeps reflecting the values at creation time.
func (s *Service) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, error) {
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if patch.Category != nil {
		resolved := s.resolveCategory(ctx, *patch.Category)
		patch.Category = &resolved
	}

	var updated core.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		current, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return fmt.Errorf("get transaction %s: %w", id, err)
		}
		updated = patch.Apply(current)
		if err := updated.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateTransaction(ctx, updated); err != nil {
			return fmt.Errorf("update transaction %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().WithTransaction(updated).WithOperation(log.OpUpdate).ToSlice()...)
	s.publish(ctx, core.EventTransactionUpdated, updated)
	return updated, nil
}

// DeleteTransaction removes a transaction and, for expenses, subtracts its
// amount from the current month's budget of the same category. A missing id
// is reported as core.ErrNotFound.
func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	var removed core.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		t, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return fmt.Errorf("get transaction %s: %w", id, err)
		}
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("delete transaction %s: %w", id, err)
		}
		removed = t
		if t.IsExpense() {
			return s.reconcile(ctx, tx, t, t.Amount.Neg())
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.transactionsDeleted.Add(1)
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.NewFields().WithTransaction(removed).WithOperation(log.OpDelete).ToSlice()...)
	s.publish(ctx, core.EventTransactionDeleted, removed)
	return nil
}

// reconcile applies delta to the budget of (t.Category, current month). The
// lookup always uses the current calendar month, not t.Date. A missing
// budget is not an error.
func (s *Service) reconcile(ctx context.Context, tx Store, t core.Transaction, delta core.Money) error {
	month := s.CurrentMonth()
	matched, err := tx.AdjustBudgetSpent(ctx, t.Category, month, delta)
	if err != nil {
		s.metrics.reconcileFailures.Add(1)
		fields := log.NewFields().
			WithTransaction(t).
			WithOperation(log.OpReconcile).
			WithError(err)
		fields[log.FieldMonth] = string(month)
		fields[log.FieldConsistencyRisk] = true
		s.logger.WithComponent(log.ComponentReconcile).
			ErrorContext(ctx, "Budget reconciliation failed", fields.ToSlice()...)
		return fmt.Errorf("reconcile budget %s/%s: %w", t.Category, month, err)
	}

	s.metrics.reconciliations.Add(1)
	if !matched {
		s.metrics.unmatchedExpenses.Add(1)
		s.logger.DebugContext(ctx, "No budget for expense category",
			log.FieldCategory, t.Category, log.FieldMonth, string(month))
	}
	return nil
}

// resolveCategory normalizes a submitted category to its registry spelling.
// Registry lookup failures leave the name as submitted.
func (s *Service) resolveCategory(ctx context.Context, name string) string {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "Category registry unavailable", log.FieldError, err.Error())
		}
		return strings.TrimSpace(name)
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return categorize.ResolveName(name, names)
}
