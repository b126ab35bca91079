package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// NewBudget is the input of CreateBudget.
type NewBudget struct {
	Category string
	Limit    core.Money
	Month    core.Month
}

// ListBudgets returns the budgets of month, or all budgets when month is empty.
func (s *Service) ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	if month != "" {
		if err := month.Validate(); err != nil {
			return nil, core.Invalid("month", err)
		}
	}
	budgets, err := s.store.ListBudgets(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

func (s *Service) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := s.store.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %s: %w", id, err)
	}
	return b, nil
}

// BudgetFor returns the budget of (category, month) or core.ErrNotFound.
func (s *Service) BudgetFor(ctx context.Context, category string, month core.Month) (core.Budget, error) {
	if err := month.Validate(); err != nil {
		return core.Budget{}, core.Invalid("month", err)
	}
	b, err := s.store.FindBudget(ctx, strings.TrimSpace(category), month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget %s/%s: %w", category, month, err)
	}
	return b, nil
}

// CreateBudget adds a budget with zero spent. A second budget for the same
// (category, month) fails with core.ErrBudgetExists.
func (s *Service) CreateBudget(ctx context.Context, in NewBudget) (core.Budget, error) {
	b := core.Budget{
		ID:        uuid.NewString(),
		Category:  strings.TrimSpace(in.Category),
		Limit:     in.Limit,
		Spent:     core.Zero,
		Month:     in.Month,
		CreatedAt: s.Now(),
	}
	if b.Category != "" {
		b.Category = s.resolveCategory(ctx, b.Category)
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		return tx.InsertBudget(ctx, b)
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}

	s.metrics.budgetsCreated.Add(1)
	s.logger.InfoContext(ctx, "Budget created",
		log.NewFields().WithBudget(b).WithOperation(log.OpCreate).ToSlice()...)
	return b, nil
}

// UpdateBudget merges patch into the stored budget. Spent is left as is.
func (s *Service) UpdateBudget(ctx context.Context, id string, patch core.BudgetPatch) (core.Budget, error) {
	if err := patch.Validate(); err != nil {
		return core.Budget{}, err
	}
	if patch.Category != nil {
		resolved := s.resolveCategory(ctx, *patch.Category)
		patch.Category = &resolved
	}

	var updated core.Budget
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		current, err := tx.GetBudget(ctx, id)
		if err != nil {
			return fmt.Errorf("get budget %s: %w", id, err)
		}
		updated = patch.Apply(current)
		if err := updated.Validate(); err != nil {
			return err
		}
		if err := tx.UpdateBudget(ctx, updated); err != nil {
			return fmt.Errorf("update budget %s: %w", id, err)
		}
		// Re-read so the returned spent reflects any concurrent reconciliation.
		updated, err = tx.GetBudget(ctx, id)
		return err
	})
	if err != nil {
		return core.Budget{}, err
	}

	s.logger.InfoContext(ctx, "Budget updated",
		log.NewFields().WithBudget(updated).WithOperation(log.OpUpdate).ToSlice()...)
	return updated, nil
}

func (s *Service) DeleteBudget(ctx context.Context, id string) error {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		return tx.DeleteBudget(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete budget %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Budget deleted", log.FieldBudgetID, id, log.FieldOperation, log.OpDelete)
	return nil
}
