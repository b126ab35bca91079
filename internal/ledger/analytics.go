package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

// Snapshot loads the data every analytics computation needs. The three
// reads run concurrently; analytics only requires that each reflects
// committed writes.
func (s *Service) Snapshot(ctx context.Context) (core.Snapshot, error) {
	now := s.Now()
	cur := core.MonthOf(now)
	oldest := cur.AddMonths(-(core.TrendMonths - 1)).Start(s.loc)

	snap := core.Snapshot{Now: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.store.ListTransactions(gctx, TransactionFilter{Start: oldest})
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		snap.Transactions = txs
		return nil
	})
	g.Go(func() error {
		budgets, err := s.store.ListBudgets(gctx, cur)
		if err != nil {
			return fmt.Errorf("load budgets: %w", err)
		}
		snap.Budgets = budgets
		return nil
	})
	g.Go(func() error {
		cats, err := s.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		snap.Categories = cats
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}
	return snap, nil
}

func (s *Service) FinancialHealth(ctx context.Context) (core.FinancialHealth, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.FinancialHealth{}, err
	}
	return core.ComputeFinancialHealth(snap), nil
}

func (s *Service) SpendingAnalytics(ctx context.Context) (core.SpendingAnalytics, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return core.SpendingAnalytics{}, err
	}
	return core.ComputeSpendingAnalytics(snap), nil
}
