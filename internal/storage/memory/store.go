// Package memory is an in-process ledger.Store. Data lives in maps keyed by
// id and is lost on exit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

type Store struct {
	// txMu serializes units of work; mu guards the maps.
	txMu sync.Mutex
	mu   sync.RWMutex

	transactions map[string]core.Transaction
	budgets      map[string]core.Budget
	categories   []core.Category
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		transactions: make(map[string]core.Transaction),
		budgets:      make(map[string]core.Budget),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// RunInTx runs fn while holding the unit-of-work lock and restores the
// previous state if fn fails.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	txs, budgets, cats := s.copyState()
	s.mu.RUnlock()

	if err := fn(ctx, s); err != nil {
		s.mu.Lock()
		s.transactions, s.budgets, s.categories = txs, budgets, cats
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) copyState() (map[string]core.Transaction, map[string]core.Budget, []core.Category) {
	txs := make(map[string]core.Transaction, len(s.transactions))
	for k, v := range s.transactions {
		txs[k] = v
	}
	budgets := make(map[string]core.Budget, len(s.budgets))
	for k, v := range s.budgets {
		budgets[k] = v
	}
	cats := make([]core.Category, len(s.categories))
	copy(cats, s.categories)
	return txs, budgets, cats
}

func (s *Store) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	sortTransactions(out)
	return out, nil
}

// sortTransactions orders by date descending, then creation time and id.
func sortTransactions(txs []core.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[t.ID]; exists {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, t core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.transactions[t.ID]
	if !ok {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	t.CreatedAt = current.CreatedAt
	s.transactions[t.ID] = t
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transactions[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) ListBudgets(_ context.Context, month core.Month) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		if month == "" || b.Month == month {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month > out[j].Month
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (s *Store) FindBudget(_ context.Context, category string, month core.Month) (core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.findLocked(category, month); ok {
		return b, nil
	}
	return core.Budget{}, fmt.Errorf("budget %s/%s: %w", category, month, core.ErrNotFound)
}

func (s *Store) findLocked(category string, month core.Month) (core.Budget, bool) {
	for _, b := range s.budgets {
		if b.Category == category && b.Month == month {
			return b, true
		}
	}
	return core.Budget{}, false
}

func (s *Store) InsertBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.findLocked(b.Category, b.Month); exists {
		return fmt.Errorf("budget %s/%s: %w", b.Category, b.Month, core.ErrBudgetExists)
	}
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.budgets[b.ID]
	if !ok {
		return fmt.Errorf("budget %s: %w", b.ID, core.ErrNotFound)
	}
	if other, exists := s.findLocked(b.Category, b.Month); exists && other.ID != b.ID {
		return fmt.Errorf("budget %s/%s: %w", b.Category, b.Month, core.ErrBudgetExists)
	}
	current.Category = b.Category
	current.Limit = b.Limit
	current.Month = b.Month
	s.budgets[b.ID] = current
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.budgets[id]; !ok {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) AdjustBudgetSpent(_ context.Context, category string, month core.Month, delta core.Money) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.findLocked(category, month)
	if !ok {
		return false, nil
	}
	b.Spent = b.Spent.Add(delta).FloorZero()
	s.budgets[b.ID] = b
	return true, nil
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Category, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

func (s *Store) InsertCategories(_ context.Context, cats []core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range cats {
		for _, existing := range s.categories {
			if existing.Name == c.Name {
				return fmt.Errorf("category %q already exists", c.Name)
			}
		}
		s.categories = append(s.categories, c)
	}
	return nil
}
