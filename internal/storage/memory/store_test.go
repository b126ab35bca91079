package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func expense(id, category, amount string, date time.Time) core.Transaction {
	return core.Transaction{
		ID: id, Amount: core.MustMoney(amount), Description: id, Category: category,
		Type: core.Expense, Date: date, CreatedAt: date,
	}
}

func TestListTransactionsOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	for _, tx := range []core.Transaction{
		expense("a", "Shopping", "1", d),
		expense("b", "Shopping", "2", d.AddDate(0, 0, 1)),
		expense("c", "Utilities", "3", d.AddDate(0, 0, -1)),
	} {
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, _ := s.ListTransactions(ctx, ledger.TransactionFilter{})
	if len(all) != 3 || all[0].ID != "b" || all[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", all)
	}
	shop, _ := s.ListTransactions(ctx, ledger.TransactionFilter{Category: "Shopping"})
	if len(shop) != 2 {
		t.Fatalf("category filter: %+v", shop)
	}
	day, _ := s.ListTransactions(ctx, ledger.TransactionFilter{Start: d, End: d})
	if len(day) != 1 || day[0].ID != "a" {
		t.Fatalf("inclusive range: %+v", day)
	}
}

func TestBudgetRules(t *testing.T) {
	ctx := context.Background()
	s := New()

	b := core.Budget{ID: "b1", Category: "Food & Dining", Limit: core.MustMoney("200"), Month: "2024-01"}
	if err := s.InsertBudget(ctx, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	b.ID = "b2"
	if err := s.InsertBudget(ctx, b); !errors.Is(err, core.ErrBudgetExists) {
		t.Fatalf("want ErrBudgetExists, got %v", err)
	}

	if ok, _ := s.AdjustBudgetSpent(ctx, "Food & Dining", "2024-01", core.MustMoney("30")); !ok {
		t.Fatalf("budget not matched")
	}
	if ok, _ := s.AdjustBudgetSpent(ctx, "Food & Dining", "2024-01", core.MustMoney("-45")); !ok {
		t.Fatalf("budget not matched")
	}
	got, _ := s.GetBudget(ctx, "b1")
	if !got.Spent.IsZero() {
		t.Fatalf("spent not clamped: %s", got.Spent)
	}
	if ok, _ := s.AdjustBudgetSpent(ctx, "Food & Dining", "2024-02", core.MustMoney("1")); ok {
		t.Fatalf("other month matched")
	}

	if err := s.DeleteBudget(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRunInTxRestoresOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if err := s.InsertBudget(ctx, core.Budget{ID: "b", Category: "Shopping", Limit: core.MustMoney("10"), Month: "2024-01"}); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		if err := tx.InsertTransaction(ctx, expense("x", "Shopping", "5", d)); err != nil {
			return err
		}
		if _, err := tx.AdjustBudgetSpent(ctx, "Shopping", "2024-01", core.MustMoney("5")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("transaction survived rollback")
	}
	b, _ := s.GetBudget(ctx, "b")
	if !b.Spent.IsZero() {
		t.Fatalf("spent survived rollback: %s", b.Spent)
	}
}

func TestConcurrentAdjustments(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.InsertBudget(ctx, core.Budget{ID: "b", Category: "Shopping", Limit: core.MustMoney("1000"), Month: "2024-01"}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.RunInTx(ctx, func(ctx context.Context, tx ledger.Store) error {
				_, err := tx.AdjustBudgetSpent(ctx, "Shopping", "2024-01", core.MustMoney("1.10"))
				return err
			})
		}()
	}
	wg.Wait()

	b, _ := s.GetBudget(ctx, "b")
	if b.Spent.String() != "55.00" {
		t.Fatalf("spent = %s, want 55.00", b.Spent)
	}
}
