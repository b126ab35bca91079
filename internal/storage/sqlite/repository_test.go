package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTransactionsRoundTripAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	txs := []core.Transaction{
		{ID: "a", Amount: core.MustMoney("10.50"), Description: "Coffee", Category: "Food & Dining", Type: core.Expense, Date: base, CreatedAt: base},
		{ID: "b", Amount: core.MustMoney("2500"), Description: "Salary", Category: "Income", Type: core.Income, Date: base.AddDate(0, 0, 5), CreatedAt: base},
		{ID: "c", Amount: core.MustMoney("3.20"), Description: "Bus", Category: "Transportation", Type: core.Expense, Date: base.AddDate(0, 0, -3), CreatedAt: base, AutoCategorized: true},
	}
	for _, tx := range txs {
		if err := repo.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert %s: %v", tx.ID, err)
		}
	}

	got, err := repo.ListTransactions(ctx, ledger.TransactionFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if !got[1].Amount.Equal(core.MustMoney("10.50")) || !got[1].Date.Equal(base) {
		t.Fatalf("round trip mismatch: %+v", got[1])
	}
	if !got[2].AutoCategorized {
		t.Fatalf("auto flag lost")
	}

	byCat, err := repo.ListTransactions(ctx, ledger.TransactionFilter{Category: "Transportation"})
	if err != nil || len(byCat) != 1 || byCat[0].ID != "c" {
		t.Fatalf("category filter: %+v err=%v", byCat, err)
	}

	// End is inclusive.
	ranged, err := repo.ListTransactions(ctx, ledger.TransactionFilter{Start: base.AddDate(0, 0, -3), End: base})
	if err != nil || len(ranged) != 2 {
		t.Fatalf("range filter: %+v err=%v", ranged, err)
	}
}

func TestTransactionNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get: want ErrNotFound, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("delete: want ErrNotFound, got %v", err)
	}
	err := repo.UpdateTransaction(ctx, core.Transaction{ID: "missing", Amount: core.MustMoney("1"), Type: core.Expense})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update: want ErrNotFound, got %v", err)
	}
}

func TestBudgetUniquenessAndClamp(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Now().UTC()

	b := core.Budget{ID: "b1", Category: "Food & Dining", Limit: core.MustMoney("200"), Month: "2024-01", CreatedAt: now}
	if err := repo.InsertBudget(ctx, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := b
	dup.ID = "b2"
	if err := repo.InsertBudget(ctx, dup); !errors.Is(err, core.ErrBudgetExists) {
		t.Fatalf("want ErrBudgetExists, got %v", err)
	}

	steps := []struct {
		delta string
		want  string
	}{
		{"50", "50.00"},
		{"75", "125.00"},
		{"-50", "75.00"},
		{"-100", "0.00"},
		{"12.34", "12.34"},
	}
	for _, s := range steps {
		delta, err := core.ParseMoney(s.delta)
		if err != nil {
			t.Fatalf("parse %s: %v", s.delta, err)
		}
		matched, err := repo.AdjustBudgetSpent(ctx, "Food & Dining", "2024-01", delta)
		if err != nil || !matched {
			t.Fatalf("adjust %s: matched=%v err=%v", s.delta, matched, err)
		}
		got, _ := repo.GetBudget(ctx, "b1")
		if got.Spent.String() != s.want {
			t.Fatalf("after %s: spent=%s want %s", s.delta, got.Spent, s.want)
		}
	}

	matched, err := repo.AdjustBudgetSpent(ctx, "Shopping", "2024-01", core.MustMoney("40"))
	if err != nil || matched {
		t.Fatalf("unmatched adjust: matched=%v err=%v", matched, err)
	}
}

func TestUpdateBudgetLeavesSpent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Now().UTC()

	for _, b := range []core.Budget{
		{ID: "b1", Category: "Shopping", Limit: core.MustMoney("100"), Month: "2024-02", CreatedAt: now},
		{ID: "b2", Category: "Utilities", Limit: core.MustMoney("80"), Month: "2024-02", CreatedAt: now},
	} {
		if err := repo.InsertBudget(ctx, b); err != nil {
			t.Fatalf("insert %s: %v", b.ID, err)
		}
	}
	if _, err := repo.AdjustBudgetSpent(ctx, "Shopping", "2024-02", core.MustMoney("30")); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	upd := core.Budget{ID: "b1", Category: "Shopping", Limit: core.MustMoney("150"), Month: "2024-02", Spent: core.Zero}
	if err := repo.UpdateBudget(ctx, upd); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := repo.GetBudget(ctx, "b1")
	if got.Spent.String() != "30.00" || got.Limit.String() != "150.00" {
		t.Fatalf("unexpected budget: %+v", got)
	}

	clash := core.Budget{ID: "b2", Category: "Shopping", Limit: core.MustMoney("80"), Month: "2024-02"}
	if err := repo.UpdateBudget(ctx, clash); !errors.Is(err, core.ErrBudgetExists) {
		t.Fatalf("want ErrBudgetExists, got %v", err)
	}

	list, err := repo.ListBudgets(ctx, "2024-02")
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %+v err=%v", list, err)
	}
	if found, err := repo.FindBudget(ctx, "Utilities", "2024-02"); err != nil || found.ID != "b2" {
		t.Fatalf("find: %+v err=%v", found, err)
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Now().UTC()

	boom := errors.New("boom")
	err := repo.RunInTx(ctx, func(ctx context.Context, tx ledger.Store) error {
		if err := tx.InsertTransaction(ctx, core.Transaction{
			ID: "x", Amount: core.MustMoney("5"), Description: "d", Category: "Other",
			Type: core.Expense, Date: now, CreatedAt: now,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if _, err := repo.GetTransaction(ctx, "x"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("insert survived rollback: %v", err)
	}
}

func TestCategoriesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	cats := core.DefaultCategories()
	for i := range cats {
		cats[i].ID = cats[i].Name
	}
	if err := repo.InsertCategories(ctx, cats); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := repo.ListCategories(ctx)
	if err != nil || len(got) != len(cats) {
		t.Fatalf("list: %v err=%v", got, err)
	}
	for i := range cats {
		if got[i] != cats[i] {
			t.Fatalf("position %d: got %+v want %+v", i, got[i], cats[i])
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fintrack.db")

	repo, err := NewRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	b := core.Budget{ID: "b1", Category: "Other", Limit: core.MustMoney("10"), Month: "2024-05", CreatedAt: time.Now()}
	if err := repo.InsertBudget(ctx, b); err != nil {
		t.Fatalf("insert: %v", err)
	}
	repo.Close()

	repo, err = NewRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if _, err := repo.GetBudget(ctx, "b1"); err != nil {
		t.Fatalf("budget lost after reopen: %v", err)
	}
}
