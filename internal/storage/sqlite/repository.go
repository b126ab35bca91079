// Package sqlite implements ledger.Store on an embedded SQLite database.
// Money is stored as integer cents and timestamps as Unix nanoseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
	q  querier
	tx bool
}

var _ ledger.Store = (*Repository)(nil)

// NewRepository opens (creating if needed) the database at dbPath and runs
// migrations.
func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	dsn := "file:" + dbPath +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db, q: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil && !r.tx {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RunInTx runs fn inside a single SQL transaction. Nested calls reuse the
// outer transaction.
func (r *Repository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Store) error) error {
	if r.tx {
		return fn(ctx, r)
	}
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ctx, &Repository{db: r.db, q: sqlTx, tx: true}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toUnix(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

const transactionColumns = `id, amount_cents, description, category, type, occurred_at, auto_categorized, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                     core.Transaction
		cents, occurred, made int64
		typ                   string
		auto                  bool
	)
	if err := s.Scan(&t.ID, &cents, &t.Description, &t.Category, &typ, &occurred, &auto, &made); err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.MoneyFromCents(cents)
	t.Type = core.TransactionType(typ)
	t.Date = fromUnix(occurred)
	t.AutoCategorized = auto
	t.CreatedAt = fromUnix(made)
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if !f.Start.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, toUnix(f.Start))
	}
	if !f.End.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, toUnix(f.End))
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC, created_at DESC, id DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Amount.Cents(), t.Description, t.Category, string(t.Type),
		toUnix(t.Date), t.AutoCategorized, toUnix(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions
		    SET amount_cents = ?, description = ?, category = ?, type = ?, occurred_at = ?, auto_categorized = ?
		  WHERE id = ?`,
		t.Amount.Cents(), t.Description, t.Category, string(t.Type), toUnix(t.Date), t.AutoCategorized, t.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectRow(res, "transaction", t.ID)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectRow(res, "transaction", id)
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

const budgetColumns = `id, category, month, limit_cents, spent_cents, created_at`

func scanBudget(s scanner) (core.Budget, error) {
	var (
		b                  core.Budget
		month              string
		limit, spent, made int64
	)
	if err := s.Scan(&b.ID, &b.Category, &month, &limit, &spent, &made); err != nil {
		return core.Budget{}, err
	}
	b.Month = core.Month(month)
	b.Limit = core.MoneyFromCents(limit)
	b.Spent = core.MoneyFromCents(spent)
	b.CreatedAt = fromUnix(made)
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	query := "SELECT " + budgetColumns + " FROM budgets"
	var args []any
	if month != "" {
		query += " WHERE month = ?"
		args = append(args, string(month))
	}
	query += " ORDER BY month DESC, category ASC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	b, err := scanBudget(r.q.QueryRowContext(ctx, "SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *Repository) FindBudget(ctx context.Context, category string, month core.Month) (core.Budget, error) {
	b, err := scanBudget(r.q.QueryRowContext(ctx,
		"SELECT "+budgetColumns+" FROM budgets WHERE category = ? AND month = ?", category, string(month)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %s/%s: %w", category, month, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("find budget: %w", err)
	}
	return b, nil
}

func (r *Repository) InsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Category, string(b.Month), b.Limit.Cents(), b.Spent.FloorZero().Cents(), toUnix(b.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("budget %s/%s: %w", b.Category, b.Month, core.ErrBudgetExists)
		}
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE budgets SET category = ?, month = ?, limit_cents = ? WHERE id = ?`,
		b.Category, string(b.Month), b.Limit.Cents(), b.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("budget %s/%s: %w", b.Category, b.Month, core.ErrBudgetExists)
		}
		return fmt.Errorf("update budget: %w", err)
	}
	return expectRow(res, "budget", b.ID)
}

func (r *Repository) DeleteBudget(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return expectRow(res, "budget", id)
}

// AdjustBudgetSpent performs the clamp in a single UPDATE so concurrent
// reconciliations cannot lose increments.
func (r *Repository) AdjustBudgetSpent(ctx context.Context, category string, month core.Month, delta core.Money) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE budgets SET spent_cents = MAX(0, spent_cents + ?) WHERE category = ? AND month = ?`,
		delta.Cents(), category, string(month))
	if err != nil {
		return false, fmt.Errorf("adjust budget spent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, icon, color FROM categories ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) InsertCategories(ctx context.Context, cats []core.Category) error {
	for i, c := range cats {
		_, err := r.q.ExecContext(ctx,
			`INSERT INTO categories (id, name, icon, color, position) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Icon, c.Color, i)
		if err != nil {
			return fmt.Errorf("insert category %q: %w", c.Name, err)
		}
	}
	return nil
}
