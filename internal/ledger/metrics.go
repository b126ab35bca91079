package ledger

import "sync/atomic"

// Metrics counts ledger activity for the /metrics endpoint.
type Metrics struct {
	transactionsCreated  atomic.Int64
	transactionsDeleted  atomic.Int64
	budgetsCreated       atomic.Int64
	reconciliations      atomic.Int64
	unmatchedExpenses    atomic.Int64
	reconcileFailures    atomic.Int64
	publishFailures      atomic.Int64
	autoCategorizedTotal atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	TransactionsCreated int64
	TransactionsDeleted int64
	BudgetsCreated      int64
	Reconciliations     int64
	UnmatchedExpenses   int64
	ReconcileFailures   int64
	PublishFailures     int64
	AutoCategorized     int64
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TransactionsCreated: m.transactionsCreated.Load(),
		TransactionsDeleted: m.transactionsDeleted.Load(),
		BudgetsCreated:      m.budgetsCreated.Load(),
		Reconciliations:     m.reconciliations.Load(),
		UnmatchedExpenses:   m.unmatchedExpenses.Load(),
		ReconcileFailures:   m.reconcileFailures.Load(),
		PublishFailures:     m.publishFailures.Load(),
		AutoCategorized:     m.autoCategorizedTotal.Load(),
	}
}
