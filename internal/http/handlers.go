package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const readyTimeout = 5 * time.Second

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports ready only when the store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"store": "ok"}
	if err := s.svc.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}

	m := s.svc.Metrics().Snapshot()
	metric("http_requests_total", "counter", "Total number of HTTP requests", s.requests.Load())
	metric("transactions_created_total", "counter", "Transactions created", m.TransactionsCreated)
	metric("transactions_deleted_total", "counter", "Transactions deleted", m.TransactionsDeleted)
	metric("transactions_auto_categorized_total", "counter", "Transactions categorized by the oracle", m.AutoCategorized)
	metric("budgets_created_total", "counter", "Budgets created", m.BudgetsCreated)
	metric("reconciliations_total", "counter", "Budget spent adjustments applied", m.Reconciliations)
	metric("reconciliations_unmatched_total", "counter", "Expenses with no budget for the current month", m.UnmatchedExpenses)
	metric("reconciliation_failures_total", "counter", "Reconciliation errors", m.ReconcileFailures)
	metric("event_publish_failures_total", "counter", "Ledger events that could not be published", m.PublishFailures)

	if s.cache != nil {
		hits, misses := s.cache.Stats()
		metric("category_cache_hits_total", "counter", "Category cache hits", hits)
		metric("category_cache_misses_total", "counter", "Category cache misses", misses)
		metric("category_cache_entries", "gauge", "Category cache entries", s.cache.Len())
	}

	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", s.detector.GetMetrics().SuspiciousRequests)
	if s.limiter != nil {
		rl := s.limiter.GetMetrics()
		metric("rate_limit_hits_total", "counter", "Total rate limit hits", rl.TotalHits)
		metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rl.ClientCount)
	}
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}
