package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/categorize"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/storage/memory"
)

var fixedNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

type downStore struct{ *memory.Store }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, store ledger.Store, cfg Config) *Server {
	t.Helper()
	svc := ledger.NewService(store, ledger.WithClock(func() time.Time { return fixedNow }))
	srv := NewServer(cfg, svc)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d, body: %s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	for _, path := range []string{"/healthz", "/readyz"} {
		expectStatus(t, do(t, srv, http.MethodGet, path, ""), http.StatusOK)
	}

	down := newTestServer(t, downStore{memory.New()}, Config{})
	rr := do(t, down, http.MethodGet, "/readyz", "")
	expectStatus(t, rr, http.StatusServiceUnavailable)
	if body := decode[map[string]any](t, rr); body["status"] != "not_ready" {
		t.Fatalf("ready body = %v", body)
	}
}

func TestBudgetReconciliationOverHTTP(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	rr := do(t, srv, http.MethodPost, "/api/budgets", `{"category":"Food & Dining","limit":"200","month":"2024-01"}`)
	expectStatus(t, rr, http.StatusCreated)
	budget := decode[core.Budget](t, rr)
	if !budget.Spent.IsZero() {
		t.Fatalf("new budget spent = %s", budget.Spent)
	}

	rr = do(t, srv, http.MethodPost, "/api/transactions", `{"amount":"50","description":"Lunch","category":"Food & Dining","type":"expense"}`)
	expectStatus(t, rr, http.StatusCreated)
	first := decode[core.Transaction](t, rr)

	rr = do(t, srv, http.MethodPost, "/api/transactions", `{"amount":75,"description":"Dinner","category":"Food & Dining","type":"expense"}`)
	expectStatus(t, rr, http.StatusCreated)

	rr = do(t, srv, http.MethodGet, "/api/budgets?month=2024-01", "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"spent":"125.00"`) {
		t.Fatalf("expected spent 125.00, got %s", rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, "/api/analytics", "")
	expectStatus(t, rr, http.StatusOK)
	analytics := decode[core.SpendingAnalytics](t, rr)
	if len(analytics.BudgetProgress) != 1 || analytics.BudgetProgress[0].Percentage != 62.5 {
		t.Fatalf("budget progress = %+v", analytics.BudgetProgress)
	}
	if len(analytics.MonthlyTrend) != core.TrendMonths {
		t.Fatalf("trend has %d points", len(analytics.MonthlyTrend))
	}

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+first.ID, "")
	expectStatus(t, rr, http.StatusOK)
	if msg := decode[map[string]string](t, rr)["message"]; msg == "" {
		t.Fatal("delete should answer with a message")
	}

	rr = do(t, srv, http.MethodGet, "/budgets/"+budget.ID, "")
	expectStatus(t, rr, http.StatusOK)
	if got := decode[core.Budget](t, rr).Spent; !got.Equal(core.MustMoney("75")) {
		t.Fatalf("spent after delete = %s, want 75", got)
	}
}

func TestCreateTransactionAutoCategorizes(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	rr := do(t, srv, http.MethodPost, "/transactions", `{"amount":"4.50","description":"Starbucks coffee","type":"expense","date":"2024-01-14"}`)
	expectStatus(t, rr, http.StatusCreated)
	tx := decode[core.Transaction](t, rr)
	if tx.Category != "Food & Dining" || !tx.AutoCategorized {
		t.Fatalf("transaction = %+v", tx)
	}
	if want := time.Date(2024, 1, 14, 0, 0, 0, 0, time.UTC); !tx.Date.Equal(want) {
		t.Fatalf("date = %v, want %v", tx.Date, want)
	}
	if rr.Header().Get("Location") != "/transactions/"+tx.ID {
		t.Fatalf("Location = %q", rr.Header().Get("Location"))
	}
}

func TestCreateTransactionFormEncoded(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	req := httptest.NewRequest(http.MethodPost, "/transactions",
		strings.NewReader("amount=1200%2C50&description=Salary&category=Income&type=income"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	expectStatus(t, rr, http.StatusCreated)
	tx := decode[core.Transaction](t, rr)
	if !tx.Amount.Equal(core.MustMoney("1200.50")) || tx.Type != core.Income {
		t.Fatalf("transaction = %+v", tx)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})
	expectStatus(t, do(t, srv, http.MethodPost, "/budgets", `{"category":"Shopping","limit":"100","month":"2024-01"}`), http.StatusCreated)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		field  string
	}{
		{name: "missing amount", method: http.MethodPost, target: "/transactions", body: `{"description":"x","type":"expense"}`, status: 400, field: "amount"},
		{name: "negative amount", method: http.MethodPost, target: "/transactions", body: `{"amount":"-5","description":"x","type":"expense"}`, status: 400, field: "amount"},
		{name: "amount above maximum", method: http.MethodPost, target: "/transactions", body: `{"amount":"100000000000000000000","description":"x","type":"expense"}`, status: 400, field: "amount"},
		{name: "limit above maximum", method: http.MethodPost, target: "/budgets", body: `{"category":"Travel","limit":"92233720368547758.08"}`, status: 400, field: "limit"},
		{name: "bad type", method: http.MethodPost, target: "/transactions", body: `{"amount":"5","description":"x","type":"transfer"}`, status: 400, field: "type"},
		{name: "bad date", method: http.MethodPost, target: "/transactions", body: `{"amount":"5","description":"x","type":"income","date":"15/01/2024"}`, status: 400, field: "date"},
		{name: "empty description", method: http.MethodPost, target: "/transactions", body: `{"amount":"5","description":"  ","type":"income"}`, status: 400, field: "description"},
		{name: "malformed json", method: http.MethodPost, target: "/transactions", body: `{"amount":`, status: 400},
		{name: "array body", method: http.MethodPost, target: "/budgets", body: `[1,2]`, status: 400},
		{name: "zero limit", method: http.MethodPost, target: "/budgets", body: `{"category":"Travel","limit":"0"}`, status: 400, field: "limit"},
		{name: "bad month", method: http.MethodPost, target: "/budgets", body: `{"category":"Travel","limit":"10","month":"2024-13"}`, status: 400, field: "month"},
		{name: "duplicate budget", method: http.MethodPost, target: "/budgets", body: `{"category":"shopping","limit":"50","month":"2024-01"}`, status: 409},
		{name: "bad month filter", method: http.MethodGet, target: "/budgets?month=January", status: 400, field: "month"},
		{name: "bad date filter", method: http.MethodGet, target: "/transactions?startDate=yesterday", status: 400, field: "startDate"},
		{name: "inverted range", method: http.MethodGet, target: "/transactions?startDate=2024-02-01&endDate=2024-01-01", status: 400, field: "startDate"},
		{name: "empty patch", method: http.MethodPut, target: "/budgets/nope", body: `{}`, status: 400, field: "body"},
		{name: "unknown transaction", method: http.MethodGet, target: "/transactions/nope", status: 404},
		{name: "delete unknown transaction", method: http.MethodDelete, target: "/api/transactions/nope", status: 404},
		{name: "update unknown budget", method: http.MethodPut, target: "/budgets/nope", body: `{"limit":"10"}`, status: 404},
		{name: "delete unknown budget", method: http.MethodDelete, target: "/budgets/nope", status: 404},
		{name: "categorize without description", method: http.MethodPost, target: "/categorize", body: `{}`, status: 400, field: "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.target, tt.body)
			expectStatus(t, rr, tt.status)
			body := decode[map[string]string](t, rr)
			if body["error"] == "" {
				t.Fatalf("missing error message: %s", rr.Body.String())
			}
			if body["field"] != tt.field {
				t.Fatalf("field = %q, want %q", body["field"], tt.field)
			}
		})
	}
}

func TestUpdateEndpoints(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	b := decode[core.Budget](t, do(t, srv, http.MethodPost, "/budgets", `{"category":"Travel","limit":"300"}`))
	if b.Month != "2024-01" {
		t.Fatalf("budget month defaults to current, got %q", b.Month)
	}
	tx := decode[core.Transaction](t, do(t, srv, http.MethodPost, "/transactions", `{"amount":"120","description":"Train","category":"Travel","type":"expense"}`))

	rr := do(t, srv, http.MethodPut, "/budgets/"+b.ID, `{"limit":"500"}`)
	expectStatus(t, rr, http.StatusOK)
	updated := decode[core.Budget](t, rr)
	if !updated.Limit.Equal(core.MustMoney("500")) || !updated.Spent.Equal(core.MustMoney("120")) {
		t.Fatalf("updated budget = %+v", updated)
	}

	rr = do(t, srv, http.MethodPatch, "/api/transactions/"+tx.ID, `{"description":"Train to Milan","category":null}`)
	expectStatus(t, rr, http.StatusOK)
	got := decode[core.Transaction](t, rr)
	if got.Description != "Train to Milan" || got.Category != "Travel" || !got.CreatedAt.Equal(tx.CreatedAt) {
		t.Fatalf("patched transaction = %+v", got)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})
	for _, body := range []string{
		`{"amount":"10","description":"Groceries","category":"Food & Dining","type":"expense","date":"2024-01-10"}`,
		`{"amount":"20","description":"Taxi","category":"Transportation","type":"expense","date":"2024-01-20T15:00:00Z"}`,
		`{"amount":"30","description":"Bus pass","category":"Transportation","type":"expense","date":"2024-02-02"}`,
	} {
		expectStatus(t, do(t, srv, http.MethodPost, "/transactions", body), http.StatusCreated)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"Bus pass", "Taxi", "Groceries"}},
		{query: "?category=Transportation", want: []string{"Bus pass", "Taxi"}},
		{query: "?startDate=2024-01-01&endDate=2024-01-20", want: []string{"Taxi", "Groceries"}},
		{query: "?startDate=2024-01-01&endDate=2024-01-19", want: []string{"Groceries"}},
		{query: "?category=Food+%26+Dining&startDate=2030-01-01", want: []string{"Groceries"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, "/transactions"+tt.query, "")
			expectStatus(t, rr, http.StatusOK)
			txs := decode[[]core.Transaction](t, rr)
			var got []string
			for _, tx := range txs {
				got = append(got, tx.Description)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategoriesAndCategorize(t *testing.T) {
	catCache := cache.NewLRUCache[[]core.Category](1, time.Minute)
	svc := ledger.NewService(memory.New(),
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithCategoryCache(catCache))
	srv := NewServer(Config{CategoryCache: catCache}, svc)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rr := do(t, srv, http.MethodGet, "/api/categories", "")
	expectStatus(t, rr, http.StatusOK)
	if cats := decode[[]core.Category](t, rr); len(cats) != len(core.DefaultCategories()) {
		t.Fatalf("got %d categories", len(cats))
	}

	rr = do(t, srv, http.MethodPost, "/api/categorize", `{"description":"Uber ride to the airport"}`)
	expectStatus(t, rr, http.StatusOK)
	res := decode[categorize.Result](t, rr)
	if res.Category != "Transportation" || res.Confidence <= 0 || len(res.Suggestions) == 0 {
		t.Fatalf("categorize = %+v", res)
	}

	do(t, srv, http.MethodGet, "/categories", "")
	rr = do(t, srv, http.MethodGet, "/metrics", "")
	expectStatus(t, rr, http.StatusOK)
	for _, want := range []string{"category_cache_hits_total 1", "category_cache_entries 1", "http_requests_total"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestFinancialHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})
	do(t, srv, http.MethodPost, "/budgets", `{"category":"Shopping","limit":"100"}`)
	do(t, srv, http.MethodPost, "/transactions", `{"amount":"150","description":"Shoes","category":"Shopping","type":"expense"}`)

	rr := do(t, srv, http.MethodGet, "/financial-health", "")
	expectStatus(t, rr, http.StatusOK)
	h := decode[core.FinancialHealth](t, rr)
	if h.Score != 70 || !h.BudgetRemaining.Equal(core.MustMoney("-50")) || !h.MonthlySpending.Equal(core.MustMoney("150")) {
		t.Fatalf("health = %+v", h)
	}
}

func TestMiddlewareHeaders(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{})

	rr := do(t, srv, http.MethodGet, "/transactions", "")
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req_fixed")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-ID") != "req_fixed" {
		t.Error("client request id should be echoed")
	}

	if rr := do(t, srv, http.MethodPost, "/healthz", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /healthz = %d", rr.Code)
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	srv := newTestServer(t, memory.New(), Config{RateLimitPerMinute: 2})
	body := `{"amount":"1","description":"Snack","category":"Food & Dining","type":"expense"}`

	expectStatus(t, do(t, srv, http.MethodPost, "/transactions", body), http.StatusCreated)
	expectStatus(t, do(t, srv, http.MethodPost, "/transactions", body), http.StatusCreated)
	rr := do(t, srv, http.MethodPost, "/transactions", body)
	expectStatus(t, rr, http.StatusTooManyRequests)
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	expectStatus(t, do(t, srv, http.MethodGet, "/transactions", ""), http.StatusOK)
}
