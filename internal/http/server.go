package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
)

// CacheStats is implemented by cache.LRUCache.
type CacheStats interface {
	Stats() (hits, misses int64)
	Len() int
}

// Config configures the API server.
type Config struct {
	Addr string
	// RateLimitPerMinute throttles mutating requests per client IP. Zero
	// disables the limiter.
	RateLimitPerMinute int
	Logger             *log.Logger
	// CategoryCache is reported on /metrics when set.
	CategoryCache CacheStats
}

type Server struct {
	http.Server
	svc      *ledger.Service
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	cache    CacheStats

	started      time.Time
	requests     atomic.Int64
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc *ledger.Service) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		svc:      svc,
		logger:   logger.WithComponent(log.ComponentHTTP),
		detector: security.NewDetector(),
		cache:    cfg.CategoryCache,
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	middlewares := []func(http.Handler) http.Handler{
		log.Middleware(s.logger),
		s.trace,
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		s.detector.Middleware,
	}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Methods:           []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		})
		middlewares = append(middlewares, s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited))
	}

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           chain(mux, middlewares...),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// routes registers every endpoint at the root and again under /api.
func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc("GET "+prefix+"/transactions", s.handleListTransactions)
		mux.HandleFunc("POST "+prefix+"/transactions", s.handleCreateTransaction)
		mux.HandleFunc("GET "+prefix+"/transactions/{id}", s.handleGetTransaction)
		mux.HandleFunc("PUT "+prefix+"/transactions/{id}", s.handleUpdateTransaction)
		mux.HandleFunc("PATCH "+prefix+"/transactions/{id}", s.handleUpdateTransaction)
		mux.HandleFunc("DELETE "+prefix+"/transactions/{id}", s.handleDeleteTransaction)

		mux.HandleFunc("GET "+prefix+"/budgets", s.handleListBudgets)
		mux.HandleFunc("POST "+prefix+"/budgets", s.handleCreateBudget)
		mux.HandleFunc("GET "+prefix+"/budgets/{id}", s.handleGetBudget)
		mux.HandleFunc("PUT "+prefix+"/budgets/{id}", s.handleUpdateBudget)
		mux.HandleFunc("PATCH "+prefix+"/budgets/{id}", s.handleUpdateBudget)
		mux.HandleFunc("DELETE "+prefix+"/budgets/{id}", s.handleDeleteBudget)

		mux.HandleFunc("GET "+prefix+"/categories", s.handleListCategories)
		mux.HandleFunc("POST "+prefix+"/categorize", s.handleCategorize)

		mux.HandleFunc("GET "+prefix+"/financial-health", s.handleFinancialHealth)
		mux.HandleFunc("GET "+prefix+"/analytics", s.handleAnalytics)
	}
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
