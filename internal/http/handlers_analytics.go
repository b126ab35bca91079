package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to fetch categories")
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	desc := p.Get("description")
	if desc == "" {
		writeError(w, r, core.Invalid("description", errors.New("is required")), "")
		return
	}
	NewJSONResponse().Body(s.svc.Oracle().Analyze(desc)).Write(w)
}

func (s *Server) handleFinancialHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.svc.FinancialHealth(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to fetch financial health data")
		return
	}
	NewJSONResponse().Body(health).Write(w)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.svc.SpendingAnalytics(r.Context())
	if err != nil {
		writeError(w, r, err, "failed to fetch analytics data")
		return
	}
	NewJSONResponse().Body(analytics).Write(w)
}
