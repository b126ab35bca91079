package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	month := core.Month(strings.TrimSpace(r.URL.Query().Get("month")))
	budgets, err := s.svc.ListBudgets(r.Context(), month)
	if err != nil {
		writeError(w, r, err, "failed to fetch budgets")
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	NewJSONResponse().Body(budgets).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.GetBudget(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "failed to fetch budget")
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in, err := ParseNewBudget(p, s.svc.CurrentMonth())
	if err != nil {
		writeError(w, r, err, "invalid budget data")
		return
	}
	b, err := s.svc.CreateBudget(r.Context(), in)
	if err != nil {
		writeError(w, r, err, "failed to create budget")
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/budgets/"+b.ID).
		Body(b).
		Write(w)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	patch, err := ParseBudgetPatch(p)
	if err != nil {
		writeError(w, r, err, "invalid budget data")
		return
	}
	b, err := s.svc.UpdateBudget(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err, "failed to update budget")
		return
	}
	NewJSONResponse().Body(b).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "failed to delete budget")
		return
	}
	NewJSONResponse().Message("Budget deleted successfully").Write(w)
}
