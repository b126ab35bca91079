package http

import (
	"net/http"

	"fintrack/internal/core"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := ParseTransactionQuery(r.URL.Query(), s.svc.Location())
	if err != nil {
		writeError(w, r, err, "failed to fetch transactions")
		return
	}
	txs, err := s.svc.ListTransactions(r.Context(), q)
	if err != nil {
		writeError(w, r, err, "failed to fetch transactions")
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "failed to fetch transaction")
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	in, err := ParseNewTransaction(p, s.svc.Location())
	if err != nil {
		writeError(w, r, err, "invalid transaction data")
		return
	}
	t, err := s.svc.CreateTransaction(r.Context(), in)
	if err != nil {
		writeError(w, r, err, "failed to create transaction")
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/transactions/"+t.ID).
		Body(t).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	patch, err := ParseTransactionPatch(p, s.svc.Location())
	if err != nil {
		writeError(w, r, err, "invalid transaction data")
		return
	}
	t, err := s.svc.UpdateTransaction(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err, "failed to update transaction")
		return
	}
	NewJSONResponse().Body(t).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "failed to delete transaction")
		return
	}
	NewJSONResponse().Message("Transaction deleted successfully").Write(w)
}
