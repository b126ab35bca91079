package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/budgets/1").
		Body(map[string]string{"id": "1"}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d", rr.Code)
	}
	if rr.Header().Get("Location") != "/budgets/1" {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["id"] != "1" {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 || rr.Header().Get("Content-Type") != "" {
		t.Fatalf("unexpected response: %d %q", rr.Code, rr.Body.String())
	}
}

func TestErrorResponseFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/budgets", nil)
	tests := []struct {
		name   string
		err    error
		status int
		field  string
		msg    string
	}{
		{name: "validation", err: core.Invalid("limit", core.ErrInvalidLimit), status: 400, field: "limit", msg: core.ErrInvalidLimit.Error()},
		{name: "not found", err: fmt.Errorf("get budget x: %w", core.ErrNotFound), status: 404},
		{name: "conflict", err: fmt.Errorf("insert budget: %w", core.ErrBudgetExists), status: 409, msg: core.ErrBudgetExists.Error()},
		{name: "internal", err: errors.New("disk on fire"), status: 500, msg: "failed to fetch budgets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			errorResponseFor(req, tt.err, "failed to fetch budgets").Write(rr)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var body errorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Field != tt.field {
				t.Errorf("field = %q, want %q", body.Field, tt.field)
			}
			if tt.msg != "" && body.Error != tt.msg {
				t.Errorf("error = %q, want %q", body.Error, tt.msg)
			}
		})
	}
}
