package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message sets a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(messageBody{Message: msg})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type messageBody struct {
	Message string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// ValidationErrorResponse creates a 400 naming the offending field.
func ValidationErrorResponse(field, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusBadRequest).Body(errorBody{Error: message, Field: field})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// errorResponseFor maps a ledger error to its HTTP response. Unknown errors
// are logged and reported with a generic message.
func errorResponseFor(r *http.Request, err error, fallback string) *JSONResponseBuilder {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return ValidationErrorResponse(ve.Field, ve.Err.Error())
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, core.ErrBudgetExists):
		return ConflictError(core.ErrBudgetExists.Error())
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogError(r.Context(), fallback, err, log.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
	return InternalServerError(fallback)
}

func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	errorResponseFor(r, err, fallback).Write(w)
}
