// Package http serves the ledger as a JSON REST API.
//
// This file implements utilities for parsing and validating request data.
// Bodies may be JSON or form-encoded; every value is read as a string and
// converted with the core parsers so amounts never pass through float64.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

var errMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most 1 MiB of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		return p.err
	}
	if trimmed[0] == '[' {
		p.err = fmt.Errorf("%w: expected an object", errMalformedBody)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p.err
}

// Has reports whether key is present with a non-null value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Get returns a trimmed string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

// parseDate accepts RFC 3339 timestamps or bare YYYY-MM-DD dates in loc.
// With endOfDay a bare date stands for its last nanosecond.
func parseDate(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, core.ErrInvalidDate
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func parseTransactionFields(p *RequestBodyParser, loc *time.Location) (core.TransactionPatch, error) {
	var patch core.TransactionPatch
	if p.Has("amount") {
		amount, err := core.ParseAmount(p.Get("amount"))
		if err != nil {
			return patch, core.Invalid("amount", err)
		}
		patch.Amount = &amount
	}
	if p.Has("description") {
		desc := p.Get("description")
		patch.Description = &desc
	}
	if p.Has("category") {
		cat := p.Get("category")
		patch.Category = &cat
	}
	if p.Has("type") {
		typ, err := core.ParseTransactionType(p.Get("type"))
		if err != nil {
			return patch, core.Invalid("type", err)
		}
		patch.Type = &typ
	}
	if p.Has("date") {
		date, err := parseDate(p.Get("date"), loc, false)
		if err != nil {
			return patch, core.Invalid("date", err)
		}
		patch.Date = &date
	}
	return patch, nil
}

// ParseNewTransaction reads a create body. Amount, description and type are
// required; an empty category is filled in by the categorization oracle.
func ParseNewTransaction(p *RequestBodyParser, loc *time.Location) (ledger.NewTransaction, error) {
	for _, field := range []string{"amount", "description", "type"} {
		if !p.Has(field) {
			return ledger.NewTransaction{}, core.Invalid(field, errors.New("is required"))
		}
	}
	fields, err := parseTransactionFields(p, loc)
	if err != nil {
		return ledger.NewTransaction{}, err
	}

	in := ledger.NewTransaction{
		Amount:      *fields.Amount,
		Description: *fields.Description,
		Type:        *fields.Type,
		Date:        fields.Date,
	}
	if fields.Category != nil {
		in.Category = *fields.Category
	}
	return in, nil
}

// ParseTransactionPatch reads an update body. Absent or null fields are
// left unchanged.
func ParseTransactionPatch(p *RequestBodyParser, loc *time.Location) (core.TransactionPatch, error) {
	return parseTransactionFields(p, loc)
}

func parseBudgetFields(p *RequestBodyParser) (core.BudgetPatch, error) {
	var patch core.BudgetPatch
	if p.Has("category") {
		cat := p.Get("category")
		patch.Category = &cat
	}
	if p.Has("limit") {
		limit, err := core.ParseAmount(p.Get("limit"))
		if err != nil {
			return patch, core.Invalid("limit", core.ErrInvalidLimit)
		}
		patch.Limit = &limit
	}
	if p.Has("month") {
		month, err := core.ParseMonth(p.Get("month"))
		if err != nil {
			return patch, core.Invalid("month", err)
		}
		patch.Month = &month
	}
	return patch, nil
}

// ParseNewBudget reads a create body. Month defaults to current.
func ParseNewBudget(p *RequestBodyParser, current core.Month) (ledger.NewBudget, error) {
	for _, field := range []string{"category", "limit"} {
		if !p.Has(field) {
			return ledger.NewBudget{}, core.Invalid(field, errors.New("is required"))
		}
	}
	fields, err := parseBudgetFields(p)
	if err != nil {
		return ledger.NewBudget{}, err
	}
	in := ledger.NewBudget{Category: *fields.Category, Limit: *fields.Limit, Month: current}
	if fields.Month != nil {
		in.Month = *fields.Month
	}
	return in, nil
}

func ParseBudgetPatch(p *RequestBodyParser) (core.BudgetPatch, error) {
	return parseBudgetFields(p)
}

// ParseTransactionQuery reads the category, startDate and endDate filters.
func ParseTransactionQuery(query url.Values, loc *time.Location) (ledger.TransactionQuery, error) {
	q := ledger.TransactionQuery{Category: sanitizeInput(query.Get("category"))}
	if v := strings.TrimSpace(query.Get("startDate")); v != "" {
		start, err := parseDate(v, loc, false)
		if err != nil {
			return q, core.Invalid("startDate", err)
		}
		q.Start = &start
	}
	if v := strings.TrimSpace(query.Get("endDate")); v != "" {
		end, err := parseDate(v, loc, true)
		if err != nil {
			return q, core.Invalid("endDate", err)
		}
		q.End = &end
	}
	return q, nil
}
