package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBudgetExists = errors.New("budget already exists for category and month")

	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidLimit     = errors.New("limit must be greater than zero and at most 99999999.99")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = errors.New("description too long (max 200 characters)")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidType      = errors.New("type must be income or expense")
	ErrInvalidMonth     = errors.New("month must be formatted as YYYY-MM")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidRange     = errors.New("start date is after end date")
	ErrEmptyPatch       = errors.New("no fields to update")
)

// ValidationError names the input field that failed validation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid wraps err as a ValidationError for field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
