// Package errors defines the error values shared by the storefront layers.
package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrNotFound     = stderrors.New("not found")
	ErrEmptyCart    = stderrors.New("cart is empty")
	ErrForbidden    = stderrors.New("forbidden")
	ErrUnauthorized = stderrors.New("unauthorized")
	ErrConflict     = stderrors.New("conflict")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string            `json:"field"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// ConflictError is returned when current state forbids the operation,
// e.g. insufficient stock or an illegal status transition.
type ConflictError struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// WithDetail attaches a key to the conflict details.
func (e *ConflictError) WithDetail(key string, value interface{}) *ConflictError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

func New(text string) error {
	return stderrors.New(text)
}

func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
