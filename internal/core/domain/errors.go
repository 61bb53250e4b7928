package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrUnprocessable = errors.New("unprocessable")
	ErrTemporary     = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Error is a semantic error whose message is safe to show to API clients.
type Error struct {
	Kind    error
	Message string
}

func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// ValidationError lists every field-level problem found in a request.
type ValidationError struct {
	Details []string
}

func NewValidationError(details ...string) *ValidationError {
	return &ValidationError{Details: details}
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return "payload inválido"
	}
	return "payload inválido: " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// PublicMessage returns the client-facing message carried by err, or "" when
// err only carries internal detail.
func PublicMessage(err error) string {
	var safe *Error
	if errors.As(err, &safe) {
		return safe.Message
	}
	return ""
}

// ValidationDetails returns the field messages when err is a validation failure.
func ValidationDetails(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Details
	}
	return nil
}
