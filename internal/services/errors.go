// Package services holds the business rules of VidTube: identity, relation
// toggles, composed read views and ownership-checked content changes. It
// talks to storage only through the repositories contracts.
package services

import (
	"errors"
	"fmt"

	"github.com/vidtube/backend/internal/repositories"
)

// Error categories. Handlers map them to status codes with errors.Is.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrUpstream           = errors.New("upstream failure")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError names the missing resource ("Video not found").
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// MessageError carries a user-facing message for a category. Cause, when
// set, is for logs only.
type MessageError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *MessageError) Error() string { return e.Message }

func (e *MessageError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func forbidden(message string) error {
	return &MessageError{Kind: ErrForbidden, Message: message}
}

func conflict(message string) error {
	return &MessageError{Kind: ErrConflict, Message: message}
}

func unauthorized(message string) error {
	return &MessageError{Kind: ErrUnauthorized, Message: message}
}

func upstream(message string, cause error) error {
	return &MessageError{Kind: ErrUpstream, Message: message, Cause: cause}
}

// lookup converts a repository miss into a named NotFound and wraps anything
// else with op.
func lookup(err error, resource, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound(resource)
	}
	return fmt.Errorf("%s: %w", op, err)
}
