// Package apperr defines the application's error categories and their HTTP
// status codes. Errors are tagged where they originate and mapped to a status
// exactly once, at the transport boundary.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/pharmacy/internal/model"
	"github.com/alfredjeanlab/pharmacy/internal/query"
	"github.com/alfredjeanlab/pharmacy/internal/store"
)

// Kind is an error category.
type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthorized
	Forbidden
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not found"
	}
	return "internal"
}

// Error is an error tagged with a Kind. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Invalid(format string, args ...any) *Error { return New(Validation, format, args...) }
func Missing(format string, args ...any) *Error { return New(NotFound, format, args...) }
func Denied(format string, args ...any) *Error  { return New(Forbidden, format, args...) }

func Unauthenticated(format string, args ...any) *Error {
	return New(Unauthorized, format, args...)
}

// Postgres error codes that indicate a client mistake rather than a fault.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// KindOf classifies err. Unrecognised errors are Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, query.ErrInvalidQuery),
		errors.Is(err, store.ErrInsufficientStock), errors.Is(err, store.ErrDuplicate):
		return Validation
	case errors.Is(err, store.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return NotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation, pgCheckViolation:
			return Validation
		}
	}
	return Internal
}

// StatusCode maps err to an HTTP status.
func StatusCode(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text to send to clients for err. Internal errors are
// reduced to a generic message.
func PublicMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != Internal && ae.Message != "" {
		return ae.Message
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pgUniqueViolation:
			return fmt.Sprintf("duplicate value violates %s", pqErr.Constraint)
		case pgForeignKeyViolation:
			return fmt.Sprintf("reference violates %s", pqErr.Constraint)
		case pgCheckViolation:
			return fmt.Sprintf("value violates %s", pqErr.Constraint)
		}
	}
	switch KindOf(err) {
	case Internal:
		return "internal server error"
	case NotFound:
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
			return "not found"
		}
	}
	return err.Error()
}
