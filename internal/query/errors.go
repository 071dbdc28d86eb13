package query

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery matches every error caused by a malformed request, as
// opposed to a failure of the underlying storage.
var ErrInvalidQuery = errors.New("invalid query")

// ErrorKind classifies a rejected request.
type ErrorKind int

const (
	UnknownProperty ErrorKind = iota + 1
	InvalidValue
	UnsupportedOperation
	InvalidPagination
	InvalidSyntax
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownProperty:
		return "unknown property"
	case InvalidValue:
		return "invalid value"
	case UnsupportedOperation:
		return "unsupported operation"
	case InvalidPagination:
		return "invalid pagination"
	case InvalidSyntax:
		return "invalid syntax"
	}
	return "invalid query"
}

// Error describes why a filter, sort or pagination clause was rejected.
type Error struct {
	Kind     ErrorKind
	Property string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Property != "" {
		msg += fmt.Sprintf(" %q", e.Property)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrInvalidQuery }

func newError(kind ErrorKind, property, format string, args ...any) *Error {
	return &Error{Kind: kind, Property: property, Message: fmt.Sprintf(format, args...)}
}
