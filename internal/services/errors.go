package services

import (
	"errors"
	"fmt"

	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
)

// ErrorKind classifies every failure the services return to callers
type ErrorKind string

const (
	KindNotAuthenticated   ErrorKind = "NotAuthenticated"
	KindNotFound           ErrorKind = "NotFound"
	KindForbidden          ErrorKind = "Forbidden"
	KindInvalidTransition  ErrorKind = "InvalidTransition"
	KindWeightExceeded     ErrorKind = "WeightExceeded"
	KindQuotaExceeded      ErrorKind = "QuotaExceeded"
	KindInsufficientPoints ErrorKind = "InsufficientPoints"
	KindValidation         ErrorKind = "ValidationError"
	KindPersistence        ErrorKind = "PersistenceError"
)

// Error is the typed result error of the collection and ledger services
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Kind sentinels for errors.Is
var (
	ErrNotAuthenticated   = &Error{Kind: KindNotAuthenticated, Message: "not authenticated"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden          = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrWeightExceeded     = &Error{Kind: KindWeightExceeded, Message: "weight exceeded"}
	ErrQuotaExceeded      = &Error{Kind: KindQuotaExceeded, Message: "quota exceeded"}
	ErrInsufficientPoints = &Error{Kind: KindInsufficientPoints, Message: "insufficient points"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation error"}
	ErrPersistence        = &Error{Kind: KindPersistence, Message: "persistence error"}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// gatewayError wraps a repository failure on subject. A missing record
// becomes NotFound, everything else PersistenceError.
func gatewayError(subject string, err error) *Error {
	if errors.Is(err, repositories.ErrNotFound) {
		return &Error{Kind: KindNotFound, Message: subject + " not found", Err: err}
	}
	return &Error{Kind: KindPersistence, Message: "storage failure on " + subject, Err: err}
}

// KindOf returns the kind of a services error, or PersistenceError for any
// other non-nil error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindPersistence
}
