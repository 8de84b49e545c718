// Package apperr defines the failure taxonomy shared by every layer.
//
// Services return *Error values tagged with a Kind; the HTTP error handler is
// the only place that turns a Kind into a status code. Operational kinds carry
// a message that is safe to show a client. PersistenceFailure and Internal are
// not operational: their message is replaced by a generic one at the boundary
// and the wrapped cause is logged instead.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind uint8

const (
	Internal Kind = iota
	ValidationFailed
	Unauthenticated
	Forbidden
	NotFound
	Conflict
	RateLimited
	PersistenceFailure
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	ValidationFailed:   "validation_failed",
	Unauthenticated:    "unauthenticated",
	Forbidden:          "forbidden",
	NotFound:           "not_found",
	Conflict:           "conflict",
	RateLimited:        "rate_limited",
	PersistenceFailure: "persistence_failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Status is the HTTP status code the boundary uses for k.
func (k Kind) Status() int {
	switch k {
	case ValidationFailed:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Operational reports whether failures of kind k are expected outcomes whose
// message may be shown to the client.
func (k Kind) Operational() bool {
	return k != Internal && k != PersistenceFailure
}

// FieldError is one field-level validation complaint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a tagged failure. Err, when set, is the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an untagged-cause error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap tags cause with kind. The cause stays reachable through errors.Is/As
// and is what gets logged; message is what a client may see.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: ValidationFailed, Message: message, Fields: fields}
}

func Unauthenticatedf(format string, args ...any) *Error {
	return &Error{Kind: Unauthenticated, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: Forbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

// Persistence tags a store failure. op names the operation for the logs.
func Persistence(cause error, op string) *Error {
	return &Error{Kind: PersistenceFailure, Message: op, Err: cause}
}

// As returns the outermost *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf reports the kind of err. Errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return Internal
}

// Is reports whether err is tagged with kind.
func Is(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}
