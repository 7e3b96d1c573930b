// Package apperr defines the error taxonomy shared by the upstream clients,
// the dialog flows and the staff workflow.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// KindUnavailable is a network or connection failure talking to upstream.
	KindUnavailable Kind = "upstream_unavailable"
	// KindRejected is a non-success upstream answer.
	KindRejected Kind = "upstream_rejected"
	// KindSchema is a payload the normalizer could not recognise.
	KindSchema Kind = "schema_mismatch"
	// KindValidation is a local input validation failure.
	KindValidation Kind = "validation_failure"
	// KindLookup means no resolvable code was available for a detail fetch.
	KindLookup Kind = "lookup_failure"
)

// Sentinels usable with errors.Is.
var (
	ErrUnavailable = &Error{Kind: KindUnavailable}
	ErrRejected    = &Error{Kind: KindRejected}
	ErrSchema      = &Error{Kind: KindSchema}
	ErrValidation  = &Error{Kind: KindValidation}
	ErrLookup      = &Error{Kind: KindLookup}
)

// UnavailableStatus is the synthetic status reported for transport failures.
const UnavailableStatus = 500

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// Code feeds the err_code log attribute.
func (e *Error) Code() string { return string(e.Kind) }

// UserMessage is the text shown to the user.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindUnavailable:
		return "Сервис временно недоступен. Попробуйте позже."
	case KindRejected:
		if e.Message != "" {
			return e.Message
		}
		return fmt.Sprintf("операция не выполнена (код %d)", e.Status)
	}
	if e.Message != "" {
		return e.Message
	}
	return "Произошла ошибка"
}

// Unavailable wraps a transport failure.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindUnavailable, Op: op, Status: UnavailableStatus, Err: err}
}

// Rejected builds an upstream rejection.
func Rejected(op string, status int, message string) *Error {
	return &Error{Kind: KindRejected, Op: op, Status: status, Message: message}
}

// Schema builds a schema mismatch.
func Schema(op, message string) *Error {
	return &Error{Kind: KindSchema, Op: op, Message: message}
}

// Validation builds a local validation failure.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// Lookup builds a lookup failure.
func Lookup(op, message string) *Error {
	return &Error{Kind: KindLookup, Op: op, Message: message}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the user-facing text for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.UserMessage()
	}
	if err == nil {
		return ""
	}
	return "Произошла ошибка"
}
