package tracker

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store implementations when a record does not
// exist. The service layer folds it into Forbidden for homes (existence must
// not leak to non-owners) and InvalidInput for nested records.
var ErrNotFound = errors.New("not found")

// Kind classifies a service error for the transport layer.
type Kind string

const (
	KindInvalidInput Kind = "invalid_input" // malformed or missing fields
	KindForbidden    Kind = "forbidden"     // home missing or not owned by the principal
	KindUnavailable  Kind = "unavailable"   // store unreachable or timed out; safe to retry
)

// Error is the stable error shape every Tracker operation returns.
// Field names the offending input field for InvalidInput errors.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf extracts the Kind from err, or "" when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func invalidf(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Message: fmt.Sprintf(format, args...)}
}

func forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: "not authorized"}
}

func unavailable(err error) *Error {
	return &Error{Kind: KindUnavailable, Message: "store unavailable", cause: err}
}
