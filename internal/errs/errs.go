// Package errs provides the structured error taxonomy shared by every
// boundary call in semcode: a uniform {kind, class, code, message,
// metadata} envelope, classified retriability, and secret-redacted
// metadata suitable for wire serialization.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error along the axis that determines whether it is
// surfaced to a caller unchanged (Expected), represents a bug or an
// unclassified failure (Unexpected), or is a cancellation that must
// propagate without reclassification (Cancelled).
type Kind string

const (
	KindExpected   Kind = "Expected"
	KindUnexpected Kind = "Unexpected"
	KindCancelled  Kind = "Cancelled"
)

// Class determines whether the retry policy (see Retry, RetryWithResult)
// is permitted to re-attempt the operation that produced the error.
type Class string

const (
	ClassRetriable    Class = "Retriable"
	ClassNonRetriable Class = "NonRetriable"
)

// Code is a (namespace, code) pair rendered on the wire as
// ERR_<NAMESPACE>_<CODE>, e.g. ERR_CORE_TIMEOUT.
type Code struct {
	Namespace string
	Code      string
}

func (c Code) String() string {
	return fmt.Sprintf("ERR_%s_%s", c.Namespace, c.Code)
}

var secretKeys = map[string]bool{
	"apikey": true, "api_key": true, "token": true, "password": true,
	"secret": true, "authorization": true, "connection": true, "dsn": true,
}

// Error is the envelope carried by every boundary call in semcode.
type Error struct {
	Kind     Kind
	Class    Class
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code.String(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches envelopes by code, so errors.Is(err, &Error{Code: ...}) works
// without comparing messages or metadata.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithMetadata returns e with the given key redacted if it names a secret,
// and chains for convenience at construction sites.
func (e *Error) WithMetadata(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	if secretKeys[lower(key)] {
		value = "***"
	}
	e.Metadata[key] = value
	return e
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// Expected constructs a caller-visible, NonRetriable error: invalid
// input, not found, schema mismatch, and similar boundary-rejection
// cases.
func Expected(namespace, code, message string) *Error {
	return &Error{Kind: KindExpected, Class: ClassNonRetriable, Code: Code{namespace, code}, Message: message}
}

// Unexpected constructs an error for failures not directly caused by
// caller input, classified Retriable or NonRetriable by the caller.
func Unexpected(namespace, code, message string, class Class, cause error) *Error {
	return &Error{Kind: KindUnexpected, Class: class, Code: Code{namespace, code}, Message: message, Cause: cause}
}

// Cancelled constructs a Cancelled error. Cancelled errors are never
// retried and never reclassified.
func Cancelled(message string) *Error {
	return &Error{Kind: KindCancelled, Class: ClassNonRetriable, Code: Code{"CORE", "CANCELLED"}, Message: message}
}

// IsCancelled reports whether err is, or wraps, a Cancelled envelope.
func IsCancelled(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindCancelled
	}
	return false
}

// IsRetriable reports whether err is, or wraps, a Retriable envelope.
func IsRetriable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind != KindCancelled && e.Class == ClassRetriable
	}
	return false
}
