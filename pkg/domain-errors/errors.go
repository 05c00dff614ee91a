// Package domainerrors defines the code-carrying error type services return.
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into coded errors here; the HTTP layer maps codes to status codes.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for transport mapping and retry decisions.
type Code string

const (
	// CodeValidation marks malformed or missing input. Always recoverable by
	// the caller; carries field-level detail where available.
	CodeValidation Code = "validation"
	// CodeNotFound marks an absent vault or milestone.
	CodeNotFound Code = "not_found"
	// CodeForbidden marks a role or identity mismatch.
	CodeForbidden Code = "forbidden"
	// CodeConflict marks duplicate validation attempts and idempotency-key
	// fingerprint mismatches.
	CodeConflict Code = "conflict"
	// CodeIneligible marks a business-rule rejection, e.g. cancelling a
	// funded vault. An expected, recorded outcome rather than an anomaly.
	CodeIneligible Code = "ineligible"
	// CodeUnavailable marks a failed or timed-out settlement call. The vault
	// keeps its prior state and the operation is safe to retry.
	CodeUnavailable Code = "unavailable"
	// CodeInternal marks unexpected failures, surfaced opaquely.
	CodeInternal Code = "internal"
)

// Error is the domain error. Details carries machine-readable hints that let
// callers self-correct, e.g. the assigned verifier on a forbidden validation.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithDetail returns a copy of the error carrying an extra detail entry.
func (e *Error) WithDetail(key, value string) *Error {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
