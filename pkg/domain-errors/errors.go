// Package domainerrors provides coded errors for the service layer.
//
// Services wrap infrastructure sentinel errors (pkg/platform/sentinel) into
// coded errors at the service boundary; transports translate codes into HTTP
// statuses. Callers test for codes with HasCode rather than matching message
// strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeInvalidInput marks values rejected at a trust boundary (parsers,
	// request decoding).
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest marks structurally valid but semantically unusable
	// requests.
	CodeBadRequest Code = "bad_request"

	// CodeMalformedRecord marks a source record missing mandatory identity
	// fields. The record is skipped and reported; the run continues.
	CodeMalformedRecord Code = "malformed_record"

	// CodeNotFound means no entity or household matched the query.
	CodeNotFound Code = "not_found"

	// CodeAmbiguous means a name matched multiple unrelated entities and the
	// caller must disambiguate with an entity ID.
	CodeAmbiguous Code = "ambiguous_match"

	// CodePermissionDenied means the caller lacks entitlement. Never
	// downgraded to CodeNotFound; the denial itself is audited.
	CodePermissionDenied Code = "permission_denied"

	// CodePersistence means the audit vault could not durably record an
	// access. Fatal to the originating call.
	CodePersistence Code = "persistence_failure"

	// CodeChainIntegrity means audit chain verification detected tampering.
	// Fatal to the system's trust state; never auto-corrected.
	CodeChainIntegrity Code = "chain_integrity_violation"

	// CodeInvariantViolation marks a broken internal invariant (a bug).
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal is the catch-all for unexpected failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. It wraps an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with no cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err returns
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is delegates to errors.Is for sentinel comparisons through coded wrappers.
func Is(err, target error) bool { return errors.Is(err, target) }
