// Package domain contains the core types of the deployment gateway.
// All logic here is pure - no I/O, no side effects.
package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Kinds
// =============================================================================

// ErrorKind classifies a failure for HTTP mapping and logging.
type ErrorKind string

const (
	// KindUnauthorized covers a missing, expired, or mismatched deploy code.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindBadRequest covers malformed or out-of-range caller input.
	KindBadRequest ErrorKind = "bad_request"
	// KindNotFound covers lookups with no matching record.
	KindNotFound ErrorKind = "not_found"
	// KindUpstream covers failures of external collaborators.
	KindUpstream ErrorKind = "upstream_failure"
	// KindInternal covers anything unexpected.
	KindInternal ErrorKind = "internal"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrNoActiveCode is returned when no deploy code is currently issued.
	ErrNoActiveCode = errors.New("no active deploy code")

	// ErrCodeMismatch is returned when the candidate does not match the active code.
	ErrCodeMismatch = errors.New("deploy code mismatch")

	// ErrArchiveRequired is returned when a request arrives without an archive.
	ErrArchiveRequired = errors.New("archive required")

	// ErrDomainNotFound is returned when a redirect names an unknown domain.
	ErrDomainNotFound = errors.New("domain not found")
)

// =============================================================================
// Error Type
// =============================================================================

// Error wraps an underlying error with its taxonomy kind.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new classified error.
func E(kind ErrorKind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindInternal if no classification is present.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
