// Package apperr defines the error kinds shared by repositories, services and handlers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller is authenticated but does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrUnauthenticated indicates a missing, invalid or expired credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrConflict indicates the write would violate a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUpstream indicates a dependency (database, blob store, auth backend) is unavailable.
	ErrUpstream = errors.New("upstream failure")
)

// Validation returns an ErrValidation carrying a client-facing message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream wraps err as an ErrUpstream while keeping err in the chain.
func Upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// Message returns the client-facing text of err. When err starts with its kind,
// e.g. "validation failed: title is required", the text after the kind is
// returned. Otherwise only the kind is, so that wrapping context such as ids or
// operation names never reaches clients.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrForbidden, ErrConflict, ErrUnauthenticated} {
		if !errors.Is(err, kind) {
			continue
		}
		prefix := kind.Error() + ": "
		if strings.HasPrefix(msg, prefix) && len(msg) > len(prefix) {
			return msg[len(prefix):]
		}
		return kind.Error()
	}
	return msg
}
