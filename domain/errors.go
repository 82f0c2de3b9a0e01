package domain

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated is returned by mutations attempted without a signed-in
// user. Callers treat it as a no-op signal, not a failure.
var ErrNotAuthenticated = errors.New("no authenticated user")

// ErrNotFound is returned when a lookup by id or title has no match in the
// local mirror.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed input before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
