package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both missing and not-owned resources so callers
	// cannot probe for the existence of other users' collections.
	ErrNotFound = errors.New("not found")

	// ErrBusy is returned when another recompute holds the collection lease.
	ErrBusy = errors.New("collection is busy")
)

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// Required returns a ValidationError when value is empty.
func Required(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field}
	}
	return nil
}
