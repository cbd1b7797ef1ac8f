// Package apperrors holds the error kinds the admin API maps onto HTTP status
// codes. Callers wrap them with fmt.Errorf and test with errors.Is.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing or foreign-tenant record (404).
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate import, name or key (409).
	ErrConflict = errors.New("conflict")
	// ErrSchemaEmpty marks a sync against a table whose live schema has no columns (422).
	ErrSchemaEmpty = errors.New("live schema returned no columns")
	// ErrSnapshotCorrupt marks a stored history snapshot that cannot be decoded (422).
	ErrSnapshotCorrupt = errors.New("history snapshot is unreadable")
)

// ValidationError reports input that must be rejected before anything is persisted.
type ValidationError struct {
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// Validationf builds a ValidationError with a formatted reason.
func Validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
