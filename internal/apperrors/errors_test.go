package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsValidationThroughWrapping(t *testing.T) {
	err := fmt.Errorf("table store: create: %w", Validationf("column %s is empty", "title"))
	if !IsValidation(err) {
		t.Fatalf("expected wrapped validation error")
	}
	if err.Error() != "table store: create: validation failed: column title is empty" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if IsValidation(fmt.Errorf("setting x: %w", ErrNotFound)) {
		t.Fatalf("not found must not read as validation")
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrSchemaEmpty, ErrSnapshotCorrupt} {
		wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", sentinel))
		if !errors.Is(wrapped, sentinel) {
			t.Fatalf("errors.Is lost %v", sentinel)
		}
	}
}
