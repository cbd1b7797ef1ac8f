package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("table 1: %w", apperrors.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("table x: %w", apperrors.ErrConflict), http.StatusConflict, CodeConflict},
		{apperrors.Validationf("bad input"), http.StatusBadRequest, CodeValidation},
		{fmt.Errorf("sync: %w", apperrors.ErrSchemaEmpty), http.StatusUnprocessableEntity, CodeSchemaEmpty},
		{fmt.Errorf("history 3: %w", apperrors.ErrSnapshotCorrupt), http.StatusUnprocessableEntity, CodeCorrupt},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := ErrorStatus(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("ErrorStatus(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}

func TestParseOptionalID(t *testing.T) {
	if id, err := parseOptionalID(""); err != nil || id != nil {
		t.Fatalf("empty = %v %v", id, err)
	}
	if id, err := parseOptionalID(" 0 "); err != nil || id != nil {
		t.Fatalf("zero = %v %v", id, err)
	}
	if id, err := parseOptionalID("42"); err != nil || id == nil || *id != 42 {
		t.Fatalf("42 = %v %v", id, err)
	}
	if _, err := parseOptionalID("x"); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
