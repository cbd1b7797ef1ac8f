package security

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParseAdminToken(t *testing.T) {
	now := time.Now()
	signed, err := IssueAdminToken("secret", AdminClaims{
		TenantID:    "100001",
		Username:    "alice",
		Permissions: []string{"GET /v0/admin/gen/tables"},
	}, time.Hour, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := ParseAdminToken("secret", signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.TenantID != "100001" || claims.Username != "alice" || claims.Subject != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if len(claims.Permissions) != 1 {
		t.Fatalf("expected one permission, got %v", claims.Permissions)
	}

	if _, errWrong := ParseAdminToken("other", signed); errWrong == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseAdminTokenRejectsExpiredAndTenantless(t *testing.T) {
	expired, err := IssueAdminToken("secret", AdminClaims{TenantID: "1"}, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, errParse := ParseAdminToken("secret", expired); errParse == nil {
		t.Fatalf("expected expired token to fail")
	}

	tenantless, err := IssueAdminToken("secret", AdminClaims{Username: "bob"}, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, errParse := ParseAdminToken("secret", tenantless); errParse == nil {
		t.Fatalf("expected tenantless token to fail")
	}

	if _, errEmpty := IssueAdminToken(" ", AdminClaims{}, time.Hour, time.Now()); !errors.Is(errEmpty, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", errEmpty)
	}
}
