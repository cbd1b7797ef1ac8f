package tenant

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type scopedRow struct {
	ID       uint64 `gorm:"primaryKey"`
	TenantID string
}

func TestNewScope(t *testing.T) {
	if scope := NewScope(" 000000 ", "000000"); !scope.Super || scope.TenantID != "000000" {
		t.Fatalf("expected super scope, got %+v", scope)
	}
	if scope := NewScope("100001", "000000"); scope.Super {
		t.Fatalf("expected regular scope, got %+v", scope)
	}
	if scope := NewScope("", ""); scope.Super {
		t.Fatalf("empty super id must never match")
	}
}

func TestScopeOwnsAndApply(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:"+filepath.Join(t.TempDir(), "scope.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if errMigrate := conn.AutoMigrate(&scopedRow{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	rows := []scopedRow{{TenantID: "a"}, {TenantID: "a"}, {TenantID: "b"}}
	if errCreate := conn.Create(&rows).Error; errCreate != nil {
		t.Fatalf("seed: %v", errCreate)
	}

	var count int64
	if errCount := NewScope("a", "000000").Apply(conn.Model(&scopedRow{})).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows for tenant a, got %d", count)
	}
	if errCount := NewScope("000000", "000000").Apply(conn.Model(&scopedRow{})).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 3 {
		t.Fatalf("expected super scope to see 3 rows, got %d", count)
	}

	scope := NewScope("a", "000000")
	if scope.Owns("b") || !scope.Owns("a") {
		t.Fatalf("unexpected ownership for %+v", scope)
	}
}

func TestScopeContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no scope on empty context")
	}
	ctx := WithScope(context.Background(), Scope{TenantID: "a"})
	scope, ok := FromContext(ctx)
	if !ok || scope.TenantID != "a" {
		t.Fatalf("unexpected scope %+v", scope)
	}
}
