package datasource

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	"gorm.io/gorm"
)

func TestBuildDSN(t *testing.T) {
	pg, err := BuildDSN(models.DataSource{Type: "postgresql", Host: "db", Port: 5432, Username: "u", Password: "p@ss", Database: "app"})
	if err != nil {
		t.Fatalf("postgres dsn: %v", err)
	}
	if pg != "postgres://u:p%40ss@db:5432/app?sslmode=disable" {
		t.Fatalf("unexpected postgres dsn: %s", pg)
	}

	my, err := BuildDSN(models.DataSource{Type: "mysql", Host: "db", Port: 3306, Username: "u", Password: "p", Database: "app"})
	if err != nil {
		t.Fatalf("mysql dsn: %v", err)
	}
	if !strings.HasPrefix(my, "u:p@tcp(db:3306)/app?") || !strings.Contains(my, "parseTime=True") {
		t.Fatalf("unexpected mysql dsn: %s", my)
	}

	lite := BuildSQLiteDSN("data/app.db?mode=rwc")
	if !strings.HasPrefix(lite, "file:data/app.db?mode=rwc&_pragma=busy_timeout(5000)") {
		t.Fatalf("unexpected sqlite dsn: %s", lite)
	}

	if _, errType := BuildDSN(models.DataSource{Type: "oracle"}); !apperrors.IsValidation(errType) {
		t.Fatalf("expected validation error, got %v", errType)
	}
}

func TestValidate(t *testing.T) {
	ds := &models.DataSource{Name: " local ", Type: "SQLite3"}
	if err := Validate(ds); err != nil {
		t.Fatalf("validate sqlite: %v", err)
	}
	if ds.Name != "local" || ds.Type != TypeSQLite || ds.Path != defaultSQLitePath {
		t.Fatalf("unexpected normalization: %+v", ds)
	}
	if err := Validate(&models.DataSource{Name: "pg", Type: "postgres", Host: "h", Port: 0, Username: "u", Database: "d"}); !apperrors.IsValidation(err) {
		t.Fatalf("expected port validation error, got %v", err)
	}
	if err := Validate(&models.DataSource{Type: "postgres"}); !apperrors.IsValidation(err) {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

type fakeLookup struct {
	sources map[uint64]models.DataSource
}

func (f *fakeLookup) DataSourceByID(_ context.Context, scope tenant.Scope, id uint64) (*models.DataSource, error) {
	ds, ok := f.sources[id]
	if !ok || !scope.Owns(ds.TenantID) {
		return nil, apperrors.ErrNotFound
	}
	return &ds, nil
}

func TestManagerCachesPerDataSource(t *testing.T) {
	dir := t.TempDir()
	lookup := &fakeLookup{sources: map[uint64]models.DataSource{
		7: {ID: 7, TenantID: "a", Name: "lite", Type: TypeSQLite, Path: filepath.Join(dir, "ds.db")},
	}}
	primary := &gorm.DB{}
	manager := NewManager(primary, lookup)
	defer manager.Close()

	scope := tenant.Scope{TenantID: "a"}
	got, err := manager.Conn(context.Background(), scope, nil)
	if err != nil || got != primary {
		t.Fatalf("expected primary connection, got %v %v", got, err)
	}

	id := uint64(7)
	first, err := manager.Conn(context.Background(), scope, &id)
	if err != nil {
		t.Fatalf("open data source: %v", err)
	}
	second, err := manager.Conn(context.Background(), scope, &id)
	if err != nil {
		t.Fatalf("reuse data source: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached connection to be reused")
	}

	if _, errOther := manager.Conn(context.Background(), tenant.Scope{TenantID: "b"}, &id); errOther != apperrors.ErrNotFound {
		t.Fatalf("expected not found for other tenant, got %v", errOther)
	}

	manager.Evict(id)
	third, err := manager.Conn(context.Background(), scope, &id)
	if err != nil {
		t.Fatalf("reopen data source: %v", err)
	}
	if third == first {
		t.Fatalf("expected a fresh connection after evict")
	}

	if err := CheckConnection(context.Background(), lookup.sources[7]); err != nil {
		t.Fatalf("test connection: %v", err)
	}
}
