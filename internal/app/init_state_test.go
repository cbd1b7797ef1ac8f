package app

import (
	"path/filepath"
	"testing"

	"github.com/router-for-me/CodegenAdmin/internal/db"
)

func TestSchemaReady(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "codegen-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer closeDB(conn)

	ready, err := SchemaReady(conn)
	if err != nil {
		t.Fatalf("SchemaReady: %v", err)
	}
	if ready {
		t.Fatalf("expected ready=false before migrate")
	}

	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	ready, err = SchemaReady(conn)
	if err != nil {
		t.Fatalf("SchemaReady after migrate: %v", err)
	}
	if !ready {
		t.Fatalf("expected ready=true after migrate")
	}

	if _, errNil := SchemaReady(nil); errNil == nil {
		t.Fatalf("expected error for nil db")
	}
}
