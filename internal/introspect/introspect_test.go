package introspect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+filepath.Join(t.TempDir(), "introspect.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return conn
}

func TestSQLiteListColumns(t *testing.T) {
	conn := openSQLite(t)
	if err := conn.Exec(`CREATE TABLE sys_notice (
		id INTEGER PRIMARY KEY,
		notice_title VARCHAR(50) NOT NULL,
		notice_content TEXT,
		status CHAR(1) NOT NULL DEFAULT '0',
		create_time DATETIME
	)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}

	cols, err := New(conn, "").ListColumns(context.Background(), "sys_notice")
	if err != nil {
		t.Fatalf("list columns: %v", err)
	}
	if len(cols) != 5 {
		t.Fatalf("expected 5 columns, got %d", len(cols))
	}
	id := cols[0]
	if id.Name != "id" || !id.PrimaryKey || !id.AutoIncrement || id.Nullable {
		t.Fatalf("unexpected id column: %+v", id)
	}
	title := cols[1]
	if title.Name != "notice_title" || title.Nullable || title.Type != "VARCHAR(50)" || title.Position != 2 {
		t.Fatalf("unexpected title column: %+v", title)
	}
	status := cols[3]
	if status.Default == nil || *status.Default != "'0'" {
		t.Fatalf("expected status default, got %+v", status.Default)
	}
	if !cols[4].Nullable {
		t.Fatalf("expected create_time nullable")
	}

	missing, err := New(conn, "").ListColumns(context.Background(), "no_such_table")
	if err != nil {
		t.Fatalf("list missing: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no columns for unknown table, got %d", len(missing))
	}
}

func TestSQLiteListTablesFilter(t *testing.T) {
	conn := openSQLite(t)
	for _, stmt := range []string{
		"CREATE TABLE sys_notice (id INTEGER PRIMARY KEY)",
		"CREATE TABLE sys_post (id INTEGER PRIMARY KEY)",
		"CREATE TABLE gen_tables (id INTEGER PRIMARY KEY)",
		"CREATE TABLE biz_order (id INTEGER PRIMARY KEY)",
	} {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	tables, err := New(conn, "").ListTables(context.Background(), Filter{
		Name:            "SYS_",
		Exclude:         []string{"sys_post"},
		ExcludePrefixes: []string{"gen_"},
	})
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(tables) != 1 || tables[0].Name != "sys_notice" {
		t.Fatalf("unexpected tables: %+v", tables)
	}

	all, err := New(conn, "").ListTables(context.Background(), Filter{ExcludePrefixes: []string{"gen_"}})
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(all) != 3 || all[0].Name != "biz_order" {
		t.Fatalf("expected 3 ordered tables, got %+v", all)
	}
}

func TestMySQLListColumns(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()
	conn, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	if err != nil {
		t.Fatalf("open mysql: %v", err)
	}

	mock.ExpectQuery(`FROM information_schema\.COLUMNS`).
		WithArgs("sys_user").
		WillReturnRows(sqlmock.NewRows([]string{
			"name", "comment", "data_type", "max_length", "nullable", "default_value", "primary_key", "auto_increment", "position",
		}).
			AddRow("user_name", "login name", "varchar(30)", int64(30), false, nil, false, false, 2).
			AddRow("user_id", "user id", "bigint(20)", nil, false, nil, true, true, 1))

	cols, err := New(conn, "").ListColumns(context.Background(), "sys_user")
	if err != nil {
		t.Fatalf("list columns: %v", err)
	}
	if len(cols) != 2 || cols[0].Name != "user_id" || !cols[0].AutoIncrement {
		t.Fatalf("expected columns ordered by position, got %+v", cols)
	}
	if cols[1].MaxLength != 30 || cols[1].Comment != "login name" {
		t.Fatalf("unexpected user_name column: %+v", cols[1])
	}
	if errExpect := mock.ExpectationsWereMet(); errExpect != nil {
		t.Fatalf("expectations: %v", errExpect)
	}
}

func TestPostgresListTables(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()
	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}

	mock.ExpectQuery(`FROM pg_class c`).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"name", "comment"}).
			AddRow("gen_tables", "").
			AddRow("sys_dept", "departments"))

	tables, err := New(conn, "").ListTables(context.Background(), Filter{Comment: "DEPART"})
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if len(tables) != 1 || tables[0].Name != "sys_dept" {
		t.Fatalf("unexpected tables: %+v", tables)
	}
	if errExpect := mock.ExpectationsWereMet(); errExpect != nil {
		t.Fatalf("expectations: %v", errExpect)
	}
}

func TestQualifiedTableName(t *testing.T) {
	if got := qualifiedTableName("public", `we"ird`); got != `"public"."we""ird"` {
		t.Fatalf("unexpected quoting: %s", got)
	}
	if got := qualifiedTableName("", "t"); got != `"t"` {
		t.Fatalf("unexpected quoting: %s", got)
	}
}
