// Package introspect reads table and column metadata from a live database.
package introspect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/router-for-me/CodegenAdmin/internal/db"
	"gorm.io/gorm"
)

// Column is the metadata of one column, as reported by the database.
type Column struct {
	Name          string  `json:"name"`
	Comment       string  `json:"comment"`
	Type          string  `json:"type"`
	MaxLength     int64   `json:"max_length"`
	Nullable      bool    `json:"nullable"`
	Default       *string `json:"default,omitempty"`
	PrimaryKey    bool    `json:"primary_key"`
	AutoIncrement bool    `json:"auto_increment"`
	Position      int     `json:"position"`
}

// Table is one importable table.
type Table struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

// Filter narrows ListTables results.
type Filter struct {
	Name            string   // Case-insensitive substring of the table name.
	Comment         string   // Case-insensitive substring of the table comment.
	Exclude         []string // Exact names to leave out, such as already imported tables.
	ExcludePrefixes []string // Name prefixes to leave out.
}

// Introspector lists tables and columns of one database.
type Introspector interface {
	ListColumns(ctx context.Context, table string) ([]Column, error)
	ListTables(ctx context.Context, filter Filter) ([]Table, error)
}

// GormIntrospector implements Introspector over a gorm connection.
type GormIntrospector struct {
	conn   *gorm.DB
	schema string
}

// New returns an introspector for conn. schema only matters for PostgreSQL and defaults to public.
func New(conn *gorm.DB, schema string) *GormIntrospector {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	return &GormIntrospector{conn: conn, schema: schema}
}

// columnRow is the common scan target of the dialect column queries.
type columnRow struct {
	Name          string  `gorm:"column:name"`
	Comment       *string `gorm:"column:comment"`
	DataType      string  `gorm:"column:data_type"`
	MaxLength     *int64  `gorm:"column:max_length"`
	Nullable      bool    `gorm:"column:nullable"`
	DefaultValue  *string `gorm:"column:default_value"`
	PrimaryKey    bool    `gorm:"column:primary_key"`
	AutoIncrement bool    `gorm:"column:auto_increment"`
	Position      int     `gorm:"column:position"`
}

func (r columnRow) column() Column {
	col := Column{
		Name:          r.Name,
		Type:          strings.TrimSpace(r.DataType),
		Nullable:      r.Nullable,
		Default:       r.DefaultValue,
		PrimaryKey:    r.PrimaryKey,
		AutoIncrement: r.AutoIncrement,
		Position:      r.Position,
	}
	if r.Comment != nil {
		col.Comment = strings.TrimSpace(*r.Comment)
	}
	if r.MaxLength != nil {
		col.MaxLength = *r.MaxLength
	}
	return col
}

// ListColumns returns the columns of table in native position order.
// An unknown table yields an empty slice and no error.
func (g *GormIntrospector) ListColumns(ctx context.Context, table string) ([]Column, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, fmt.Errorf("introspect: empty table name")
	}
	var (
		rows []columnRow
		err  error
	)
	switch db.DialectName(g.conn) {
	case db.DialectPostgres:
		rows, err = g.postgresColumns(ctx, table)
	case db.DialectMySQL:
		rows, err = g.mysqlColumns(ctx, table)
	case db.DialectSQLite:
		rows, err = g.sqliteColumns(ctx, table)
	default:
		return nil, fmt.Errorf("introspect: unsupported dialect %q", db.DialectName(g.conn))
	}
	if err != nil {
		return nil, fmt.Errorf("introspect: list columns of %s: %w", table, err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
	out := make([]Column, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.column())
	}
	return out, nil
}

// ListTables returns the tables matching filter, ordered by name.
func (g *GormIntrospector) ListTables(ctx context.Context, filter Filter) ([]Table, error) {
	var (
		tables []Table
		err    error
	)
	switch db.DialectName(g.conn) {
	case db.DialectPostgres:
		err = g.conn.WithContext(ctx).Raw(`
			SELECT c.relname AS name, COALESCE(obj_description(c.oid, 'pg_class'), '') AS comment
			FROM pg_class c
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE c.relkind IN ('r', 'p') AND n.nspname = ?
			ORDER BY c.relname
		`, g.schema).Scan(&tables).Error
	case db.DialectMySQL:
		err = g.conn.WithContext(ctx).Raw(`
			SELECT TABLE_NAME AS name, TABLE_COMMENT AS comment
			FROM information_schema.TABLES
			WHERE TABLE_SCHEMA = (SELECT DATABASE()) AND TABLE_TYPE = 'BASE TABLE'
			ORDER BY TABLE_NAME
		`).Scan(&tables).Error
	case db.DialectSQLite:
		err = g.conn.WithContext(ctx).Raw(`
			SELECT name, '' AS comment
			FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name
		`).Scan(&tables).Error
	default:
		return nil, fmt.Errorf("introspect: unsupported dialect %q", db.DialectName(g.conn))
	}
	if err != nil {
		return nil, fmt.Errorf("introspect: list tables: %w", err)
	}
	return filter.apply(tables), nil
}

func (f Filter) apply(tables []Table) []Table {
	name := strings.ToLower(strings.TrimSpace(f.Name))
	comment := strings.ToLower(strings.TrimSpace(f.Comment))
	excluded := make(map[string]struct{}, len(f.Exclude))
	for _, item := range f.Exclude {
		excluded[strings.ToLower(strings.TrimSpace(item))] = struct{}{}
	}
	out := make([]Table, 0, len(tables))
	for _, table := range tables {
		lowerName := strings.ToLower(table.Name)
		if _, skip := excluded[lowerName]; skip {
			continue
		}
		if hasAnyPrefix(lowerName, f.ExcludePrefixes) {
			continue
		}
		if name != "" && !strings.Contains(lowerName, name) {
			continue
		}
		if comment != "" && !strings.Contains(strings.ToLower(table.Comment), comment) {
			continue
		}
		out = append(out, table)
	}
	return out
}

func hasAnyPrefix(value string, prefixes []string) bool {
	for _, prefix := range prefixes {
		prefix = strings.ToLower(strings.TrimSpace(prefix))
		if prefix != "" && strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

// qualifiedTableName returns a quoted "schema"."table" reference.
func qualifiedTableName(schemaName, tableName string) string {
	quotedTable := pgx.Identifier{tableName}.Sanitize()
	if schemaName == "" {
		return quotedTable
	}
	return pgx.Identifier{schemaName}.Sanitize() + "." + quotedTable
}
