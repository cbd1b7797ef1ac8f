package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
	// DialectMySQL is the MySQL dialect name.
	DialectMySQL = "mysql"
)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// CaseInsensitiveLikeExpr returns a SQL expression for case-insensitive LIKE.
func CaseInsensitiveLikeExpr(conn *gorm.DB, column string) string {
	switch DialectName(conn) {
	case DialectPostgres:
		return fmt.Sprintf("%s ILIKE ?", column)
	case DialectSQLite:
		return fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '\\'", column)
	default:
		return fmt.Sprintf("LOWER(%s) LIKE ?", column)
	}
}

// NormalizeLikePattern normalizes a LIKE pattern for the current dialect.
func NormalizeLikePattern(conn *gorm.DB, pattern string) string {
	if DialectName(conn) == DialectPostgres {
		return pattern
	}
	return strings.ToLower(pattern)
}

// ContainsPattern builds a LIKE pattern matching value anywhere, escaping wildcards.
func ContainsPattern(conn *gorm.DB, value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return NormalizeLikePattern(conn, "%"+replacer.Replace(strings.TrimSpace(value))+"%")
}
