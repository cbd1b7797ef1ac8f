// Package datasource turns registered data sources into pooled database connections.
package datasource

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/db"
	"github.com/router-for-me/CodegenAdmin/internal/models"
)

// Supported data source types.
const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	TypeSQLite   = "sqlite"
)

// defaultSQLitePath is the SQLite file used when a data source omits its path.
const defaultSQLitePath = "codegen.db"

// NormalizeType lowercases t and maps aliases onto the supported types.
func NormalizeType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "postgres", "postgresql", "pg":
		return TypePostgres
	case "mysql", "mariadb":
		return TypeMySQL
	case "sqlite", "sqlite3":
		return TypeSQLite
	default:
		return strings.ToLower(strings.TrimSpace(t))
	}
}

// Validate normalizes ds in place and rejects incomplete definitions.
func Validate(ds *models.DataSource) error {
	if ds == nil {
		return apperrors.Validationf("data source is required")
	}
	ds.Name = strings.TrimSpace(ds.Name)
	if ds.Name == "" {
		return apperrors.Validationf("data source name is required")
	}
	ds.Type = NormalizeType(ds.Type)
	switch ds.Type {
	case TypePostgres, TypeMySQL:
		if strings.TrimSpace(ds.Host) == "" {
			return apperrors.Validationf("database host is required")
		}
		if ds.Port <= 0 || ds.Port > 65535 {
			return apperrors.Validationf("invalid database port")
		}
		if strings.TrimSpace(ds.Username) == "" {
			return apperrors.Validationf("database user is required")
		}
		if strings.TrimSpace(ds.Database) == "" {
			return apperrors.Validationf("database name is required")
		}
	case TypeSQLite:
		if strings.TrimSpace(ds.Path) == "" {
			ds.Path = defaultSQLitePath
		}
	default:
		return apperrors.Validationf("unsupported database type %q", ds.Type)
	}
	return nil
}

// BuildDSN builds the driver DSN for ds.
func BuildDSN(ds models.DataSource) (string, error) {
	switch NormalizeType(ds.Type) {
	case TypePostgres:
		sslMode := strings.TrimSpace(ds.SSLMode)
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := &url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(ds.Username, ds.Password),
			Host:     ds.Host + ":" + strconv.Itoa(ds.Port),
			Path:     "/" + ds.Database,
			RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
		}
		return dsn.String(), nil
	case TypeMySQL:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			ds.Username,
			ds.Password,
			ds.Host,
			ds.Port,
			ds.Database,
		), nil
	case TypeSQLite:
		return BuildSQLiteDSN(ds.Path), nil
	default:
		return "", apperrors.Validationf("unsupported database type %q", ds.Type)
	}
}

// BuildSQLiteDSN constructs a SQLite DSN with default pragmas.
func BuildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=foreign_keys(1)",
	}, "&")
}

// dialectMatches reports whether the DSN is routed to the driver matching the data source type.
func dialectMatches(dsType, dsn string) bool {
	switch NormalizeType(dsType) {
	case TypePostgres:
		return db.DialectForDSN(dsn) == db.DialectPostgres
	case TypeMySQL:
		return db.DialectForDSN(dsn) == db.DialectMySQL
	case TypeSQLite:
		return db.DialectForDSN(dsn) == db.DialectSQLite
	default:
		return false
	}
}
