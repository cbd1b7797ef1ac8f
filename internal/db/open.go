package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database described by dsn and configures the pool.
//
// The dialect is picked from the DSN shape: postgres:// or key=value DSNs use
// PostgreSQL, mysql:// or user@tcp(...) DSNs use MySQL, and file: or *.db
// paths use SQLite.
func Open(dsn string) (*gorm.DB, error) {
	dialector, errDialector := dialectorFor(dsn)
	if errDialector != nil {
		return nil, errDialector
	}
	conn, errOpen := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if errOpen != nil {
		return nil, fmt.Errorf("db: open: %w", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return nil, fmt.Errorf("db: sql handle: %w", errDB)
	}
	if IsSQLite(conn) {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return conn, nil
}

// DialectForDSN reports the dialect name Open would use for dsn.
func DialectForDSN(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	lower := strings.ToLower(trimmed)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres
	case strings.HasPrefix(lower, "mysql://"), strings.Contains(lower, "@tcp("), strings.Contains(lower, "@unix("):
		return DialectMySQL
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"),
		strings.Contains(lower, ".db?"), strings.Contains(lower, ":memory:"):
		return DialectSQLite
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		return DialectPostgres
	default:
		return ""
	}
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	switch DialectForDSN(trimmed) {
	case DialectPostgres:
		return postgres.Open(trimmed), nil
	case DialectMySQL:
		if strings.HasPrefix(strings.ToLower(trimmed), "mysql://") {
			trimmed = trimmed[len("mysql://"):]
		}
		return mysql.Open(trimmed), nil
	case DialectSQLite:
		return sqlite.Open(trimmed), nil
	default:
		return nil, fmt.Errorf("db: unrecognized dsn format")
	}
}
