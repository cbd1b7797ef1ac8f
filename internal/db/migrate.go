package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/CodegenAdmin/internal/config"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	internalsettings "github.com/router-for-me/CodegenAdmin/internal/settings"
	"gorm.io/gorm"
)

// schemaModels lists every persisted model in dependency order.
func schemaModels() []any {
	return []any{
		&models.DataSource{},
		&models.GenTable{},
		&models.GenTableColumn{},
		&models.GenHistory{},
		&models.TemplateGroup{},
		&models.CustomTemplate{},
		&models.Setting{},
	}
}

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectMySQL:
		return migrateMySQL(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(schemaModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureHistorySettings(conn); errSeed != nil {
		return errSeed
	}
	if errHistoryIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_gen_histories_generated_at
		ON gen_histories (generated_at)
	`).Error; errHistoryIdx != nil {
		return fmt.Errorf("db: create history age index: %w", errHistoryIdx)
	}
	if errArtifactsDefault := conn.Exec(`
		ALTER TABLE gen_histories
		ALTER COLUMN artifacts SET DEFAULT '[]'::jsonb
	`).Error; errArtifactsDefault != nil {
		return fmt.Errorf("db: set artifacts default: %w", errArtifactsDefault)
	}
	if errSortBackfill := backfillColumnSort(conn); errSortBackfill != nil {
		return errSortBackfill
	}
	return nil
}

// migrateMySQL applies MySQL schema updates.
func migrateMySQL(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(schemaModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureHistorySettings(conn); errSeed != nil {
		return errSeed
	}
	if !conn.Migrator().HasIndex(&models.GenHistory{}, "idx_gen_histories_generated_at") {
		if errHistoryIdx := conn.Exec(`
			CREATE INDEX idx_gen_histories_generated_at ON gen_histories (generated_at)
		`).Error; errHistoryIdx != nil {
			return fmt.Errorf("db: create history age index: %w", errHistoryIdx)
		}
	}
	return backfillColumnSort(conn)
}

// migrateSQLite applies SQLite schema updates.
func migrateSQLite(conn *gorm.DB) error {
	if errFix := fixSQLiteJSONColumns(conn); errFix != nil {
		return errFix
	}
	if errAutoMigrate := conn.AutoMigrate(schemaModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errSeed := ensureHistorySettings(conn); errSeed != nil {
		return errSeed
	}
	if errHistoryIdx := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_gen_histories_generated_at
		ON gen_histories (generated_at)
	`).Error; errHistoryIdx != nil {
		return fmt.Errorf("db: create history age index: %w", errHistoryIdx)
	}
	if errArtifactsBackfill := conn.Exec(`
		UPDATE gen_histories
		SET artifacts = '[]'
		WHERE artifacts IS NULL OR artifacts = ''
	`).Error; errArtifactsBackfill != nil {
		return fmt.Errorf("db: backfill history artifacts: %w", errArtifactsBackfill)
	}
	return backfillColumnSort(conn)
}

// backfillColumnSort numbers columns that were imported without a sort value.
func backfillColumnSort(conn *gorm.DB) error {
	if errBackfill := conn.Exec(`
		UPDATE gen_table_columns
		SET sort = id
		WHERE sort = 0
	`).Error; errBackfill != nil {
		return fmt.Errorf("db: backfill column sort: %w", errBackfill)
	}
	return nil
}

// ensureHistorySettings seeds the history retention knobs.
func ensureHistorySettings(conn *gorm.DB) error {
	if errSeed := ensureSetting(conn, internalsettings.HistoryLimitKey, config.DefaultHistoryLimit); errSeed != nil {
		return errSeed
	}
	return ensureSetting(conn, internalsettings.HistoryRetentionDaysKey, config.DefaultHistoryRetentionDays)
}

// ensureSetting ensures a setting exists and defaults it when empty.
func ensureSetting(conn *gorm.DB, key string, value any) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	rawValue := models.JSONText(payload)

	var existing models.Setting
	if errFind := conn.Where(conn.Statement.Quote("key")+" = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      rawValue,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     rawValue,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}

// sqliteTableInfo is one row of PRAGMA table_info.
type sqliteTableInfo struct {
	CID       int     `gorm:"column:cid"`
	Name      string  `gorm:"column:name"`
	Type      string  `gorm:"column:type"`
	NotNull   int     `gorm:"column:notnull"`
	DfltValue *string `gorm:"column:dflt_value"`
	PK        int     `gorm:"column:pk"`
}

// fixSQLiteJSONColumns rebuilds tables whose JSON columns were created with a
// postgres-only type, or with a JSON type whose numeric affinity mangles scalar settings.
func fixSQLiteJSONColumns(conn *gorm.DB) error {
	if errDisable := conn.Exec("PRAGMA foreign_keys=OFF").Error; errDisable != nil {
		return fmt.Errorf("db: disable foreign keys: %w", errDisable)
	}
	defer func() {
		_ = conn.Exec("PRAGMA foreign_keys=ON").Error
	}()

	if errFix := rebuildSQLiteTableIfNeeded(conn, &models.GenHistory{}, "jsonb"); errFix != nil {
		return errFix
	}
	return rebuildSQLiteTableIfNeeded(conn, &models.Setting{}, "jsonb", "json")
}

// rebuildSQLiteTableIfNeeded recreates a SQLite table when a column carries one of legacyTypes.
func rebuildSQLiteTableIfNeeded(conn *gorm.DB, model any, legacyTypes ...string) error {
	tableName, err := tableNameForModel(conn, model)
	if err != nil {
		return err
	}
	migrator := conn.Migrator()
	if !migrator.HasTable(tableName) {
		return nil
	}

	var info []sqliteTableInfo
	pragmaSQL := fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLiteIdentifier(tableName))
	if errQuery := conn.Raw(pragmaSQL).Scan(&info).Error; errQuery != nil {
		return fmt.Errorf("db: read sqlite table info %s: %w", tableName, errQuery)
	}

	needsRebuild := false
	oldColumns := make([]string, 0, len(info))
	for _, col := range info {
		if col.Name == "" {
			continue
		}
		oldColumns = append(oldColumns, col.Name)
		for _, legacy := range legacyTypes {
			if strings.EqualFold(strings.TrimSpace(col.Type), legacy) {
				needsRebuild = true
			}
		}
	}
	if !needsRebuild {
		return nil
	}

	legacyName := tableName + "_legacy_json"
	if errRename := migrator.RenameTable(tableName, legacyName); errRename != nil {
		return fmt.Errorf("db: rename sqlite table %s: %w", tableName, errRename)
	}
	if errCreate := conn.Table(tableName).AutoMigrate(model); errCreate != nil {
		return fmt.Errorf("db: recreate sqlite table %s: %w", tableName, errCreate)
	}

	quoted := make([]string, 0, len(oldColumns))
	for _, col := range oldColumns {
		if migrator.HasColumn(model, col) {
			quoted = append(quoted, quoteSQLiteIdentifier(col))
		}
	}
	if len(quoted) > 0 {
		columnList := strings.Join(quoted, ", ")
		copySQL := fmt.Sprintf(
			"INSERT INTO %s (%s) SELECT %s FROM %s",
			quoteSQLiteIdentifier(tableName),
			columnList,
			columnList,
			quoteSQLiteIdentifier(legacyName),
		)
		if errCopy := conn.Exec(copySQL).Error; errCopy != nil {
			return fmt.Errorf("db: copy sqlite data for %s: %w", tableName, errCopy)
		}
	}
	if errDrop := migrator.DropTable(legacyName); errDrop != nil {
		return fmt.Errorf("db: drop sqlite legacy table %s: %w", legacyName, errDrop)
	}
	return nil
}

// tableNameForModel resolves the table name for the provided model.
func tableNameForModel(conn *gorm.DB, model any) (string, error) {
	stmt := &gorm.Statement{DB: conn}
	if err := stmt.Parse(model); err != nil {
		return "", fmt.Errorf("db: parse model: %w", err)
	}
	if stmt.Schema == nil || stmt.Schema.Table == "" {
		return "", fmt.Errorf("db: resolve table name")
	}
	return stmt.Schema.Table, nil
}

// quoteSQLiteIdentifier quotes a SQLite identifier safely.
func quoteSQLiteIdentifier(name string) string {
	if name == "" {
		return "\"\""
	}
	return "\"" + strings.ReplaceAll(name, "\"", "\"\"") + "\""
}
