package introspect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// postgresColumns uses pg_index for primary key detection, which also covers keys created as unique indexes.
func (g *GormIntrospector) postgresColumns(ctx context.Context, table string) ([]columnRow, error) {
	var rows []columnRow
	err := g.conn.WithContext(ctx).Raw(`
		SELECT
			c.column_name AS name,
			col_description(to_regclass(@qualified), c.ordinal_position) AS comment,
			c.data_type AS data_type,
			c.character_maximum_length AS max_length,
			c.is_nullable = 'YES' AS nullable,
			c.column_default AS default_value,
			COALESCE(pk.is_pk, false) AS primary_key,
			(COALESCE(c.column_default, '') LIKE 'nextval(%' OR c.is_identity = 'YES') AS auto_increment,
			c.ordinal_position AS position
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT a.attname AS column_name, true AS is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true AND n.nspname = @schema AND t.relname = @table
		) pk ON c.column_name = pk.column_name
		WHERE c.table_schema = @schema AND c.table_name = @table
		ORDER BY c.ordinal_position
	`, map[string]any{
		"qualified": qualifiedTableName(g.schema, table),
		"schema":    g.schema,
		"table":     table,
	}).Scan(&rows).Error
	return rows, err
}

func (g *GormIntrospector) mysqlColumns(ctx context.Context, table string) ([]columnRow, error) {
	var rows []columnRow
	err := g.conn.WithContext(ctx).Raw(`
		SELECT
			COLUMN_NAME AS name,
			COLUMN_COMMENT AS comment,
			COLUMN_TYPE AS data_type,
			CHARACTER_MAXIMUM_LENGTH AS max_length,
			IS_NULLABLE = 'YES' AS nullable,
			COLUMN_DEFAULT AS default_value,
			COLUMN_KEY = 'PRI' AS primary_key,
			EXTRA LIKE '%auto_increment%' AS auto_increment,
			ORDINAL_POSITION AS position
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = (SELECT DATABASE()) AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`, table).Scan(&rows).Error
	return rows, err
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

// sqliteColumns treats a lone INTEGER primary key as auto-increment, since it aliases the rowid.
func (g *GormIntrospector) sqliteColumns(ctx context.Context, table string) ([]columnRow, error) {
	var info []sqliteTableInfo
	pragma := fmt.Sprintf("PRAGMA table_info(%s)", pgx.Identifier{table}.Sanitize())
	if err := g.conn.WithContext(ctx).Raw(pragma).Scan(&info).Error; err != nil {
		return nil, err
	}
	pkCount := 0
	for _, col := range info {
		if col.PK > 0 {
			pkCount++
		}
	}
	rows := make([]columnRow, 0, len(info))
	for _, col := range info {
		isPK := col.PK > 0
		rows = append(rows, columnRow{
			Name:          col.Name,
			DataType:      col.Type,
			Nullable:      col.NotNull == 0 && !isPK,
			DefaultValue:  col.DfltValue,
			PrimaryKey:    isPK,
			AutoIncrement: isPK && pkCount == 1 && strings.EqualFold(strings.TrimSpace(col.Type), "integer"),
			Position:      col.CID + 1,
		})
	}
	return rows, nil
}
