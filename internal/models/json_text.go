package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSONText is a JSON document stored as jsonb on PostgreSQL, JSON on MySQL and
// text on SQLite. A JSON-typed SQLite column has numeric affinity and turns
// scalar documents such as 10 into integers.
type JSONText []byte

// Value implements driver.Valuer.
func (j JSONText) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner. Numeric values written through a JSON-typed
// SQLite column are accepted as their JSON text.
func (j *JSONText) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append(JSONText(nil), v...)
	case string:
		*j = JSONText(v)
	case int64:
		*j = JSONText(strconv.FormatInt(v, 10))
	case float64:
		*j = JSONText(strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		*j = JSONText(strconv.FormatBool(v))
	default:
		return fmt.Errorf("models: scan json text: unsupported type %T", value)
	}
	return nil
}

// MarshalJSON emits the stored document verbatim.
func (j JSONText) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON keeps a copy of the raw document.
func (j *JSONText) UnmarshalJSON(data []byte) error {
	if j == nil {
		return fmt.Errorf("models: unmarshal json text: nil pointer")
	}
	*j = append((*j)[0:0], data...)
	return nil
}

// GormDataType implements schema.GormDataTypeInterface.
func (JSONText) GormDataType() string {
	return "json"
}

// GormDBDataType implements migrator.GormDataTypeInterface.
func (JSONText) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "sqlite":
		return "text"
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	}
	return ""
}
