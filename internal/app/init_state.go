package app

import (
	"fmt"

	"github.com/router-for-me/CodegenAdmin/internal/models"
	"gorm.io/gorm"
)

// SchemaReady reports whether the generator tables have been migrated.
func SchemaReady(conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	migrator := conn.Migrator()
	for _, model := range []any{&models.GenTable{}, &models.GenHistory{}, &models.Setting{}} {
		if !migrator.HasTable(model) {
			return false, nil
		}
	}
	return true, nil
}
