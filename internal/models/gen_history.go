package models

import (
	"time"

	"gorm.io/datatypes"
)

// GenHistory is an immutable snapshot of one generation run for one table.
type GenHistory struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TableID         uint64 `gorm:"not null;index:idx_gen_histories_scope,priority:1"`                  // Source GenTable.
	TenantID        string `gorm:"type:varchar(64);not null;index:idx_gen_histories_scope,priority:2"` // Owning tenant.
	TableName       string `gorm:"type:varchar(200);not null;index"`                                   // Source table name at generation time.
	TemplateGroupID uint64 `gorm:"not null;default:0"`                                                 // Template group; 0 is the built-in group.

	Artifacts datatypes.JSON `gorm:"not null"`           // Serialized artifact list.
	FileCount int            `gorm:"not null;default:0"` // Number of artifacts in the snapshot.
	Operator  string         `gorm:"type:varchar(64)"`   // Who triggered the generation.

	GeneratedAt time.Time `gorm:"not null;index:idx_gen_histories_scope,priority:3"` // Generation timestamp.
}
