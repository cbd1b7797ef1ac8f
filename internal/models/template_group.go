package models

import "time"

// TemplateGroup groups user-authored templates rendered together.
type TemplateGroup struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_template_groups_tenant_name,priority:1"`  // Owning tenant.
	Name     string `gorm:"type:varchar(100);not null;uniqueIndex:idx_template_groups_tenant_name,priority:2"` // Display name.

	Description string `gorm:"type:text"` // Group description.

	Templates []CustomTemplate `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"` // Member templates.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CustomTemplate is a `${identifier}` template belonging to a TemplateGroup.
type CustomTemplate struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	GroupID uint64 `gorm:"not null;uniqueIndex:idx_custom_templates_group_name,priority:1"`                   // Owning group.
	Name    string `gorm:"type:varchar(100);not null;uniqueIndex:idx_custom_templates_group_name,priority:2"` // Template name.

	PathTemplate string `gorm:"type:varchar(500);not null"` // Output path, may contain markers.
	Language     string `gorm:"type:varchar(30)"`           // Language tag; derived from the path when empty.
	Content      string `gorm:"type:text;not null"`         // Template body.
	Sort         int    `gorm:"not null;default:0"`         // Render order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
