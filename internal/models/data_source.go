package models

import "time"

// DataSource describes an external database whose tables can be imported.
type DataSource struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_data_sources_tenant_name,priority:1"`  // Owning tenant.
	Name     string `gorm:"type:varchar(100);not null;uniqueIndex:idx_data_sources_tenant_name,priority:2"` // Display name.

	Type     string `gorm:"type:varchar(20);not null"` // postgres, mysql or sqlite.
	Host     string `gorm:"type:varchar(255)"`         // Server host.
	Port     int    `gorm:"not null;default:0"`        // Server port.
	Username string `gorm:"type:varchar(100)"`         // Login user.
	Password string `gorm:"type:text"`                 // Login password.
	Database string `gorm:"type:varchar(100)"`         // Database name.
	Schema   string `gorm:"type:varchar(100)"`         // Schema to introspect (postgres).
	Path     string `gorm:"type:text"`                 // File path (sqlite).
	SSLMode  string `gorm:"type:varchar(20)"`          // SSL mode (postgres).

	Remark string `gorm:"type:text"` // Free-form note.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
