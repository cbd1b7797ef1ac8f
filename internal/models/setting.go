package models

import "time"

// Setting stores a runtime-tunable key/value pair.
type Setting struct {
	Key       string    `gorm:"type:varchar(100);primaryKey"` // Setting key.
	Value     JSONText  `gorm:"not null"`                     // JSON value.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`      // Last update timestamp.
}
