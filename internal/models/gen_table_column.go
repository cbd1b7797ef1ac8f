package models

import "time"

// GenTableColumn stores the generation configuration of one column.
type GenTableColumn struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TableID    uint64 `gorm:"not null;uniqueIndex:idx_gen_columns_table_column,priority:1"`                    // Owning GenTable.
	ColumnName string `gorm:"type:varchar(200);not null;uniqueIndex:idx_gen_columns_table_column,priority:2"` // Source column name.

	ColumnComment string `gorm:"type:varchar(500)"` // Source column comment.
	ColumnType    string `gorm:"type:varchar(100)"` // Native database type.
	FieldName     string `gorm:"type:varchar(200)"` // Camel-cased field identifier.
	FieldType     string `gorm:"type:varchar(20)"`  // string, number or date.

	WidgetType string `gorm:"type:varchar(30)"`  // Form widget.
	DictType   string `gorm:"type:varchar(200)"` // Dictionary reference.
	QueryType  string `gorm:"type:varchar(20)"`  // Query operator.

	IsPK        bool `gorm:"not null;default:false"` // Primary key flag.
	IsIncrement bool `gorm:"not null;default:false"` // Auto-increment flag.
	IsRequired  bool `gorm:"not null;default:false"` // Required on create.
	IsInsert    bool `gorm:"not null;default:false"` // Present in the create form.
	IsEdit      bool `gorm:"not null;default:false"` // Present in the edit form.
	IsList      bool `gorm:"not null;default:false"` // Present in the list view.
	IsQuery     bool `gorm:"not null;default:false"` // Present in the query form.

	// User-set markers for the soft attributes; sync never overwrites a marked attribute.
	WidgetCustomized bool `gorm:"not null;default:false"`
	QueryCustomized  bool `gorm:"not null;default:false"`
	DictCustomized   bool `gorm:"not null;default:false"`

	Sort int `gorm:"not null;default:0"` // Display order.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
