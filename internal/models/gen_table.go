package models

import "time"

// TemplateCategory selects which flavour of artifacts a table renders into.
type TemplateCategory string

// TemplateCategory constants define the supported generation layouts.
const (
	// TemplateCategoryCRUD renders a flat single-table CRUD.
	TemplateCategoryCRUD TemplateCategory = "crud"
	// TemplateCategoryTree renders a self-referencing tree table.
	TemplateCategoryTree TemplateCategory = "tree"
	// TemplateCategorySub renders a parent table with one child table.
	TemplateCategorySub TemplateCategory = "sub"
)

// Valid reports whether the category is one of the supported layouts.
func (c TemplateCategory) Valid() bool {
	switch c {
	case TemplateCategoryCRUD, TemplateCategoryTree, TemplateCategorySub:
		return true
	default:
		return false
	}
}

// GenTable stores the editable generation configuration of one imported table.
type GenTable struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID  string `gorm:"type:varchar(64);not null;uniqueIndex:idx_gen_tables_tenant_table,priority:1"`  // Owning tenant.
	TableName string `gorm:"type:varchar(200);not null;uniqueIndex:idx_gen_tables_tenant_table,priority:2"` // Source table name.

	TableComment   string           `gorm:"type:varchar(500)"`                      // Source table comment.
	ClassName      string           `gorm:"type:varchar(100);not null"`             // Generated type name.
	TplCategory    TemplateCategory `gorm:"type:varchar(20);not null;default:crud"` // Template layout.
	PackageName    string           `gorm:"type:varchar(200)"`                      // Generated package/import path.
	ModuleName     string           `gorm:"type:varchar(100)"`                      // Module segment used in routes and paths.
	BusinessName   string           `gorm:"type:varchar(100)"`                      // Business segment used in routes and paths.
	FunctionName   string           `gorm:"type:varchar(100)"`                      // Human readable feature name.
	FunctionAuthor string           `gorm:"type:varchar(100)"`                      // Author stamped into generated files.

	TreeCode       string `gorm:"type:varchar(100)"` // Tree node id column.
	TreeParentCode string `gorm:"type:varchar(100)"` // Tree parent id column.
	TreeName       string `gorm:"type:varchar(100)"` // Tree label column.

	SubTableName   string `gorm:"type:varchar(200)"` // Child table for the sub layout.
	SubTableFKName string `gorm:"type:varchar(100)"` // Child column referencing this table.

	DataSourceID *uint64 `gorm:"index"` // Optional data source; nil means the primary database.

	Remark string `gorm:"type:text"` // Free-form note.

	Columns []GenTableColumn `gorm:"foreignKey:TableID;constraint:OnDelete:CASCADE"` // Ordered column configs.

	CreatedBy string    `gorm:"type:varchar(64)"`        // Operator that imported the table.
	UpdatedBy string    `gorm:"type:varchar(64)"`        // Operator of the last edit.
	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
