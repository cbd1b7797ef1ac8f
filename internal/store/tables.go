package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/inference"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/syncer"
	internaldb "github.com/router-for-me/CodegenAdmin/internal/db"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	"gorm.io/gorm"
)

// TableStore persists table configs and their columns.
type TableStore struct {
	db *gorm.DB
}

// NewTableStore constructs a TableStore.
func NewTableStore(db *gorm.DB) *TableStore {
	return &TableStore{db: db}
}

func preloadColumns(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Columns", func(q *gorm.DB) *gorm.DB { return q.Order("sort ASC").Order("id ASC") })
}

// Create inserts table together with its columns. A duplicate name within the tenant is a conflict.
func (s *TableStore) Create(ctx context.Context, table *models.GenTable) error {
	return s.CreateAll(ctx, []*models.GenTable{table})
}

// CreateAll inserts tables in one transaction; a conflict on any of them
// leaves none imported.
func (s *TableStore) CreateAll(ctx context.Context, tables []*models.GenTable) error {
	for _, table := range tables {
		if table == nil || strings.TrimSpace(table.TenantID) == "" || strings.TrimSpace(table.TableName) == "" {
			return apperrors.Validationf("table needs a tenant and a name")
		}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			if errCreate := createTable(tx, table); errCreate != nil {
				return errCreate
			}
		}
		return nil
	})
}

func createTable(tx *gorm.DB, table *models.GenTable) error {
	var count int64
	if errCount := tx.Model(&models.GenTable{}).
		Where("tenant_id = ? AND table_name = ?", table.TenantID, table.TableName).
		Count(&count).Error; errCount != nil {
		return fmt.Errorf("table store: check duplicate: %w", errCount)
	}
	if count > 0 {
		return fmt.Errorf("table %s already imported: %w", table.TableName, apperrors.ErrConflict)
	}
	if errCreate := tx.Create(table).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("table %s already imported: %w", table.TableName, apperrors.ErrConflict)
		}
		return fmt.Errorf("table store: create: %w", errCreate)
	}
	return nil
}

// ImportedNames returns which of names the tenant already imported.
func (s *TableStore) ImportedNames(ctx context.Context, tenantID string, names []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(names) == 0 {
		return out, nil
	}
	var found []string
	if errFind := s.db.WithContext(ctx).Model(&models.GenTable{}).
		Where("tenant_id = ? AND table_name IN ?", tenantID, names).
		Pluck("table_name", &found).Error; errFind != nil {
		return nil, fmt.Errorf("table store: imported names: %w", errFind)
	}
	for _, name := range found {
		out[name] = struct{}{}
	}
	return out, nil
}

// Get returns one table config with columns ordered by sort.
func (s *TableStore) Get(ctx context.Context, scope tenant.Scope, id uint64) (*models.GenTable, error) {
	var table models.GenTable
	q := scope.Apply(preloadColumns(s.db.WithContext(ctx)))
	if errFind := q.Where("id = ?", id).First(&table).Error; errFind != nil {
		return nil, fmt.Errorf("table store: get: %w", notFound("table", id, errFind))
	}
	return &table, nil
}

// GetByName returns the tenant's table config named tableName.
func (s *TableStore) GetByName(ctx context.Context, tenantID, tableName string) (*models.GenTable, error) {
	var table models.GenTable
	if errFind := preloadColumns(s.db.WithContext(ctx)).
		Where("tenant_id = ? AND table_name = ?", tenantID, tableName).
		First(&table).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("table %s: %w", tableName, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("table store: get by name: %w", errFind)
	}
	return &table, nil
}

// TableQuery filters and pages List.
type TableQuery struct {
	TableName    string
	TableComment string
	Page         int
	PageSize     int
}

// List returns table configs without columns, newest first.
func (s *TableStore) List(ctx context.Context, scope tenant.Scope, query TableQuery) ([]models.GenTable, int64, error) {
	page, pageSize := normalizePage(query.Page, query.PageSize)
	conn := s.db.WithContext(ctx)
	q := scope.Apply(conn.Model(&models.GenTable{}))
	if name := strings.TrimSpace(query.TableName); name != "" {
		q = q.Where(internaldb.CaseInsensitiveLikeExpr(conn, "table_name"), internaldb.ContainsPattern(conn, name))
	}
	if comment := strings.TrimSpace(query.TableComment); comment != "" {
		q = q.Where(internaldb.CaseInsensitiveLikeExpr(conn, "table_comment"), internaldb.ContainsPattern(conn, comment))
	}
	var total int64
	if errCount := q.Session(&gorm.Session{}).Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("table store: count: %w", errCount)
	}
	var rows []models.GenTable
	if errFind := q.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("table store: list: %w", errFind)
	}
	return rows, total, nil
}

// ColumnUpdate edits one column config. Nil fields are left unchanged.
type ColumnUpdate struct {
	ID            uint64  `json:"id"`
	ColumnComment *string `json:"column_comment"`
	FieldName     *string `json:"field_name"`
	WidgetType    *string `json:"widget_type"`
	QueryType     *string `json:"query_type"`
	DictType      *string `json:"dict_type"`
	IsRequired    *bool   `json:"is_required"`
	IsInsert      *bool   `json:"is_insert"`
	IsEdit        *bool   `json:"is_edit"`
	IsList        *bool   `json:"is_list"`
	IsQuery       *bool   `json:"is_query"`
	Sort          *int    `json:"sort"`
}

// TableUpdate edits a table config. Nil fields are left unchanged.
type TableUpdate struct {
	TableComment   *string                  `json:"table_comment"`
	ClassName      *string                  `json:"class_name"`
	TplCategory    *models.TemplateCategory `json:"tpl_category"`
	PackageName    *string                  `json:"package_name"`
	ModuleName     *string                  `json:"module_name"`
	BusinessName   *string                  `json:"business_name"`
	FunctionName   *string                  `json:"function_name"`
	FunctionAuthor *string                  `json:"function_author"`
	TreeCode       *string                  `json:"tree_code"`
	TreeParentCode *string                  `json:"tree_parent_code"`
	TreeName       *string                  `json:"tree_name"`
	SubTableName   *string                  `json:"sub_table_name"`
	SubTableFKName *string                  `json:"sub_table_fk_name"`
	Remark         *string                  `json:"remark"`
	Columns        []ColumnUpdate           `json:"columns"`
}

// Update applies upd to the table and its columns in one transaction. Changing a
// column's widget, query operator or dictionary marks it as user-set so later
// syncs leave it alone.
func (s *TableStore) Update(ctx context.Context, scope tenant.Scope, id uint64, upd TableUpdate, operator string) (*models.GenTable, error) {
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.GenTable
		if errFind := scope.Apply(preloadColumns(tx)).Where("id = ?", id).First(&table).Error; errFind != nil {
			return fmt.Errorf("table store: update: %w", notFound("table", id, errFind))
		}
		applyTableUpdate(&table, upd)
		table.UpdatedBy = operator

		byID := make(map[uint64]int, len(table.Columns))
		for i, col := range table.Columns {
			byID[col.ID] = i
		}
		changed := make(map[uint64]struct{}, len(upd.Columns))
		for _, cu := range upd.Columns {
			idx, ok := byID[cu.ID]
			if !ok {
				return apperrors.Validationf("column %d does not belong to table %d", cu.ID, id)
			}
			if errApply := applyColumnUpdate(&table.Columns[idx], cu); errApply != nil {
				return errApply
			}
			changed[cu.ID] = struct{}{}
		}
		if errValidate := ValidateTable(&table); errValidate != nil {
			return errValidate
		}

		if errSave := tx.Omit("Columns").Save(&table).Error; errSave != nil {
			return fmt.Errorf("table store: save table: %w", errSave)
		}
		for _, col := range table.Columns {
			if _, ok := changed[col.ID]; !ok {
				continue
			}
			if errSave := tx.Save(&col).Error; errSave != nil {
				return fmt.Errorf("table store: save column %s: %w", col.ColumnName, errSave)
			}
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return s.Get(ctx, scope, id)
}

func applyTableUpdate(table *models.GenTable, upd TableUpdate) {
	setTrimmed := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setTrimmed(&table.TableComment, upd.TableComment)
	setTrimmed(&table.ClassName, upd.ClassName)
	setTrimmed(&table.PackageName, upd.PackageName)
	setTrimmed(&table.ModuleName, upd.ModuleName)
	setTrimmed(&table.BusinessName, upd.BusinessName)
	setTrimmed(&table.FunctionName, upd.FunctionName)
	setTrimmed(&table.FunctionAuthor, upd.FunctionAuthor)
	setTrimmed(&table.TreeCode, upd.TreeCode)
	setTrimmed(&table.TreeParentCode, upd.TreeParentCode)
	setTrimmed(&table.TreeName, upd.TreeName)
	setTrimmed(&table.SubTableName, upd.SubTableName)
	setTrimmed(&table.SubTableFKName, upd.SubTableFKName)
	setTrimmed(&table.Remark, upd.Remark)
	if upd.TplCategory != nil {
		table.TplCategory = *upd.TplCategory
	}
}

func applyColumnUpdate(col *models.GenTableColumn, cu ColumnUpdate) error {
	if cu.ColumnComment != nil {
		col.ColumnComment = strings.TrimSpace(*cu.ColumnComment)
	}
	if cu.FieldName != nil {
		name := strings.TrimSpace(*cu.FieldName)
		if name == "" {
			return apperrors.Validationf("column %s: field name is required", col.ColumnName)
		}
		col.FieldName = name
	}
	if cu.WidgetType != nil && *cu.WidgetType != col.WidgetType {
		if !inference.ValidWidget(*cu.WidgetType) {
			return apperrors.Validationf("column %s: unknown widget %q", col.ColumnName, *cu.WidgetType)
		}
		col.WidgetType = *cu.WidgetType
		col.WidgetCustomized = true
	}
	if cu.QueryType != nil && *cu.QueryType != col.QueryType {
		if !inference.ValidQueryOperator(*cu.QueryType) {
			return apperrors.Validationf("column %s: unknown query operator %q", col.ColumnName, *cu.QueryType)
		}
		col.QueryType = *cu.QueryType
		col.QueryCustomized = true
	}
	if cu.DictType != nil && strings.TrimSpace(*cu.DictType) != col.DictType {
		col.DictType = strings.TrimSpace(*cu.DictType)
		col.DictCustomized = true
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setBool(&col.IsRequired, cu.IsRequired)
	setBool(&col.IsInsert, cu.IsInsert)
	setBool(&col.IsEdit, cu.IsEdit)
	setBool(&col.IsList, cu.IsList)
	setBool(&col.IsQuery, cu.IsQuery)
	if cu.Sort != nil {
		col.Sort = *cu.Sort
	}
	return nil
}

// ValidateTable checks the category-specific options of table.
func ValidateTable(table *models.GenTable) error {
	if strings.TrimSpace(table.ClassName) == "" {
		return apperrors.Validationf("class name is required")
	}
	if !table.TplCategory.Valid() {
		return apperrors.Validationf("unknown template category %q", table.TplCategory)
	}
	hasColumn := func(name string) bool {
		for _, col := range table.Columns {
			if col.ColumnName == name {
				return true
			}
		}
		return false
	}
	switch table.TplCategory {
	case models.TemplateCategoryTree:
		if table.TreeCode == "" || table.TreeParentCode == "" || table.TreeName == "" {
			return apperrors.Validationf("tree tables need tree code, parent code and name columns")
		}
		for _, name := range []string{table.TreeCode, table.TreeParentCode, table.TreeName} {
			if !hasColumn(name) {
				return apperrors.Validationf("tree column %s does not exist", name)
			}
		}
	case models.TemplateCategorySub:
		if table.SubTableName == "" || table.SubTableFKName == "" {
			return apperrors.Validationf("sub tables need a child table and a foreign key column")
		}
		if table.SubTableName == table.TableName {
			return apperrors.Validationf("a table cannot be its own child table")
		}
	}
	return nil
}

// Delete removes the tables in ids visible to scope, with their columns and history.
func (s *TableStore) Delete(ctx context.Context, scope tenant.Scope, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.Validationf("no table ids given")
	}
	var deleted int64
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var visible []models.GenTable
		if errFind := scope.Apply(tx.Model(&models.GenTable{})).
			Select("id", "tenant_id").
			Where("id IN ?", ids).
			Find(&visible).Error; errFind != nil {
			return fmt.Errorf("table store: find for delete: %w", errFind)
		}
		if len(visible) == 0 {
			return nil
		}
		visibleIDs := make([]uint64, 0, len(visible))
		for _, row := range visible {
			visibleIDs = append(visibleIDs, row.ID)
		}
		if errColumns := tx.Where("table_id IN ?", visibleIDs).Delete(&models.GenTableColumn{}).Error; errColumns != nil {
			return fmt.Errorf("table store: delete columns: %w", errColumns)
		}
		if errHistory := tx.Where("table_id IN ?", visibleIDs).Delete(&models.GenHistory{}).Error; errHistory != nil {
			return fmt.Errorf("table store: delete history: %w", errHistory)
		}
		res := tx.Where("id IN ?", visibleIDs).Delete(&models.GenTable{})
		if res.Error != nil {
			return fmt.Errorf("table store: delete tables: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	if errTx != nil {
		return 0, errTx
	}
	return deleted, nil
}

// ApplySyncPlan writes a reconcile plan for the table in one transaction.
func (s *TableStore) ApplySyncPlan(ctx context.Context, scope tenant.Scope, tableID uint64, plan syncer.Plan, tableComment *string, operator string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.GenTable
		if errFind := scope.Apply(tx).Where("id = ?", tableID).First(&table).Error; errFind != nil {
			return fmt.Errorf("table store: sync: %w", notFound("table", tableID, errFind))
		}
		if len(plan.Deletes) > 0 {
			ids := make([]uint64, 0, len(plan.Deletes))
			for _, col := range plan.Deletes {
				ids = append(ids, col.ID)
			}
			if errDelete := tx.Where("table_id = ? AND id IN ?", tableID, ids).Delete(&models.GenTableColumn{}).Error; errDelete != nil {
				return fmt.Errorf("table store: sync delete: %w", errDelete)
			}
		}
		for _, col := range plan.Updates {
			col.TableID = tableID
			if errSave := tx.Save(&col).Error; errSave != nil {
				return fmt.Errorf("table store: sync update %s: %w", col.ColumnName, errSave)
			}
		}
		if len(plan.Inserts) > 0 {
			inserts := make([]models.GenTableColumn, len(plan.Inserts))
			copy(inserts, plan.Inserts)
			for i := range inserts {
				inserts[i].ID = 0
				inserts[i].TableID = tableID
			}
			if errCreate := tx.Create(&inserts).Error; errCreate != nil {
				return fmt.Errorf("table store: sync insert: %w", errCreate)
			}
		}
		updates := map[string]any{"updated_by": operator}
		if tableComment != nil {
			updates["table_comment"] = *tableComment
		}
		if errTouch := tx.Model(&table).Updates(updates).Error; errTouch != nil {
			return fmt.Errorf("table store: sync touch: %w", errTouch)
		}
		return nil
	})
}
