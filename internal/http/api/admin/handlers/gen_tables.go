package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/generator"
	"github.com/router-for-me/CodegenAdmin/internal/introspect"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/router-for-me/CodegenAdmin/internal/store"
)

// GenTableHandler serves table import, configuration, sync and generation.
type GenTableHandler struct {
	gen    *generator.Generator
	tables *store.TableStore
}

// NewGenTableHandler constructs a GenTableHandler.
func NewGenTableHandler(gen *generator.Generator, tables *store.TableStore) *GenTableHandler {
	return &GenTableHandler{gen: gen, tables: tables}
}

// DBTables lists tables of a data source that can still be imported.
func (h *GenTableHandler) DBTables(c *gin.Context) {
	dataSourceID, errID := parseOptionalID(c.Query("data_source_id"))
	if errID != nil {
		writeError(c, errID)
		return
	}
	filter := introspect.Filter{
		Name:    c.Query("table_name"),
		Comment: c.Query("table_comment"),
	}
	if prefixes := strings.TrimSpace(c.Query("exclude_prefixes")); prefixes != "" {
		filter.ExcludePrefixes = strings.Split(prefixes, ",")
	}
	tables, errList := h.gen.ListDBTables(c.Request.Context(), scopeFrom(c), dataSourceID, filter)
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// importTablesRequest captures the payload for importing tables.
type importTablesRequest struct {
	DataSourceID uint64   `json:"data_source_id"` // Optional data source; 0 is the primary database.
	Tables       []string `json:"tables"`         // Table names to import.
}

// Import introspects and persists the requested tables.
func (h *GenTableHandler) Import(c *gin.Context) {
	var body importTablesRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	var dataSourceID *uint64
	if body.DataSourceID != 0 {
		dataSourceID = &body.DataSourceID
	}
	imported, errImport := h.gen.ImportTables(c.Request.Context(), scopeFrom(c), dataSourceID, body.Tables, operatorFrom(c))
	if errImport != nil {
		writeError(c, errImport)
		return
	}
	out := make([]gin.H, 0, len(imported))
	for i := range imported {
		out = append(out, formatTable(&imported[i], false))
	}
	c.JSON(http.StatusCreated, gin.H{"tables": out})
}

// List returns imported table configs.
func (h *GenTableHandler) List(c *gin.Context) {
	rows, total, errList := h.tables.List(c.Request.Context(), scopeFrom(c), store.TableQuery{
		TableName:    c.Query("table_name"),
		TableComment: c.Query("table_comment"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 20),
	})
	if errList != nil {
		writeError(c, errList)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, formatTable(&rows[i], false))
	}
	c.JSON(http.StatusOK, gin.H{"tables": out, "total": total})
}

// Get returns one table config with its columns.
func (h *GenTableHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	table, errGet := h.tables.Get(c.Request.Context(), scopeFrom(c), id)
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	c.JSON(http.StatusOK, formatTable(table, true))
}

// Update edits a table config and its columns.
func (h *GenTableHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var body store.TableUpdate
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	table, errUpdate := h.tables.Update(c.Request.Context(), scopeFrom(c), id, body, operatorFrom(c))
	if errUpdate != nil {
		writeError(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, formatTable(table, true))
}

// Delete removes one table config.
func (h *GenTableHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	h.deleteIDs(c, []uint64{id}, true)
}

// BatchDelete removes several table configs.
func (h *GenTableHandler) BatchDelete(c *gin.Context) {
	var body idsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	h.deleteIDs(c, body.IDs, false)
}

func (h *GenTableHandler) deleteIDs(c *gin.Context, ids []uint64, single bool) {
	deleted, errDelete := h.tables.Delete(c.Request.Context(), scopeFrom(c), ids)
	if errDelete != nil {
		writeError(c, errDelete)
		return
	}
	if single && deleted == 0 {
		c.JSON(http.StatusNotFound, gin.H{"code": CodeNotFound, "error": "table not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Sync reconciles a table config with the live schema.
func (h *GenTableHandler) Sync(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, errSync := h.gen.SyncTable(c.Request.Context(), scopeFrom(c), id, operatorFrom(c))
	if errSync != nil {
		writeError(c, errSync)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Preview renders a table without recording history.
func (h *GenTableHandler) Preview(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	groupID, errGroup := parseOptionalID(c.Query("group_id"))
	if errGroup != nil {
		writeError(c, errGroup)
		return
	}
	result, errPreview := h.gen.Preview(c.Request.Context(), scopeFrom(c), id, derefID(groupID))
	if errPreview != nil {
		writeError(c, errPreview)
		return
	}
	c.JSON(http.StatusOK, result)
}

// generateRequest captures the payload for batch generation.
type generateRequest struct {
	TableIDs []uint64 `json:"table_ids"` // Tables to render.
	GroupID  uint64   `json:"group_id"`  // Template group; 0 is the built-in group.
}

// Generate renders tables and records a history snapshot per table.
func (h *GenTableHandler) Generate(c *gin.Context) {
	var body generateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	batch, errGenerate := h.gen.Generate(c.Request.Context(), scopeFrom(c), body.TableIDs, body.GroupID, operatorFrom(c))
	if errGenerate != nil {
		writeError(c, errGenerate)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Download renders tables and streams a zip archive.
func (h *GenTableHandler) Download(c *gin.Context) {
	var body generateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		badRequest(c, "invalid json")
		return
	}
	archive, errDownload := h.gen.Download(c.Request.Context(), scopeFrom(c), body.TableIDs, body.GroupID, operatorFrom(c))
	if errDownload != nil {
		writeError(c, errDownload)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+archive.FileName+`"`)
	c.Header("X-Codegen-Run-Id", archive.Batch.RunID)
	c.Data(http.StatusOK, "application/zip", archive.Data)
}

func derefID(id *uint64) uint64 {
	if id == nil {
		return 0
	}
	return *id
}

// formatTable formats a table config into response JSON.
func formatTable(t *models.GenTable, withColumns bool) gin.H {
	out := gin.H{
		"id":                t.ID,
		"table_name":        t.TableName,
		"table_comment":     t.TableComment,
		"class_name":        t.ClassName,
		"tpl_category":      t.TplCategory,
		"package_name":      t.PackageName,
		"module_name":       t.ModuleName,
		"business_name":     t.BusinessName,
		"function_name":     t.FunctionName,
		"function_author":   t.FunctionAuthor,
		"tree_code":         t.TreeCode,
		"tree_parent_code":  t.TreeParentCode,
		"tree_name":         t.TreeName,
		"sub_table_name":    t.SubTableName,
		"sub_table_fk_name": t.SubTableFKName,
		"data_source_id":    t.DataSourceID,
		"remark":            t.Remark,
		"created_by":        t.CreatedBy,
		"updated_by":        t.UpdatedBy,
		"created_at":        t.CreatedAt,
		"updated_at":        t.UpdatedAt,
	}
	if withColumns {
		columns := make([]gin.H, 0, len(t.Columns))
		for i := range t.Columns {
			columns = append(columns, formatColumn(&t.Columns[i]))
		}
		out["columns"] = columns
	}
	return out
}

// formatColumn formats a column config into response JSON.
func formatColumn(col *models.GenTableColumn) gin.H {
	return gin.H{
		"id":                col.ID,
		"column_name":       col.ColumnName,
		"column_comment":    col.ColumnComment,
		"column_type":       col.ColumnType,
		"field_name":        col.FieldName,
		"field_type":        col.FieldType,
		"widget_type":       col.WidgetType,
		"dict_type":         col.DictType,
		"query_type":        col.QueryType,
		"is_pk":             col.IsPK,
		"is_increment":      col.IsIncrement,
		"is_required":       col.IsRequired,
		"is_insert":         col.IsInsert,
		"is_edit":           col.IsEdit,
		"is_list":           col.IsList,
		"is_query":          col.IsQuery,
		"widget_customized": col.WidgetCustomized,
		"query_customized":  col.QueryCustomized,
		"dict_customized":   col.DictCustomized,
		"sort":              col.Sort,
	}
}
