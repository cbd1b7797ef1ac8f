// Package render turns a table config into generated source files.
package render

import (
	"sort"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/router-for-me/CodegenAdmin/internal/models"
)

// Column is a column as seen by templates.
type Column struct {
	models.GenTableColumn
	FieldNameUpper string // Exported field name, e.g. UserName.
	GoType         string // Go type of the field.
	TSType         string // TypeScript type of the field.
}

// TreeOptions carries the tree-layout columns.
type TreeOptions struct {
	Code        string // Node id column.
	ParentCode  string // Parent id column.
	Name        string // Label column.
	CodeField   string // Field name of Code.
	ParentField string // Field name of ParentCode.
	NameField   string // Field name of Name.
}

// Context is the read-only view of one table that templates render from.
type Context struct {
	Table    models.GenTable
	Category models.TemplateCategory

	TableName        string
	TableComment     string
	ClassName        string
	ClassNameLower   string
	BusinessName     string
	RoutePath        string // Pluralized business name used in URLs.
	ModuleName       string
	PackageName      string
	FunctionName     string
	Author           string
	Date             string
	PermissionPrefix string

	Columns       []Column
	PK            *Column
	ListColumns   []Column
	QueryColumns  []Column
	InsertColumns []Column
	EditColumns   []Column

	Tree *TreeOptions

	Sub        *Context // Child table for the sub layout.
	SubFKName  string   // Child column referencing this table.
	SubFKField string   // Field name of SubFKName.
}

// ContextOptions carries inputs that do not live on the table row.
type ContextOptions struct {
	Date     string           // Generation date stamped into files.
	Author   string           // Used when the table has no author.
	SubTable *models.GenTable // Loaded child table for the sub layout.
}

// NewContext builds the rendering context of table. Columns are ordered by sort.
func NewContext(table models.GenTable, opts ContextOptions) *Context {
	ctx := &Context{
		Table:        table,
		Category:     table.TplCategory,
		TableName:    table.TableName,
		TableComment: table.TableComment,
		ClassName:    table.ClassName,
		BusinessName: table.BusinessName,
		ModuleName:   table.ModuleName,
		PackageName:  table.PackageName,
		FunctionName: table.FunctionName,
		Author:       strings.TrimSpace(table.FunctionAuthor),
		Date:         opts.Date,
	}
	if ctx.Category == "" {
		ctx.Category = models.TemplateCategoryCRUD
	}
	if ctx.ClassName == "" {
		ctx.ClassName = inflect.Camelize(table.TableName)
	}
	if ctx.BusinessName == "" {
		ctx.BusinessName = strings.ToLower(ctx.ClassName)
	}
	if ctx.Author == "" {
		ctx.Author = opts.Author
	}
	if ctx.FunctionName == "" {
		ctx.FunctionName = ctx.ClassName
	}
	ctx.ClassNameLower = lowerFirst(ctx.ClassName)
	ctx.RoutePath = inflect.Pluralize(ctx.BusinessName)
	ctx.PermissionPrefix = ctx.ModuleName + ":" + ctx.BusinessName
	if ctx.ModuleName == "" {
		ctx.PermissionPrefix = ctx.BusinessName
	}

	cols := make([]models.GenTableColumn, len(table.Columns))
	copy(cols, table.Columns)
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Sort < cols[j].Sort })
	for _, col := range cols {
		c := newColumn(col)
		ctx.Columns = append(ctx.Columns, c)
		if col.IsPK && ctx.PK == nil {
			pk := c
			ctx.PK = &pk
		}
		if col.IsList {
			ctx.ListColumns = append(ctx.ListColumns, c)
		}
		if col.IsQuery {
			ctx.QueryColumns = append(ctx.QueryColumns, c)
		}
		if col.IsInsert {
			ctx.InsertColumns = append(ctx.InsertColumns, c)
		}
		if col.IsEdit {
			ctx.EditColumns = append(ctx.EditColumns, c)
		}
	}

	if ctx.Category == models.TemplateCategoryTree && table.TreeCode != "" {
		ctx.Tree = &TreeOptions{
			Code:        table.TreeCode,
			ParentCode:  table.TreeParentCode,
			Name:        table.TreeName,
			CodeField:   ctx.fieldFor(table.TreeCode),
			ParentField: ctx.fieldFor(table.TreeParentCode),
			NameField:   ctx.fieldFor(table.TreeName),
		}
	}

	if ctx.Category == models.TemplateCategorySub && opts.SubTable != nil {
		sub := *opts.SubTable
		if sub.TplCategory == models.TemplateCategorySub {
			sub.TplCategory = models.TemplateCategoryCRUD
		}
		ctx.Sub = NewContext(sub, ContextOptions{Date: opts.Date, Author: ctx.Author})
		ctx.SubFKName = table.SubTableFKName
		ctx.SubFKField = ctx.Sub.fieldFor(table.SubTableFKName)
	}
	return ctx
}

// HasColumn reports whether a column named name exists.
func (c *Context) HasColumn(name string) bool {
	for _, col := range c.Columns {
		if col.ColumnName == name {
			return true
		}
	}
	return false
}

// DictTypes returns the distinct dictionary references used by the columns.
func (c *Context) DictTypes() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, col := range c.Columns {
		if col.DictType == "" {
			continue
		}
		if _, ok := seen[col.DictType]; ok {
			continue
		}
		seen[col.DictType] = struct{}{}
		out = append(out, col.DictType)
	}
	return out
}

func (c *Context) fieldFor(columnName string) string {
	for _, col := range c.Columns {
		if col.ColumnName == columnName {
			return col.FieldName
		}
	}
	return inflect.CamelizeDownFirst(columnName)
}

func newColumn(col models.GenTableColumn) Column {
	fieldName := col.FieldName
	if fieldName == "" {
		fieldName = inflect.CamelizeDownFirst(col.ColumnName)
		col.FieldName = fieldName
	}
	return Column{
		GenTableColumn: col,
		FieldNameUpper: upperFirst(fieldName),
		GoType:         goType(col),
		TSType:         tsType(col),
	}
}

func goType(col models.GenTableColumn) string {
	switch col.FieldType {
	case "date":
		return "time.Time"
	case "number":
		lower := strings.ToLower(col.ColumnType)
		for _, marker := range []string{"decimal", "numeric", "float", "double", "real"} {
			if strings.Contains(lower, marker) {
				return "float64"
			}
		}
		return "int64"
	default:
		return "string"
	}
}

func tsType(col models.GenTableColumn) string {
	if col.FieldType == "number" {
		return "number"
	}
	return "string"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
