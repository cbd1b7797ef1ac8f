package render

import (
	"sort"
	"strings"
)

// Vars returns the identifiers available to `${...}` templates.
func (c *Context) Vars() map[string]string {
	vars := map[string]string{
		"tableName":        c.TableName,
		"tableComment":     c.TableComment,
		"className":        c.ClassName,
		"classNameLower":   c.ClassNameLower,
		"businessName":     c.BusinessName,
		"routePath":        c.RoutePath,
		"moduleName":       c.ModuleName,
		"packageName":      c.PackageName,
		"functionName":     c.FunctionName,
		"author":           c.Author,
		"date":             c.Date,
		"permissionPrefix": c.PermissionPrefix,
		"tplCategory":      string(c.Category),
		"pkColumn":         "",
		"pkField":          "",
		"pkGoType":         "",
		"columnNames":      joinColumns(c.Columns, func(col Column) string { return col.ColumnName }),
		"fieldNames":       joinColumns(c.Columns, func(col Column) string { return col.FieldName }),
		"listFields":       joinColumns(c.ListColumns, func(col Column) string { return col.FieldName }),
		"queryFields":      joinColumns(c.QueryColumns, func(col Column) string { return col.FieldName }),
		"treeCode":         "",
		"treeParentCode":   "",
		"treeName":         "",
		"subTableName":     "",
		"subClassName":     "",
		"subBusinessName":  "",
		"subTableFkName":   c.SubFKName,
	}
	if c.PK != nil {
		vars["pkColumn"] = c.PK.ColumnName
		vars["pkField"] = c.PK.FieldName
		vars["pkGoType"] = c.PK.GoType
	}
	if c.Tree != nil {
		vars["treeCode"] = c.Tree.Code
		vars["treeParentCode"] = c.Tree.ParentCode
		vars["treeName"] = c.Tree.Name
	}
	if c.Sub != nil {
		vars["subTableName"] = c.Sub.TableName
		vars["subClassName"] = c.Sub.ClassName
		vars["subBusinessName"] = c.Sub.BusinessName
	}
	return vars
}

// KnownIdentifiers lists every identifier Vars provides, sorted.
func KnownIdentifiers() []string {
	vars := (&Context{}).Vars()
	out := make([]string, 0, len(vars))
	for key := range vars {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func joinColumns(cols []Column, pick func(Column) string) string {
	parts := make([]string, 0, len(cols))
	for _, col := range cols {
		parts = append(parts, pick(col))
	}
	return strings.Join(parts, ",")
}
