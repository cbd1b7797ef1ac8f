// Package templates holds the built-in template group.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-openapi/inflect"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/inference"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed files/*.tmpl
var files embed.FS

// Funcs returns the function map shared by the text templates.
func Funcs() template.FuncMap {
	titleCaser := cases.Title(language.English)
	return template.FuncMap{
		"lower":      strings.ToLower,
		"upper":      strings.ToUpper,
		"title":      titleCaser.String,
		"lowerFirst": lowerFirst,
		"upperFirst": upperFirst,
		"plural":     inflect.Pluralize,
		"humanize":   inflect.Humanize,
		"join":       strings.Join,
		"fields":     strings.Fields,
		"add":        func(a, b int) int { return a + b },
		"sqlQuote":   func(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" },
		"sqlOp":      sqlOperator,
		"widgetTag":  widgetTag,
	}
}

// Builtin returns the built-in definitions in render order.
func Builtin() []render.Definition {
	return []render.Definition{
		{
			ID:           "go-model",
			Name:         "Go model",
			PathTemplate: "backend/internal/models/${businessName}.go",
			Render:       renderGoModel,
		},
		{
			ID:           "go-model-sub",
			Name:         "Go child model",
			PathTemplate: "backend/internal/models/${subBusinessName}.go",
			Categories:   []models.TemplateCategory{models.TemplateCategorySub},
			When:         func(ctx *render.Context) bool { return ctx.Sub != nil },
			Render:       func(ctx *render.Context) (string, error) { return renderGoModel(ctx.Sub) },
		},
		textDefinition("go-handler", "Go handler", "backend/internal/handlers/${businessName}.go", "handler.go.tmpl", true),
		textDefinition("go-routes", "Go routes", "backend/internal/routes/${businessName}.go", "routes.go.tmpl", true),
		textDefinition("ts-types", "TypeScript types", "frontend/src/types/${moduleName}/${businessName}.ts", "types.ts.tmpl", false),
		textDefinition("ts-api", "TypeScript API", "frontend/src/api/${moduleName}/${businessName}.ts", "api.ts.tmpl", true),
		textDefinition("vue-index", "Vue list page", "frontend/src/views/${moduleName}/${businessName}/index.vue", "index.vue.tmpl", true),
		textDefinition("sql-menu", "SQL menu", "sql/${businessName}_menu.sql", "menu.sql.tmpl", false),
	}
}

// Register adds the built-in definitions to reg under render.DefaultGroup.
func Register(reg *render.Registry) error {
	return reg.Register(render.DefaultGroup, Builtin()...)
}

func textDefinition(id, name, pathTemplate, file string, needsPK bool) render.Definition {
	return render.Definition{
		ID:           id,
		Name:         name,
		PathTemplate: pathTemplate,
		Render: func(ctx *render.Context) (string, error) {
			if needsPK && ctx.PK == nil {
				return "", fmt.Errorf("table %s has no primary key", ctx.TableName)
			}
			return execute(file, ctx)
		},
	}
}

func execute(file string, data any) (string, error) {
	content, err := files.ReadFile("files/" + file)
	if err != nil {
		return "", err
	}
	tmpl := template.New(file).Funcs(Funcs()).Option("missingkey=error")
	if strings.HasSuffix(file, ".vue.tmpl") {
		tmpl = tmpl.Delims("[[", "]]")
	}
	tmpl, err = tmpl.Parse(string(content))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sqlOperator(queryType string) string {
	switch queryType {
	case inference.QueryNE:
		return "<>"
	case inference.QueryGT:
		return ">"
	case inference.QueryGTE:
		return ">="
	case inference.QueryLT:
		return "<"
	case inference.QueryLTE:
		return "<="
	case inference.QueryLike:
		return "LIKE"
	default:
		return "="
	}
}

// widgetTag maps a widget to the element-plus component used by the list page.
func widgetTag(widget string) string {
	switch widget {
	case inference.WidgetTextarea, inference.WidgetEditor:
		return "el-input"
	case inference.WidgetSelect:
		return "el-select"
	case inference.WidgetRadio:
		return "el-radio-group"
	case inference.WidgetCheckbox:
		return "el-checkbox-group"
	case inference.WidgetDatetime:
		return "el-date-picker"
	case inference.WidgetImageUpload, inference.WidgetFileUpload:
		return "el-upload"
	default:
		return "el-input"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
