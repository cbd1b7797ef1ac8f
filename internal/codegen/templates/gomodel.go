package templates

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
)

// renderGoModel emits the gorm model struct of ctx.
func renderGoModel(ctx *render.Context) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("missing table context")
	}
	if len(ctx.Columns) == 0 {
		return "", fmt.Errorf("table %s has no columns", ctx.TableName)
	}

	f := jen.NewFile("models")
	f.HeaderComment(fmt.Sprintf("Code generated by codegen on %s. Author: %s.", ctx.Date, ctx.Author))

	fields := make([]jen.Code, 0, len(ctx.Columns)+2)
	for _, col := range ctx.Columns {
		fields = append(fields, goModelField(col))
	}
	if ctx.Tree != nil {
		fields = append(fields, jen.Id("Children").Index().Op("*").Id(ctx.ClassName).
			Tag(map[string]string{"gorm": "-", "json": "children,omitempty"}))
	}
	if ctx.Sub != nil && ctx.PK != nil {
		fields = append(fields, jen.Id(ctx.Sub.ClassName+"List").Index().Id(ctx.Sub.ClassName).
			Tag(map[string]string{
				"gorm": fmt.Sprintf("foreignKey:%s;references:%s", upperFirst(ctx.SubFKField), ctx.PK.FieldNameUpper),
				"json": ctx.Sub.ClassNameLower + "List",
			}))
	}

	comment := ctx.FunctionName
	if ctx.TableComment != "" {
		comment = ctx.TableComment
	}
	f.Commentf("%s maps table %s. %s", ctx.ClassName, ctx.TableName, comment)
	f.Type().Id(ctx.ClassName).Struct(fields...)
	f.Line()
	f.Comment("TableName returns the table backing " + ctx.ClassName + ".")
	f.Func().Params(jen.Id(ctx.ClassName)).Id("TableName").Params().String().Block(
		jen.Return(jen.Lit(ctx.TableName)),
	)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", fmt.Errorf("format model: %w", err)
	}
	return buf.String(), nil
}

func goModelField(col render.Column) jen.Code {
	gormParts := []string{"column:" + col.ColumnName}
	if col.IsPK {
		gormParts = append(gormParts, "primaryKey")
	}
	if col.IsIncrement {
		gormParts = append(gormParts, "autoIncrement")
	}
	if col.IsRequired && !col.IsPK {
		gormParts = append(gormParts, "not null")
	}

	stmt := jen.Id(col.FieldNameUpper)
	switch col.GoType {
	case "time.Time":
		if !col.IsRequired {
			stmt = stmt.Op("*")
		}
		stmt = stmt.Qual("time", "Time")
	default:
		stmt = stmt.Id(col.GoType)
	}
	stmt = stmt.Tag(map[string]string{
		"gorm": strings.Join(gormParts, ";"),
		"json": col.FieldName,
	})
	if comment := strings.TrimSpace(col.ColumnComment); comment != "" {
		stmt = stmt.Comment(comment)
	}
	return stmt
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
