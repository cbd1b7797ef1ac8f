package templates

import (
	"strings"
	"testing"

	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
	"github.com/router-for-me/CodegenAdmin/internal/models"
)

func noticeTable(category models.TemplateCategory) models.GenTable {
	return models.GenTable{
		ID:             1,
		TableName:      "sys_notice",
		TableComment:   "Notices",
		ClassName:      "Notice",
		TplCategory:    category,
		PackageName:    "example.com/app",
		ModuleName:     "system",
		BusinessName:   "notice",
		FunctionName:   "Notice",
		FunctionAuthor: "alice",
		TreeCode:       "notice_id",
		TreeParentCode: "parent_id",
		TreeName:       "notice_title",
		SubTableName:   "sys_notice_item",
		SubTableFKName: "notice_id",
		Columns: []models.GenTableColumn{
			{ColumnName: "notice_id", FieldName: "noticeId", FieldType: "number", ColumnType: "bigint", WidgetType: "input", QueryType: "eq", IsPK: true, IsIncrement: true, IsRequired: true, IsEdit: true, IsList: true, IsQuery: true, Sort: 1},
			{ColumnName: "parent_id", FieldName: "parentId", FieldType: "number", ColumnType: "bigint", WidgetType: "input", QueryType: "eq", IsInsert: true, IsEdit: true, Sort: 2},
			{ColumnName: "notice_title", ColumnComment: "Title", FieldName: "noticeTitle", FieldType: "string", ColumnType: "varchar(50)", WidgetType: "input", QueryType: "like", IsRequired: true, IsInsert: true, IsEdit: true, IsList: true, IsQuery: true, Sort: 3},
			{ColumnName: "status", FieldName: "status", FieldType: "string", ColumnType: "char(1)", WidgetType: "radio", QueryType: "eq", DictType: "sys_normal_disable", IsInsert: true, IsEdit: true, IsList: true, IsQuery: true, Sort: 4},
			{ColumnName: "publish_time", FieldName: "publishTime", FieldType: "date", ColumnType: "timestamp", WidgetType: "datetime", QueryType: "between", IsInsert: true, IsEdit: true, IsList: true, IsQuery: true, Sort: 5},
		},
	}
}

func itemTable() *models.GenTable {
	return &models.GenTable{
		TableName:    "sys_notice_item",
		ClassName:    "NoticeItem",
		BusinessName: "noticeItem",
		ModuleName:   "system",
		Columns: []models.GenTableColumn{
			{ColumnName: "item_id", FieldName: "itemId", FieldType: "number", ColumnType: "bigint", IsPK: true, IsIncrement: true, Sort: 1},
			{ColumnName: "notice_id", FieldName: "noticeId", FieldType: "number", ColumnType: "bigint", IsRequired: true, Sort: 2},
		},
	}
}

func renderCategory(t *testing.T, category models.TemplateCategory) render.Outputs {
	t.Helper()
	reg := render.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	defs, ok := reg.Group(render.DefaultGroup)
	if !ok {
		t.Fatalf("default group missing")
	}
	ctx := render.NewContext(noticeTable(category), render.ContextOptions{Date: "2024-01-02", SubTable: itemTable()})
	return render.Render(ctx, defs)
}

func TestBuiltinRendersEveryCategory(t *testing.T) {
	for _, category := range []models.TemplateCategory{models.TemplateCategoryCRUD, models.TemplateCategoryTree, models.TemplateCategorySub} {
		outputs := renderCategory(t, category)
		if failures := outputs.Failures(); len(failures) > 0 {
			t.Fatalf("%s: unexpected failures: %v", category, failures[0].Err)
		}
		files := outputs.Map()
		for _, path := range []string{
			"backend/internal/models/notice.go",
			"backend/internal/handlers/notice.go",
			"backend/internal/routes/notice.go",
			"frontend/src/types/system/notice.ts",
			"frontend/src/api/system/notice.ts",
			"frontend/src/views/system/notice/index.vue",
			"sql/notice_menu.sql",
		} {
			if strings.TrimSpace(files[path]) == "" {
				t.Fatalf("%s: missing %s", category, path)
			}
		}
		_, hasChild := files["backend/internal/models/noticeItem.go"]
		if hasChild != (category == models.TemplateCategorySub) {
			t.Fatalf("%s: child model presence = %v", category, hasChild)
		}
	}
}

func TestGoModelContent(t *testing.T) {
	files := renderCategory(t, models.TemplateCategoryCRUD).Map()
	model := files["backend/internal/models/notice.go"]
	for _, want := range []string{
		"package models",
		"type Notice struct",
		`gorm:"column:notice_id;primaryKey;autoIncrement"`,
		"PublishTime *time.Time",
		`return "sys_notice"`,
		"Author: alice",
	} {
		if !strings.Contains(model, want) {
			t.Fatalf("model missing %q:\n%s", want, model)
		}
	}
}

func TestCategorySpecificFragments(t *testing.T) {
	tree := renderCategory(t, models.TemplateCategoryTree).Map()
	if !strings.Contains(tree["frontend/src/api/system/notice.ts"], "buildNoticeTree") {
		t.Fatalf("tree api must carry the tree builder")
	}
	if !strings.Contains(tree["backend/internal/models/notice.go"], "Children") {
		t.Fatalf("tree model must carry children")
	}
	sub := renderCategory(t, models.TemplateCategorySub).Map()
	if !strings.Contains(sub["backend/internal/handlers/notice.go"], `Preload("NoticeItemList")`) {
		t.Fatalf("sub handler must preload children")
	}
	if !strings.Contains(sub["frontend/src/types/system/notice.ts"], "export interface NoticeItem") {
		t.Fatalf("sub types must declare the child interface")
	}
}

func TestHandlerQueryOperators(t *testing.T) {
	handler := renderCategory(t, models.TemplateCategoryCRUD).Map()["backend/internal/handlers/notice.go"]
	for _, want := range []string{
		`q.Where("notice_title LIKE ?"`,
		`c.Query("beginPublishTime")`,
		`q.Where("status = ?"`,
	} {
		if !strings.Contains(handler, want) {
			t.Fatalf("handler missing %q", want)
		}
	}
}

func TestMenuScriptPermissions(t *testing.T) {
	menu := renderCategory(t, models.TemplateCategoryCRUD).Map()["sql/notice_menu.sql"]
	for _, want := range []string{"'system:notice:list'", "'system:notice:remove'", "'Add Notice'", "sys_normal_disable"} {
		if !strings.Contains(menu, want) {
			t.Fatalf("menu missing %q:\n%s", want, menu)
		}
	}
}

func TestMissingPrimaryKeyFailsOnlyDependentTemplates(t *testing.T) {
	table := noticeTable(models.TemplateCategoryCRUD)
	for i := range table.Columns {
		table.Columns[i].IsPK = false
	}
	reg := render.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	defs, _ := reg.Group(render.DefaultGroup)
	outputs := render.Render(render.NewContext(table, render.ContextOptions{Date: "2024-01-02"}), defs)

	failed := map[string]bool{}
	for _, out := range outputs {
		failed[out.TemplateID] = out.Failed()
	}
	for _, id := range []string{"go-handler", "go-routes", "ts-api", "vue-index"} {
		if !failed[id] {
			t.Fatalf("%s should fail without a primary key", id)
		}
	}
	for _, id := range []string{"go-model", "ts-types", "sql-menu"} {
		if failed[id] {
			t.Fatalf("%s should not fail without a primary key", id)
		}
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	first := renderCategory(t, models.TemplateCategoryTree).Map()
	second := renderCategory(t, models.TemplateCategoryTree).Map()
	for path, content := range first {
		if second[path] != content {
			t.Fatalf("%s differs between runs", path)
		}
	}
}
