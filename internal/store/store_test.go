package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/inference"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/syncer"
	internaldb "github.com/router-for-me/CodegenAdmin/internal/db"
	"github.com/router-for-me/CodegenAdmin/internal/introspect"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	internalsettings "github.com/router-for-me/CodegenAdmin/internal/settings"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := internaldb.Open("file:" + filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if errMigrate := internaldb.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func introspectColumn(name, nativeType string) introspect.Column {
	return introspect.Column{Name: name, Type: nativeType, Nullable: true}
}

func seedTable(t *testing.T, s *TableStore, tenantID, name string) *models.GenTable {
	t.Helper()
	table := &models.GenTable{
		TenantID:    tenantID,
		TableName:   name,
		ClassName:   "Notice",
		TplCategory: models.TemplateCategoryCRUD,
		Columns: []models.GenTableColumn{
			{ColumnName: "id", FieldName: "id", FieldType: "number", WidgetType: "input", QueryType: "eq", IsPK: true, Sort: 1},
			{ColumnName: "title", FieldName: "title", FieldType: "string", WidgetType: "input", QueryType: "eq", Sort: 2},
		},
	}
	if err := s.Create(context.Background(), table); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return table
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	s := NewTableStore(openTestDB(t))
	seedTable(t, s, "t1", "sys_notice")
	err := s.Create(context.Background(), &models.GenTable{TenantID: "t1", TableName: "sys_notice", ClassName: "Notice"})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	seedTable(t, s, "t2", "sys_notice")
}

func TestCreateAllRollsBackOnConflict(t *testing.T) {
	conn := openTestDB(t)
	s := NewTableStore(conn)
	seedTable(t, s, "t1", "sys_notice")

	err := s.CreateAll(context.Background(), []*models.GenTable{
		{TenantID: "t1", TableName: "sys_user", ClassName: "User"},
		{TenantID: "t1", TableName: "sys_notice", ClassName: "Notice"},
	})
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var count int64
	if errCount := conn.Model(&models.GenTable{}).Where("tenant_id = ?", "t1").Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected the batch to roll back, found %d tables", count)
	}
}

func TestUpdateMarksCustomizedAttributes(t *testing.T) {
	s := NewTableStore(openTestDB(t))
	table := seedTable(t, s, "t1", "sys_notice")
	scope := tenant.Scope{TenantID: "t1"}
	title := table.Columns[1]

	widget, query := "select", "eq"
	updated, err := s.Update(context.Background(), scope, table.ID, TableUpdate{
		Columns: []ColumnUpdate{{ID: title.ID, WidgetType: &widget, QueryType: &query}},
	}, "alice")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	col := updated.Columns[1]
	if col.WidgetType != "select" || !col.WidgetCustomized {
		t.Fatalf("widget edit must be flagged: %+v", col)
	}
	if col.QueryCustomized {
		t.Fatalf("unchanged query operator must not be flagged")
	}
	if updated.UpdatedBy != "alice" {
		t.Fatalf("expected updated_by alice, got %q", updated.UpdatedBy)
	}

	bad := "spinner"
	_, err = s.Update(context.Background(), scope, table.ID, TableUpdate{
		Columns: []ColumnUpdate{{ID: title.ID, WidgetType: &bad}},
	}, "alice")
	if !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	tree := models.TemplateCategoryTree
	_, err = s.Update(context.Background(), scope, table.ID, TableUpdate{TplCategory: &tree}, "alice")
	if !apperrors.IsValidation(err) {
		t.Fatalf("tree without tree columns must fail, got %v", err)
	}

	if _, err = s.Update(context.Background(), tenant.Scope{TenantID: "t2"}, table.ID, TableUpdate{}, "bob"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign tenant must not see the table, got %v", err)
	}
}

func TestApplySyncPlanPreservesCustomization(t *testing.T) {
	s := NewTableStore(openTestDB(t))
	table := seedTable(t, s, "t1", "sys_notice")
	scope := tenant.Scope{TenantID: "t1"}
	widget := "textarea"
	if _, err := s.Update(context.Background(), scope, table.ID, TableUpdate{
		Columns: []ColumnUpdate{{ID: table.Columns[1].ID, WidgetType: &widget}},
	}, "alice"); err != nil {
		t.Fatalf("update: %v", err)
	}
	current, _ := s.Get(context.Background(), scope, table.ID)

	engine := inference.NewEngine()
	inferred := []inference.Config{
		engine.InferColumn(introspectColumn("title", "varchar(50)")),
		engine.InferColumn(introspectColumn("status", "char(1)")),
	}
	plan, err := syncer.Reconcile(current.Columns, inferred)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	comment := "Notices"
	if errApply := s.ApplySyncPlan(context.Background(), scope, table.ID, plan, &comment, "bob"); errApply != nil {
		t.Fatalf("apply: %v", errApply)
	}

	synced, _ := s.Get(context.Background(), scope, table.ID)
	if len(synced.Columns) != 2 {
		t.Fatalf("expected 2 columns after sync, got %d", len(synced.Columns))
	}
	if synced.Columns[0].ColumnName != "title" || synced.Columns[0].WidgetType != "textarea" {
		t.Fatalf("customized widget must survive sync: %+v", synced.Columns[0])
	}
	if synced.Columns[1].ColumnName != "status" || synced.Columns[1].WidgetType != "radio" {
		t.Fatalf("new column must carry inferred defaults: %+v", synced.Columns[1])
	}
	if synced.TableComment != "Notices" || synced.UpdatedBy != "bob" {
		t.Fatalf("table must be touched by sync: %+v", synced)
	}
}

func TestDeleteRemovesColumnsAndHistory(t *testing.T) {
	conn := openTestDB(t)
	s := NewTableStore(conn)
	table := seedTable(t, s, "t1", "sys_notice")
	if err := conn.Create(&models.GenHistory{TableID: table.ID, TenantID: "t1", TableName: "sys_notice", Artifacts: []byte("[]")}).Error; err != nil {
		t.Fatalf("seed history: %v", err)
	}

	if n, err := s.Delete(context.Background(), tenant.Scope{TenantID: "t2"}, []uint64{table.ID}); err != nil || n != 0 {
		t.Fatalf("foreign delete must be a no-op, got %d %v", n, err)
	}
	if n, err := s.Delete(context.Background(), tenant.Scope{TenantID: "t1"}, []uint64{table.ID}); err != nil || n != 1 {
		t.Fatalf("delete: %d %v", n, err)
	}
	var columns, histories int64
	conn.Model(&models.GenTableColumn{}).Count(&columns)
	conn.Model(&models.GenHistory{}).Count(&histories)
	if columns != 0 || histories != 0 {
		t.Fatalf("expected columns and history removed, got %d %d", columns, histories)
	}
}

func TestSettingStoreRefreshesSnapshot(t *testing.T) {
	s := NewSettingStore(openTestDB(t))
	ctx := context.Background()
	if err := s.Update(ctx, internalsettings.HistoryLimitKey, json.RawMessage(`"0"`)); !apperrors.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := s.Put(ctx, internalsettings.HistoryLimitKey, json.RawMessage(`3`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got := internalsettings.HistoryLimit(10); got != 3 {
		t.Fatalf("expected snapshot limit 3, got %d", got)
	}
	if _, err := s.Create(ctx, internalsettings.HistoryLimitKey, json.RawMessage(`4`)); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.Delete(ctx, internalsettings.HistoryLimitKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := internalsettings.HistoryLimit(10); got != 10 {
		t.Fatalf("expected fallback after delete, got %d", got)
	}
}

func TestSettingStoreReadsSeededScalars(t *testing.T) {
	conn := openTestDB(t)
	if errMigrate := internaldb.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate again: %v", errMigrate)
	}
	s := NewSettingStore(conn)
	ctx := context.Background()
	rows, errList := s.List(ctx)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	values := map[string]string{}
	for _, row := range rows {
		values[row.Key] = string(row.Value)
	}
	if values[internalsettings.HistoryLimitKey] != "10" {
		t.Fatalf("history limit = %q, want 10", values[internalsettings.HistoryLimitKey])
	}
	if err := s.Put(ctx, internalsettings.HistoryRetentionDaysKey, json.RawMessage(`45`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, errGet := s.Get(ctx, internalsettings.HistoryRetentionDaysKey)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if string(got.Value) != "45" {
		t.Fatalf("retention = %q, want 45", got.Value)
	}
	if days := internalsettings.HistoryRetentionDays(30); days != 45 {
		t.Fatalf("snapshot retention = %d, want 45", days)
	}
}

func TestTemplateStoreValidates(t *testing.T) {
	s := NewTemplateStore(openTestDB(t))
	ctx := context.Background()
	scope := tenant.Scope{TenantID: "t1"}
	group := &models.TemplateGroup{Name: "mine"}
	if err := s.CreateGroup(ctx, scope, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := s.CreateGroup(ctx, scope, &models.TemplateGroup{Name: "default"}); !apperrors.IsValidation(err) {
		t.Fatalf("reserved name must be rejected, got %v", err)
	}

	warnings, err := s.SaveTemplate(ctx, scope, &models.CustomTemplate{
		GroupID: group.ID, Name: "readme", PathTemplate: "docs/${businessName}.md", Content: "# ${className} ${mystery}",
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(warnings) != 1 || warnings[0] != "unknown identifier: mystery" {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if _, err = s.SaveTemplate(ctx, scope, &models.CustomTemplate{
		GroupID: group.ID, Name: "broken", PathTemplate: "x.txt", Content: "${className",
	}); !apperrors.IsValidation(err) {
		t.Fatalf("unclosed marker must be rejected, got %v", err)
	}

	loaded, err := s.GetGroup(ctx, scope, group.ID)
	if err != nil || len(loaded.Templates) != 1 || loaded.Templates[0].Language != "markdown" {
		t.Fatalf("unexpected group: %+v %v", loaded, err)
	}
	if _, err := s.GetGroup(ctx, tenant.Scope{TenantID: "t2"}, group.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign tenant must not see the group, got %v", err)
	}
}

func TestDataSourceDeleteBlockedWhileInUse(t *testing.T) {
	conn := openTestDB(t)
	s := NewDataSourceStore(conn)
	ctx := context.Background()
	scope := tenant.Scope{TenantID: "t1"}
	ds := &models.DataSource{Name: "local", Type: "sqlite", Path: filepath.Join(t.TempDir(), "ext.db")}
	if err := s.Create(ctx, scope, ds); err != nil {
		t.Fatalf("create: %v", err)
	}
	tables := NewTableStore(conn)
	table := seedTable(t, tables, "t1", "ext_notice")
	conn.Model(table).Update("data_source_id", ds.ID)

	if err := s.Delete(ctx, scope, ds.ID); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := tables.Delete(ctx, scope, []uint64{table.ID}); err != nil {
		t.Fatalf("delete table: %v", err)
	}
	if err := s.Delete(ctx, scope, ds.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestValidateSetting(t *testing.T) {
	cases := []struct {
		key   string
		value string
		ok    bool
	}{
		{"GEN_HISTORY_LIMIT", `5`, true},
		{"GEN_HISTORY_LIMIT", `0`, false},
		{"GEN_RATE_LIMIT", `0`, true},
		{"GEN_RATE_LIMIT", `-1`, false},
		{"GEN_RATE_LIMIT_REDIS_ENABLED", `"on"`, true},
		{"GEN_RATE_LIMIT_REDIS_ENABLED", `"maybe"`, false},
		{"GEN_DEFAULT_AUTHOR", `"alice"`, true},
		{"GEN_DEFAULT_AUTHOR", `7`, false},
		{"CUSTOM_KEY", `{"any":"json"}`, true},
		{"CUSTOM_KEY", `{broken`, false},
		{" ", `1`, false},
	}
	for _, tc := range cases {
		err := ValidateSetting(tc.key, json.RawMessage(tc.value))
		if (err == nil) != tc.ok {
			t.Fatalf("ValidateSetting(%q, %s) err=%v, want ok=%v", tc.key, tc.value, err, tc.ok)
		}
		if err != nil && !apperrors.IsValidation(err) {
			t.Fatalf("ValidateSetting(%q) returned non-validation error %v", tc.key, err)
		}
	}
}
