package syncer

import (
	"errors"
	"testing"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/inference"
	"github.com/router-for-me/CodegenAdmin/internal/introspect"
	"github.com/router-for-me/CodegenAdmin/internal/models"
)

func infer(cols ...introspect.Column) []inference.Config {
	return inference.NewEngine().Infer(cols)
}

func TestReconcilePreservesCustomizedQueryOperator(t *testing.T) {
	existing := []models.GenTableColumn{{
		ID:            1,
		TableID:       9,
		ColumnName:    "title",
		ColumnComment: "old",
		WidgetType:    inference.WidgetInput,
		QueryType:     inference.QueryLike,
		Sort:          1,
	}}
	plan, err := Reconcile(existing, infer(introspect.Column{Name: "title", Comment: "new", Type: "varchar(64)"}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(plan.Updates) != 1 {
		t.Fatalf("expected one update, got %+v", plan)
	}
	updated := plan.Updates[0]
	if updated.ColumnComment != "new" {
		t.Fatalf("expected comment refresh, got %q", updated.ColumnComment)
	}
	if updated.QueryType != inference.QueryLike {
		t.Fatalf("customized query operator was reverted to %q", updated.QueryType)
	}
	if updated.ID != 1 {
		t.Fatalf("expected id to be kept")
	}
}

func TestReconcileHonoursExplicitCustomizedFlag(t *testing.T) {
	// The user picked the sentinel value on purpose; the flag keeps it.
	existing := []models.GenTableColumn{{
		ID: 1, TableID: 9, ColumnName: "status", WidgetType: inference.WidgetInput, WidgetCustomized: true,
		QueryType: inference.QueryEQ, DictType: "",
	}}
	plan, err := Reconcile(existing, infer(introspect.Column{Name: "status", Type: "char(1)"}))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	got := plan.Updates[0]
	if got.WidgetType != inference.WidgetInput {
		t.Fatalf("flagged widget was overwritten with %q", got.WidgetType)
	}
	if got.DictType != inference.DictNormalDisable {
		t.Fatalf("unflagged sentinel dictionary should refresh, got %q", got.DictType)
	}
}

func TestReconcileInsertsNewColumnsWithDefaults(t *testing.T) {
	existing := []models.GenTableColumn{
		{ID: 1, TableID: 9, ColumnName: "id", Sort: 1, IsPK: true},
		{ID: 2, TableID: 9, ColumnName: "legacy", Sort: 2},
	}
	plan, err := Reconcile(existing, infer(
		introspect.Column{Name: "id", Type: "bigint", PrimaryKey: true, AutoIncrement: true},
		introspect.Column{Name: "user_name", Type: "varchar(30)"},
	))
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(plan.Inserts) != 1 || len(plan.Deletes) != 1 || len(plan.Updates) != 1 {
		t.Fatalf("unexpected plan: %+v", plan.Summary())
	}
	inserted := plan.Inserts[0]
	if inserted.QueryType != inference.QueryLike || inserted.TableID != 9 || inserted.Sort != 2 {
		t.Fatalf("unexpected inserted column: %+v", inserted)
	}
	if plan.Deletes[0].ColumnName != "legacy" {
		t.Fatalf("expected legacy to be deleted, got %s", plan.Deletes[0].ColumnName)
	}
}

func TestReconcileRejectsSchemaWipe(t *testing.T) {
	existing := []models.GenTableColumn{{ID: 1, ColumnName: "id"}}
	plan, err := Reconcile(existing, nil)
	if !errors.Is(err, apperrors.ErrSchemaEmpty) {
		t.Fatalf("expected ErrSchemaEmpty, got %v", err)
	}
	if !plan.Empty() {
		t.Fatalf("expected no plan on schema wipe")
	}
}

func TestColumnsFromConfigsNumbersSort(t *testing.T) {
	cols := ColumnsFromConfigs(3, infer(
		introspect.Column{Name: "id", Type: "int"},
		introspect.Column{Name: "name", Type: "varchar(10)"},
	))
	if len(cols) != 2 || cols[0].Sort != 1 || cols[1].Sort != 2 || cols[1].TableID != 3 {
		t.Fatalf("unexpected columns: %+v", cols)
	}
}
