// Package generator orchestrates import, sync, preview and generation of table configs.
package generator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/history"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/inference"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/packaging"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/preview"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/syncer"
	"github.com/router-for-me/CodegenAdmin/internal/config"
	"github.com/router-for-me/CodegenAdmin/internal/introspect"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	internalsettings "github.com/router-for-me/CodegenAdmin/internal/settings"
	"github.com/router-for-me/CodegenAdmin/internal/store"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	log "github.com/sirupsen/logrus"
)

// dateLayout is the generation date stamped into rendered files.
const dateLayout = "2006-01-02"

// IntrospectorSource resolves the introspector of a data source.
type IntrospectorSource interface {
	Introspector(ctx context.Context, scope tenant.Scope, dataSourceID *uint64) (introspect.Introspector, error)
}

// Deps wires a Generator.
type Deps struct {
	Tables    *store.TableStore
	Templates *store.TemplateStore
	History   *history.Store
	Sources   IntrospectorSource
	Engine    *inference.Engine
	Registry  *render.Registry
	Config    config.GeneratorConfig
	Now       func() time.Time
}

// Generator runs generator operations for one tenant scope per call.
type Generator struct {
	tables    *store.TableStore
	templates *store.TemplateStore
	history   *history.Store
	sources   IntrospectorSource
	engine    *inference.Engine
	registry  *render.Registry
	cfg       config.GeneratorConfig
	now       func() time.Time
}

// New constructs a Generator.
func New(deps Deps) *Generator {
	g := &Generator{
		tables:    deps.Tables,
		templates: deps.Templates,
		history:   deps.History,
		sources:   deps.Sources,
		engine:    deps.Engine,
		registry:  deps.Registry,
		cfg:       deps.Config,
		now:       deps.Now,
	}
	if g.engine == nil {
		g.engine = inference.NewEngine()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// internalTables are the generator's own tables, hidden from import on the primary database.
var internalTables = []string{
	"gen_tables", "gen_table_columns", "gen_histories",
	"data_sources", "template_groups", "custom_templates", "settings",
}

// ListDBTables returns the importable tables of a data source that the tenant has not imported yet.
func (g *Generator) ListDBTables(ctx context.Context, scope tenant.Scope, dataSourceID *uint64, filter introspect.Filter) ([]introspect.Table, error) {
	insp, errInsp := g.sources.Introspector(ctx, scope, dataSourceID)
	if errInsp != nil {
		return nil, errInsp
	}
	if dataSourceID == nil || *dataSourceID == 0 {
		filter.Exclude = append(filter.Exclude, internalTables...)
	}
	tables, errList := insp.ListTables(ctx, filter)
	if errList != nil {
		return nil, errList
	}
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.Name)
	}
	imported, errImported := g.tables.ImportedNames(ctx, scope.TenantID, names)
	if errImported != nil {
		return nil, errImported
	}
	out := make([]introspect.Table, 0, len(tables))
	for _, table := range tables {
		if _, done := imported[table.Name]; !done {
			out = append(out, table)
		}
	}
	return out, nil
}

// ImportTables introspects names, infers their column configs and persists them.
// A name the tenant already imported is a conflict and nothing is written.
func (g *Generator) ImportTables(ctx context.Context, scope tenant.Scope, dataSourceID *uint64, names []string, operator string) ([]models.GenTable, error) {
	names = uniqueNames(names)
	if len(names) == 0 {
		return nil, apperrors.Validationf("no table names given")
	}
	imported, errImported := g.tables.ImportedNames(ctx, scope.TenantID, names)
	if errImported != nil {
		return nil, errImported
	}
	if len(imported) > 0 {
		dups := make([]string, 0, len(imported))
		for name := range imported {
			dups = append(dups, name)
		}
		sort.Strings(dups)
		return nil, fmt.Errorf("tables already imported: %s: %w", strings.Join(dups, ", "), apperrors.ErrConflict)
	}

	insp, errInsp := g.sources.Introspector(ctx, scope, dataSourceID)
	if errInsp != nil {
		return nil, errInsp
	}
	live, errLive := insp.ListTables(ctx, introspect.Filter{})
	if errLive != nil {
		return nil, errLive
	}
	comments := make(map[string]string, len(live))
	for _, table := range live {
		comments[table.Name] = table.Comment
	}

	author := internalsettings.DefaultAuthor(g.cfg.Author)
	pending := make([]*models.GenTable, 0, len(names))
	for _, name := range names {
		columns, errColumns := insp.ListColumns(ctx, name)
		if errColumns != nil {
			return nil, errColumns
		}
		if len(columns) == 0 {
			return nil, fmt.Errorf("table %s: %w", name, apperrors.ErrNotFound)
		}
		table := g.newTable(scope.TenantID, name, comments[name], author, operator, dataSourceID)
		table.Columns = syncer.ColumnsFromConfigs(0, g.engine.Infer(columns))
		pending = append(pending, table)
	}

	if errCreate := g.tables.CreateAll(ctx, pending); errCreate != nil {
		return nil, errCreate
	}
	out := make([]models.GenTable, 0, len(pending))
	for _, table := range pending {
		log.WithFields(log.Fields{
			"tenant":  scope.TenantID,
			"table":   table.TableName,
			"columns": len(table.Columns),
		}).Info("table imported")
		out = append(out, *table)
	}
	return out, nil
}

func (g *Generator) newTable(tenantID, name, comment, author, operator string, dataSourceID *uint64) *models.GenTable {
	base := name
	if g.cfg.AutoRemovePrefix {
		base = inference.RemovePrefix(name, g.cfg.TablePrefixes)
	}
	var dsID *uint64
	if dataSourceID != nil && *dataSourceID != 0 {
		id := *dataSourceID
		dsID = &id
	}
	return &models.GenTable{
		TenantID:       tenantID,
		TableName:      name,
		TableComment:   comment,
		ClassName:      inference.ClassName(name, g.cfg.TablePrefixes, g.cfg.AutoRemovePrefix),
		TplCategory:    models.TemplateCategoryCRUD,
		PackageName:    g.cfg.PackageName,
		ModuleName:     g.cfg.ModuleName,
		BusinessName:   inference.BusinessName(base),
		FunctionName:   inference.FunctionName(base, comment),
		FunctionAuthor: author,
		DataSourceID:   dsID,
		CreatedBy:      operator,
		UpdatedBy:      operator,
	}
}

// SyncResult reports what a sync changed.
type SyncResult struct {
	TableID uint64         `json:"table_id"`
	Changes map[string]int `json:"changes"`
}

// SyncTable reconciles a table config with the live schema.
func (g *Generator) SyncTable(ctx context.Context, scope tenant.Scope, tableID uint64, operator string) (*SyncResult, error) {
	table, errGet := g.tables.Get(ctx, scope, tableID)
	if errGet != nil {
		return nil, errGet
	}
	insp, errInsp := g.sources.Introspector(ctx, scope, table.DataSourceID)
	if errInsp != nil {
		return nil, errInsp
	}
	columns, errColumns := insp.ListColumns(ctx, table.TableName)
	if errColumns != nil {
		return nil, errColumns
	}
	plan, errPlan := syncer.Reconcile(table.Columns, g.engine.Infer(columns))
	if errPlan != nil {
		return nil, fmt.Errorf("sync %s: %w", table.TableName, errPlan)
	}

	var comment *string
	if live, errLive := insp.ListTables(ctx, introspect.Filter{Name: table.TableName}); errLive == nil {
		for _, item := range live {
			if item.Name == table.TableName && item.Comment != "" {
				c := item.Comment
				comment = &c
			}
		}
	}
	if errApply := g.tables.ApplySyncPlan(ctx, scope, tableID, plan, comment, operator); errApply != nil {
		return nil, errApply
	}
	log.WithFields(log.Fields{
		"tenant":   scope.TenantID,
		"table":    table.TableName,
		"updated":  len(plan.Updates),
		"inserted": len(plan.Inserts),
		"deleted":  len(plan.Deletes),
	}).Info("table synced")
	return &SyncResult{TableID: tableID, Changes: plan.Summary()}, nil
}

// RenderFailure is a template that failed for a table.
type RenderFailure struct {
	TemplateID string `json:"template_id"`
	Path       string `json:"path"`
	Error      string `json:"error"`
}

// PreviewResult is the rendered view of one table.
type PreviewResult struct {
	TableID   uint64             `json:"table_id"`
	TableName string             `json:"table_name"`
	Artifacts []preview.Artifact `json:"artifacts"`
	Tree      []*preview.Node    `json:"tree"`
	Failures  []RenderFailure    `json:"failures"`
}

// Preview renders a table with the template group groupID (0 is the built-in group).
func (g *Generator) Preview(ctx context.Context, scope tenant.Scope, tableID, groupID uint64) (*PreviewResult, error) {
	table, errGet := g.tables.Get(ctx, scope, tableID)
	if errGet != nil {
		return nil, errGet
	}
	defs, errDefs := g.definitions(ctx, scope, groupID)
	if errDefs != nil {
		return nil, errDefs
	}
	return g.renderTable(ctx, table, defs), nil
}

func (g *Generator) renderTable(ctx context.Context, table *models.GenTable, defs []render.Definition) *PreviewResult {
	opts := render.ContextOptions{
		Date:   g.now().Format(dateLayout),
		Author: internalsettings.DefaultAuthor(g.cfg.Author),
	}
	if table.TplCategory == models.TemplateCategorySub && table.SubTableName != "" {
		sub, errSub := g.tables.GetByName(ctx, table.TenantID, table.SubTableName)
		if errSub != nil {
			log.WithField("table", table.TableName).WithError(errSub).Warn("child table config unavailable")
		} else {
			opts.SubTable = sub
		}
	}
	outputs := render.Render(render.NewContext(*table, opts), defs)
	built := preview.Build(outputs)
	result := &PreviewResult{
		TableID:   table.ID,
		TableName: table.TableName,
		Artifacts: built.Artifacts,
		Tree:      built.Tree,
		Failures:  []RenderFailure{},
	}
	for _, failed := range outputs.Failures() {
		result.Failures = append(result.Failures, RenderFailure{
			TemplateID: failed.TemplateID,
			Path:       failed.Path,
			Error:      failed.Err.Error(),
		})
	}
	return result
}

func (g *Generator) definitions(ctx context.Context, scope tenant.Scope, groupID uint64) ([]render.Definition, error) {
	if groupID == 0 {
		defs, ok := g.registry.Group(render.DefaultGroup)
		if !ok {
			return nil, fmt.Errorf("generator: built-in templates are not registered")
		}
		return defs, nil
	}
	group, errGroup := g.templates.GetGroup(ctx, scope, groupID)
	if errGroup != nil {
		return nil, errGroup
	}
	return render.CustomDefinitions(group.Templates), nil
}

// TableResult is the outcome of one table in a batch.
type TableResult struct {
	TableID   uint64             `json:"table_id"`
	TableName string             `json:"table_name"`
	Artifacts []preview.Artifact `json:"artifacts,omitempty"`
	Failures  []RenderFailure    `json:"failures,omitempty"`
	HistoryID uint64             `json:"history_id,omitempty"`
	Error     string             `json:"error,omitempty"`

	// HistoryError reports a snapshot that could not be stored. The rendered
	// artifacts are still returned.
	HistoryError string `json:"history_error,omitempty"`
}

// BatchResult is the outcome of a batch generation.
type BatchResult struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Tables      []TableResult `json:"tables"`
}

// Succeeded returns the tables that loaded and rendered, whether or not their
// history snapshot was stored.
func (b *BatchResult) Succeeded() []TableResult {
	out := make([]TableResult, 0, len(b.Tables))
	for _, item := range b.Tables {
		if item.Error == "" {
			out = append(out, item)
		}
	}
	return out
}

// Generate renders tableIDs one after another. A table that fails to load is
// reported in its slot without stopping the others; a failed history write
// only sets HistoryError. It fails only when no table resolves.
func (g *Generator) Generate(ctx context.Context, scope tenant.Scope, tableIDs []uint64, groupID uint64, operator string) (*BatchResult, error) {
	if len(tableIDs) == 0 {
		return nil, apperrors.Validationf("no table ids given")
	}
	defs, errDefs := g.definitions(ctx, scope, groupID)
	if errDefs != nil {
		return nil, errDefs
	}
	batch := &BatchResult{RunID: uuid.NewString(), GeneratedAt: g.now().UTC()}
	logger := log.WithFields(log.Fields{"run_id": batch.RunID, "tenant": scope.TenantID})

	resolved := 0
	for _, id := range tableIDs {
		if errCtx := ctx.Err(); errCtx != nil {
			return nil, errCtx
		}
		table, errGet := g.tables.Get(ctx, scope, id)
		if errGet != nil {
			logger.WithField("table_id", id).WithError(errGet).Warn("generation skipped table")
			batch.Tables = append(batch.Tables, TableResult{TableID: id, Error: errGet.Error()})
			continue
		}
		resolved++
		rendered := g.renderTable(ctx, table, defs)
		item := TableResult{
			TableID:   table.ID,
			TableName: table.TableName,
			Artifacts: rendered.Artifacts,
			Failures:  rendered.Failures,
		}
		snap, errRecord := g.history.Record(ctx, history.RecordInput{
			TableID:         table.ID,
			TenantID:        table.TenantID,
			TableName:       table.TableName,
			TemplateGroupID: groupID,
			Operator:        operator,
			Artifacts:       rendered.Artifacts,
			GeneratedAt:     batch.GeneratedAt,
		})
		if errRecord != nil {
			logger.WithField("table", table.TableName).WithError(errRecord).Warn("history snapshot failed")
			item.HistoryError = errRecord.Error()
		} else {
			item.HistoryID = snap.ID
		}
		batch.Tables = append(batch.Tables, item)
	}
	if resolved == 0 {
		return nil, fmt.Errorf("none of the requested tables exist: %w", apperrors.ErrNotFound)
	}
	logger.WithField("tables", resolved).Info("generation finished")
	return batch, nil
}

// Archive is a generated zip.
type Archive struct {
	FileName string
	Data     []byte
	Files    int
	Batch    *BatchResult
}

// Download generates tableIDs and packs the artifacts into a zip. Files of a
// multi-table batch are grouped under the table name.
func (g *Generator) Download(ctx context.Context, scope tenant.Scope, tableIDs []uint64, groupID uint64, operator string) (*Archive, error) {
	batch, errGenerate := g.Generate(ctx, scope, tableIDs, groupID, operator)
	if errGenerate != nil {
		return nil, errGenerate
	}
	succeeded := batch.Succeeded()
	var entries []packaging.Entry
	for _, item := range succeeded {
		prefix := ""
		if len(succeeded) > 1 {
			prefix = item.TableName
		}
		entries = append(entries, packaging.EntriesFromArtifacts(prefix, item.Artifacts)...)
	}
	data, files, errZip := packaging.Zip(entries, batch.GeneratedAt)
	if errZip != nil {
		return nil, errZip
	}
	name := "codegen-" + batch.GeneratedAt.Format("20060102150405") + ".zip"
	if len(succeeded) == 1 {
		name = succeeded[0].TableName + ".zip"
	}
	return &Archive{FileName: name, Data: data, Files: files, Batch: batch}, nil
}

// Snapshot returns a stored snapshot, for regeneration-free downloads of past runs.
func (g *Generator) Snapshot(ctx context.Context, scope tenant.Scope, historyID uint64) (*history.Snapshot, error) {
	snap, errGet := g.history.Get(ctx, scope, historyID)
	if errGet != nil {
		if errors.Is(errGet, apperrors.ErrSnapshotCorrupt) {
			log.WithField("history_id", historyID).WithError(errGet).Warn("snapshot unreadable")
		}
		return nil, errGet
	}
	return snap, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
