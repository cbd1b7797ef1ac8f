// Package syncer reconciles persisted column configs with a fresh inference pass.
package syncer

import (
	"fmt"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/inference"
	"github.com/router-for-me/CodegenAdmin/internal/models"
)

// Plan is the set of row changes that brings a table config in line with the live schema.
type Plan struct {
	Updates []models.GenTableColumn // Matched columns with refreshed values; IDs are kept.
	Inserts []models.GenTableColumn // Columns new to the schema.
	Deletes []models.GenTableColumn // Columns no longer in the schema.
}

// Empty reports whether applying the plan would change nothing structural.
func (p Plan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Deletes) == 0 && len(p.Updates) == 0
}

// Summary returns counts for logging and API responses.
func (p Plan) Summary() map[string]int {
	return map[string]int{
		"updated":  len(p.Updates),
		"inserted": len(p.Inserts),
		"deleted":  len(p.Deletes),
	}
}

// Reconcile diffs existing against inferred.
//
// Structural fields of matched columns are overwritten. The soft attributes
// (widget, query operator, dictionary) are refreshed only when they are not
// marked as user-set and still hold the engine sentinel. Zero inferred
// columns fail with ErrSchemaEmpty and yield no plan.
func Reconcile(existing []models.GenTableColumn, inferred []inference.Config) (Plan, error) {
	if len(inferred) == 0 {
		return Plan{}, fmt.Errorf("syncer: %w", apperrors.ErrSchemaEmpty)
	}

	byName := make(map[string]models.GenTableColumn, len(existing))
	tableID := uint64(0)
	for _, col := range existing {
		byName[col.ColumnName] = col
		tableID = col.TableID
	}

	var plan Plan
	seen := make(map[string]struct{}, len(inferred))
	maxSort := 0
	var fresh []inference.Config
	for i, cfg := range inferred {
		if _, dup := seen[cfg.ColumnName]; dup {
			continue
		}
		seen[cfg.ColumnName] = struct{}{}
		current, ok := byName[cfg.ColumnName]
		if !ok {
			fresh = append(fresh, cfg)
			continue
		}
		sort := i + 1
		if sort > maxSort {
			maxSort = sort
		}
		plan.Updates = append(plan.Updates, merge(current, cfg, sort))
	}

	for _, cfg := range fresh {
		maxSort++
		plan.Inserts = append(plan.Inserts, ColumnFromConfig(tableID, cfg, maxSort))
	}

	for _, col := range existing {
		if _, ok := seen[col.ColumnName]; !ok {
			plan.Deletes = append(plan.Deletes, col)
		}
	}
	return plan, nil
}

func merge(current models.GenTableColumn, cfg inference.Config, sort int) models.GenTableColumn {
	next := current
	next.ColumnComment = cfg.Comment
	next.ColumnType = cfg.NativeType
	next.FieldName = cfg.FieldName
	next.FieldType = cfg.FieldType
	next.IsPK = cfg.IsPK
	next.IsIncrement = cfg.IsIncrement
	next.IsRequired = cfg.IsRequired
	next.Sort = sort

	if !current.DictCustomized && current.DictType == inference.SentinelDict {
		next.DictType = cfg.DictType
	}
	if !current.QueryCustomized && current.QueryType == inference.SentinelQuery {
		next.QueryType = cfg.QueryType
	}
	if !current.WidgetCustomized && current.WidgetType == inference.SentinelWidget {
		next.WidgetType = cfg.WidgetType
	}
	return next
}

// ColumnFromConfig builds a new column row from an inferred config.
func ColumnFromConfig(tableID uint64, cfg inference.Config, sort int) models.GenTableColumn {
	return models.GenTableColumn{
		TableID:       tableID,
		ColumnName:    cfg.ColumnName,
		ColumnComment: cfg.Comment,
		ColumnType:    cfg.NativeType,
		FieldName:     cfg.FieldName,
		FieldType:     cfg.FieldType,
		WidgetType:    cfg.WidgetType,
		DictType:      cfg.DictType,
		QueryType:     cfg.QueryType,
		IsPK:          cfg.IsPK,
		IsIncrement:   cfg.IsIncrement,
		IsRequired:    cfg.IsRequired,
		IsInsert:      cfg.IsInsert,
		IsEdit:        cfg.IsEdit,
		IsList:        cfg.IsList,
		IsQuery:       cfg.IsQuery,
		Sort:          sort,
	}
}

// ColumnsFromConfigs builds the column rows of a freshly imported table.
func ColumnsFromConfigs(tableID uint64, configs []inference.Config) []models.GenTableColumn {
	out := make([]models.GenTableColumn, 0, len(configs))
	for i, cfg := range configs {
		out = append(out, ColumnFromConfig(tableID, cfg, i+1))
	}
	return out
}
