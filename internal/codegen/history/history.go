// Package history keeps bounded, tenant-scoped snapshots of generation runs.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/preview"
	"github.com/router-for-me/CodegenAdmin/internal/config"
	internaldb "github.com/router-for-me/CodegenAdmin/internal/db"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	internalsettings "github.com/router-for-me/CodegenAdmin/internal/settings"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store persists history snapshots.
type Store struct {
	db                *gorm.DB
	fallbackLimit     int
	fallbackRetention int
}

// NewStore constructs a Store. Non-positive fallbacks use the package defaults.
func NewStore(conn *gorm.DB, fallbackLimit, fallbackRetentionDays int) *Store {
	if fallbackLimit <= 0 {
		fallbackLimit = config.DefaultHistoryLimit
	}
	if fallbackRetentionDays <= 0 {
		fallbackRetentionDays = config.DefaultHistoryRetentionDays
	}
	return &Store{db: conn, fallbackLimit: fallbackLimit, fallbackRetention: fallbackRetentionDays}
}

// Limit returns the effective per-(table, tenant) cap.
func (s *Store) Limit() int {
	return internalsettings.HistoryLimit(s.fallbackLimit)
}

// RetentionDays returns the effective retention window.
func (s *Store) RetentionDays() int {
	return internalsettings.HistoryRetentionDays(s.fallbackRetention)
}

// RecordInput describes one snapshot to persist.
type RecordInput struct {
	TableID         uint64
	TenantID        string
	TableName       string
	TemplateGroupID uint64
	Operator        string
	Artifacts       []preview.Artifact
	GeneratedAt     time.Time
}

// Record inserts a snapshot and evicts the oldest ones beyond the cap, in one transaction.
func (s *Store) Record(ctx context.Context, in RecordInput) (*models.GenHistory, error) {
	if in.TableID == 0 || strings.TrimSpace(in.TenantID) == "" {
		return nil, apperrors.Validationf("history needs a table and a tenant")
	}
	artifacts := in.Artifacts
	if artifacts == nil {
		artifacts = []preview.Artifact{}
	}
	payload, errMarshal := json.Marshal(artifacts)
	if errMarshal != nil {
		return nil, fmt.Errorf("history: marshal artifacts: %w", errMarshal)
	}
	generatedAt := in.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	row := models.GenHistory{
		TableID:         in.TableID,
		TenantID:        in.TenantID,
		TableName:       in.TableName,
		TemplateGroupID: in.TemplateGroupID,
		Artifacts:       payload,
		FileCount:       len(artifacts),
		Operator:        in.Operator,
		GeneratedAt:     generatedAt.UTC(),
	}
	limit := s.Limit()

	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&row).Error; errCreate != nil {
			return fmt.Errorf("history: create: %w", errCreate)
		}
		var ids []uint64
		if errFind := tx.Model(&models.GenHistory{}).
			Where("table_id = ? AND tenant_id = ?", row.TableID, row.TenantID).
			Order("generated_at DESC").Order("id DESC").
			Pluck("id", &ids).Error; errFind != nil {
			return fmt.Errorf("history: find evictable: %w", errFind)
		}
		if len(ids) <= limit {
			return nil
		}
		stale := ids[limit:]
		if errDelete := tx.Where("id IN ?", stale).Delete(&models.GenHistory{}).Error; errDelete != nil {
			return fmt.Errorf("history: evict: %w", errDelete)
		}
		log.WithFields(log.Fields{
			"table_id": row.TableID,
			"tenant":   row.TenantID,
			"evicted":  len(stale),
		}).Debug("history cap enforced")
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return &row, nil
}

// Cleanup deletes snapshots older than retentionDays across all tenants.
// A non-positive retentionDays uses the effective retention window.
func (s *Store) Cleanup(ctx context.Context, retentionDays int, now time.Time) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = s.RetentionDays()
	}
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	res := s.db.WithContext(ctx).Where("generated_at < ?", cutoff).Delete(&models.GenHistory{})
	if res.Error != nil {
		return 0, fmt.Errorf("history: cleanup: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Snapshot is a decoded history row.
type Snapshot struct {
	ID              uint64             `json:"id"`
	TableID         uint64             `json:"table_id"`
	TenantID        string             `json:"tenant_id"`
	TableName       string             `json:"table_name"`
	TemplateGroupID uint64             `json:"template_group_id"`
	FileCount       int                `json:"file_count"`
	Operator        string             `json:"operator"`
	GeneratedAt     time.Time          `json:"generated_at"`
	Artifacts       []preview.Artifact `json:"artifacts,omitempty"`
	Corrupt         bool               `json:"corrupt,omitempty"`
}

// Get returns one snapshot visible to scope.
func (s *Store) Get(ctx context.Context, scope tenant.Scope, id uint64) (*Snapshot, error) {
	var row models.GenHistory
	q := scope.Apply(s.db.WithContext(ctx).Model(&models.GenHistory{}))
	if errFind := q.Where("id = ?", id).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("history: snapshot %d: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("history: get: %w", errFind)
	}
	artifacts, errDecode := decodeArtifacts(row.Artifacts)
	if errDecode != nil {
		return nil, fmt.Errorf("history: snapshot %d: %w", id, errDecode)
	}
	snap := snapshotFromRow(row)
	snap.Artifacts = artifacts
	return &snap, nil
}

// ListQuery filters and pages List.
type ListQuery struct {
	TableID   uint64
	TableName string // Case-insensitive substring.
	Page      int
	PageSize  int
}

// ListResult is one page of snapshot summaries.
type ListResult struct {
	Items    []Snapshot `json:"items"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// List returns snapshot summaries newest first. Unreadable rows are flagged, not fatal.
func (s *Store) List(ctx context.Context, scope tenant.Scope, query ListQuery) (ListResult, error) {
	page, pageSize := normalizePage(query.Page, query.PageSize)
	conn := s.db.WithContext(ctx)
	q := scope.Apply(conn.Model(&models.GenHistory{}))
	if query.TableID != 0 {
		q = q.Where("table_id = ?", query.TableID)
	}
	if name := strings.TrimSpace(query.TableName); name != "" {
		q = q.Where(internaldb.CaseInsensitiveLikeExpr(conn, "table_name"), internaldb.ContainsPattern(conn, name))
	}

	var total int64
	if errCount := q.Session(&gorm.Session{}).Count(&total).Error; errCount != nil {
		return ListResult{}, fmt.Errorf("history: count: %w", errCount)
	}
	var rows []models.GenHistory
	if errFind := q.Order("generated_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error; errFind != nil {
		return ListResult{}, fmt.Errorf("history: list: %w", errFind)
	}

	items := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		snap := snapshotFromRow(row)
		if _, errDecode := decodeArtifacts(row.Artifacts); errDecode != nil {
			snap.Corrupt = true
			log.WithField("history_id", row.ID).WithError(errDecode).Warn("unreadable history snapshot")
		}
		items = append(items, snap)
	}
	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Delete removes one snapshot visible to scope.
func (s *Store) Delete(ctx context.Context, scope tenant.Scope, id uint64) error {
	res := scope.Apply(s.db.WithContext(ctx)).Where("id = ?", id).Delete(&models.GenHistory{})
	if res.Error != nil {
		return fmt.Errorf("history: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("history: snapshot %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// BatchDelete removes the snapshots in ids visible to scope and returns how many went.
func (s *Store) BatchDelete(ctx context.Context, scope tenant.Scope, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.Validationf("no history ids given")
	}
	res := scope.Apply(s.db.WithContext(ctx)).Where("id IN ?", ids).Delete(&models.GenHistory{})
	if res.Error != nil {
		return 0, fmt.Errorf("history: batch delete: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteForTable removes every snapshot of a table. Used when the table config is deleted.
func (s *Store) DeleteForTable(ctx context.Context, tx *gorm.DB, tableID uint64, tenantID string) error {
	conn := s.db
	if tx != nil {
		conn = tx
	}
	if errDelete := conn.WithContext(ctx).
		Where("table_id = ? AND tenant_id = ?", tableID, tenantID).
		Delete(&models.GenHistory{}).Error; errDelete != nil {
		return fmt.Errorf("history: delete for table: %w", errDelete)
	}
	return nil
}

func decodeArtifacts(raw []byte) ([]preview.Artifact, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, apperrors.ErrSnapshotCorrupt
	}
	var artifacts []preview.Artifact
	if errUnmarshal := json.Unmarshal(raw, &artifacts); errUnmarshal != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSnapshotCorrupt, errUnmarshal)
	}
	return artifacts, nil
}

func snapshotFromRow(row models.GenHistory) Snapshot {
	return Snapshot{
		ID:              row.ID,
		TableID:         row.TableID,
		TenantID:        row.TenantID,
		TableName:       row.TableName,
		TemplateGroupID: row.TemplateGroupID,
		FileCount:       row.FileCount,
		Operator:        row.Operator,
		GeneratedAt:     row.GeneratedAt,
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
