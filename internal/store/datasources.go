package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/datasource"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	"gorm.io/gorm"
)

// DataSourceStore persists registered data sources.
type DataSourceStore struct {
	db *gorm.DB
}

// NewDataSourceStore constructs a DataSourceStore.
func NewDataSourceStore(db *gorm.DB) *DataSourceStore {
	return &DataSourceStore{db: db}
}

// DataSourceByID returns a data source visible to scope.
func (s *DataSourceStore) DataSourceByID(ctx context.Context, scope tenant.Scope, id uint64) (*models.DataSource, error) {
	var ds models.DataSource
	if errFind := scope.Apply(s.db.WithContext(ctx)).Where("id = ?", id).First(&ds).Error; errFind != nil {
		return nil, fmt.Errorf("data source store: get: %w", notFound("data source", id, errFind))
	}
	return &ds, nil
}

// List returns the data sources visible to scope, sorted by name.
func (s *DataSourceStore) List(ctx context.Context, scope tenant.Scope) ([]models.DataSource, error) {
	var rows []models.DataSource
	if errFind := scope.Apply(s.db.WithContext(ctx)).Order("name ASC").Order("id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("data source store: list: %w", errFind)
	}
	return rows, nil
}

// Create validates and inserts ds for the scope's tenant.
func (s *DataSourceStore) Create(ctx context.Context, scope tenant.Scope, ds *models.DataSource) error {
	ds.ID = 0
	ds.TenantID = scope.TenantID
	ds.Name = strings.TrimSpace(ds.Name)
	if errValidate := datasource.Validate(ds); errValidate != nil {
		return errValidate
	}
	if errCreate := s.db.WithContext(ctx).Create(ds).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("data source %s: %w", ds.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("data source store: create: %w", errCreate)
	}
	return nil
}

// Update replaces the connection fields of a data source. An empty password keeps the stored one.
func (s *DataSourceStore) Update(ctx context.Context, scope tenant.Scope, id uint64, next models.DataSource) (*models.DataSource, error) {
	current, errGet := s.DataSourceByID(ctx, scope, id)
	if errGet != nil {
		return nil, errGet
	}
	next.ID = current.ID
	next.TenantID = current.TenantID
	next.CreatedAt = current.CreatedAt
	next.Name = strings.TrimSpace(next.Name)
	if next.Password == "" {
		next.Password = current.Password
	}
	if errValidate := datasource.Validate(&next); errValidate != nil {
		return nil, errValidate
	}
	if errSave := s.db.WithContext(ctx).Save(&next).Error; errSave != nil {
		if errors.Is(errSave, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("data source %s: %w", next.Name, apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("data source store: update: %w", errSave)
	}
	return &next, nil
}

// Delete removes a data source. Tables still importing from it block the delete.
func (s *DataSourceStore) Delete(ctx context.Context, scope tenant.Scope, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inUse int64
		if errCount := tx.Model(&models.GenTable{}).Where("data_source_id = ?", id).Count(&inUse).Error; errCount != nil {
			return fmt.Errorf("data source store: count tables: %w", errCount)
		}
		if inUse > 0 {
			return fmt.Errorf("data source %d is used by %d tables: %w", id, inUse, apperrors.ErrConflict)
		}
		res := scope.Apply(tx).Where("id = ?", id).Delete(&models.DataSource{})
		if res.Error != nil {
			return fmt.Errorf("data source store: delete: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("data source %d: %w", id, apperrors.ErrNotFound)
		}
		return nil
	})
}
