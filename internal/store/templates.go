package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/codegen/render"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	"gorm.io/gorm"
)

// TemplateStore persists custom template groups and their templates.
type TemplateStore struct {
	db *gorm.DB
}

// NewTemplateStore constructs a TemplateStore.
func NewTemplateStore(db *gorm.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// ListGroups returns the groups visible to scope without their templates.
func (s *TemplateStore) ListGroups(ctx context.Context, scope tenant.Scope) ([]models.TemplateGroup, error) {
	var rows []models.TemplateGroup
	if errFind := scope.Apply(s.db.WithContext(ctx)).Order("name ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("template store: list groups: %w", errFind)
	}
	return rows, nil
}

// GetGroup returns a group with its templates ordered by sort.
func (s *TemplateStore) GetGroup(ctx context.Context, scope tenant.Scope, id uint64) (*models.TemplateGroup, error) {
	var group models.TemplateGroup
	q := scope.Apply(s.db.WithContext(ctx)).
		Preload("Templates", func(q *gorm.DB) *gorm.DB { return q.Order("sort ASC").Order("id ASC") })
	if errFind := q.Where("id = ?", id).First(&group).Error; errFind != nil {
		return nil, fmt.Errorf("template store: get group: %w", notFound("template group", id, errFind))
	}
	return &group, nil
}

// CreateGroup inserts a group for the scope's tenant.
func (s *TemplateStore) CreateGroup(ctx context.Context, scope tenant.Scope, group *models.TemplateGroup) error {
	group.ID = 0
	group.TenantID = scope.TenantID
	group.Name = strings.TrimSpace(group.Name)
	group.Templates = nil
	if group.Name == "" {
		return apperrors.Validationf("group name is required")
	}
	if group.Name == render.DefaultGroup {
		return apperrors.Validationf("group name %q is reserved", render.DefaultGroup)
	}
	if errCreate := s.db.WithContext(ctx).Create(group).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("template group %s: %w", group.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("template store: create group: %w", errCreate)
	}
	return nil
}

// UpdateGroup renames or re-describes a group.
func (s *TemplateStore) UpdateGroup(ctx context.Context, scope tenant.Scope, id uint64, name, description string) (*models.TemplateGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validationf("group name is required")
	}
	if name == render.DefaultGroup {
		return nil, apperrors.Validationf("group name %q is reserved", render.DefaultGroup)
	}
	res := scope.Apply(s.db.WithContext(ctx).Model(&models.TemplateGroup{})).Where("id = ?", id).
		Updates(map[string]any{"name": name, "description": description})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("template group %s: %w", name, apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("template store: update group: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("template group %d: %w", id, apperrors.ErrNotFound)
	}
	return s.GetGroup(ctx, scope, id)
}

// DeleteGroup removes a group and its templates.
func (s *TemplateStore) DeleteGroup(ctx context.Context, scope tenant.Scope, id uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.TemplateGroup
		if errFind := scope.Apply(tx).Where("id = ?", id).First(&group).Error; errFind != nil {
			return fmt.Errorf("template store: delete group: %w", notFound("template group", id, errFind))
		}
		if errTemplates := tx.Where("group_id = ?", id).Delete(&models.CustomTemplate{}).Error; errTemplates != nil {
			return fmt.Errorf("template store: delete templates: %w", errTemplates)
		}
		if errGroup := tx.Delete(&group).Error; errGroup != nil {
			return fmt.Errorf("template store: delete group: %w", errGroup)
		}
		return nil
	})
}

// SaveTemplate validates tpl and inserts or updates it inside its group.
// Validation warnings are returned alongside a successful save.
func (s *TemplateStore) SaveTemplate(ctx context.Context, scope tenant.Scope, tpl *models.CustomTemplate) ([]string, error) {
	if _, errGroup := s.GetGroup(ctx, scope, tpl.GroupID); errGroup != nil {
		return nil, errGroup
	}
	tpl.Name = strings.TrimSpace(tpl.Name)
	tpl.PathTemplate = strings.TrimSpace(tpl.PathTemplate)
	if tpl.Name == "" || tpl.PathTemplate == "" {
		return nil, apperrors.Validationf("template name and output path are required")
	}
	known := render.KnownIdentifiers()
	pathCheck, errPath := render.ValidateTemplate(tpl.PathTemplate, known)
	if errPath != nil {
		return nil, fmt.Errorf("output path: %w", errPath)
	}
	bodyCheck, errBody := render.ValidateTemplate(tpl.Content, known)
	if errBody != nil {
		return nil, errBody
	}
	if tpl.Language == "" {
		tpl.Language = render.LanguageForPath(tpl.PathTemplate)
	}

	conn := s.db.WithContext(ctx)
	var errSave error
	if tpl.ID == 0 {
		errSave = conn.Create(tpl).Error
	} else {
		res := conn.Model(&models.CustomTemplate{}).
			Where("id = ? AND group_id = ?", tpl.ID, tpl.GroupID).
			Updates(map[string]any{
				"name":          tpl.Name,
				"path_template": tpl.PathTemplate,
				"language":      tpl.Language,
				"content":       tpl.Content,
				"sort":          tpl.Sort,
			})
		errSave = res.Error
		if errSave == nil && res.RowsAffected == 0 {
			return nil, fmt.Errorf("template %d: %w", tpl.ID, apperrors.ErrNotFound)
		}
	}
	if errSave != nil {
		if errors.Is(errSave, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("template %s: %w", tpl.Name, apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("template store: save template: %w", errSave)
	}
	return append(pathCheck.Warnings, bodyCheck.Warnings...), nil
}

// DeleteTemplate removes one template of a group visible to scope.
func (s *TemplateStore) DeleteTemplate(ctx context.Context, scope tenant.Scope, groupID, id uint64) error {
	if _, errGroup := s.GetGroup(ctx, scope, groupID); errGroup != nil {
		return errGroup
	}
	res := s.db.WithContext(ctx).Where("id = ? AND group_id = ?", id, groupID).Delete(&models.CustomTemplate{})
	if res.Error != nil {
		return fmt.Errorf("template store: delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("template %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
