// Package store persists generator configuration through gorm.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/CodegenAdmin/internal/apperrors"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	internalsettings "github.com/router-for-me/CodegenAdmin/internal/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingStore persists key/value settings and mirrors them into the settings snapshot.
type SettingStore struct {
	db *gorm.DB
}

// NewSettingStore constructs a SettingStore.
func NewSettingStore(db *gorm.DB) *SettingStore {
	return &SettingStore{db: db}
}

func keyEq(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

// List returns all settings sorted by key.
func (s *SettingStore) List(ctx context.Context) ([]models.Setting, error) {
	var rows []models.Setting
	if errFind := s.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("setting store: list: %w", errFind)
	}
	return rows, nil
}

// Get returns one setting.
func (s *SettingStore) Get(ctx context.Context, key string) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	var row models.Setting
	if errFind := s.db.WithContext(ctx).Where(keyEq(key)).First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("setting %s: %w", key, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("setting store: get: %w", errFind)
	}
	return &row, nil
}

// Create inserts a new setting; an existing key is a conflict.
func (s *SettingStore) Create(ctx context.Context, key string, value json.RawMessage) (*models.Setting, error) {
	key = strings.TrimSpace(key)
	if errValidate := ValidateSetting(key, value); errValidate != nil {
		return nil, errValidate
	}
	var existing models.Setting
	if errFind := s.db.WithContext(ctx).Where(keyEq(key)).First(&existing).Error; errFind == nil {
		return nil, fmt.Errorf("setting %s: %w", key, apperrors.ErrConflict)
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("setting store: query: %w", errFind)
	}
	row := models.Setting{Key: key, Value: models.JSONText(value), UpdatedAt: time.Now().UTC()}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		if errors.Is(errCreate, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("setting %s: %w", key, apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("setting store: create: %w", errCreate)
	}
	return &row, s.Refresh(ctx)
}

// Put upserts a setting. Unchanged values are left alone.
func (s *SettingStore) Put(ctx context.Context, key string, value json.RawMessage) error {
	key = strings.TrimSpace(key)
	if errValidate := ValidateSetting(key, value); errValidate != nil {
		return errValidate
	}
	var existing models.Setting
	if errFind := s.db.WithContext(ctx).Where(keyEq(key)).First(&existing).Error; errFind == nil {
		if jsonEqual(existing.Value, value) {
			return nil
		}
	}
	row := models.Setting{Key: key, Value: models.JSONText(value), UpdatedAt: time.Now().UTC()}
	if errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; errUpsert != nil {
		return fmt.Errorf("setting store: upsert: %w", errUpsert)
	}
	return s.Refresh(ctx)
}

// Update changes an existing setting.
func (s *SettingStore) Update(ctx context.Context, key string, value json.RawMessage) error {
	key = strings.TrimSpace(key)
	if errValidate := ValidateSetting(key, value); errValidate != nil {
		return errValidate
	}
	res := s.db.WithContext(ctx).Model(&models.Setting{}).Where(keyEq(key)).Updates(map[string]any{
		"value":      models.JSONText(value),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return fmt.Errorf("setting store: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("setting %s: %w", key, apperrors.ErrNotFound)
	}
	return s.Refresh(ctx)
}

// Delete removes a setting.
func (s *SettingStore) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	res := s.db.WithContext(ctx).Where(keyEq(key)).Delete(&models.Setting{})
	if res.Error != nil {
		return fmt.Errorf("setting store: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("setting %s: %w", key, apperrors.ErrNotFound)
	}
	return s.Refresh(ctx)
}

// Refresh rebuilds the in-memory settings snapshot from the DB.
func (s *SettingStore) Refresh(ctx context.Context) error {
	rows, errList := s.List(ctx)
	if errList != nil {
		return errList
	}
	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = json.RawMessage(row.Value)
		if row.UpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = row.UpdatedAt
		}
	}
	internalsettings.StoreDBConfig(maxUpdatedAt, values)
	return nil
}

var positiveIntSettingKeys = map[string]struct{}{
	internalsettings.HistoryLimitKey:           {},
	internalsettings.HistoryRetentionDaysKey:   {},
	internalsettings.RateLimitWindowSecondsKey: {},
}

var nonNegativeIntSettingKeys = map[string]struct{}{
	internalsettings.RateLimitKey:        {},
	internalsettings.RateLimitRedisDBKey: {},
}

var stringSettingKeys = map[string]struct{}{
	internalsettings.DefaultAuthorKey:          {},
	internalsettings.RateLimitRedisAddrKey:     {},
	internalsettings.RateLimitRedisPasswordKey: {},
	internalsettings.RateLimitRedisPrefixKey:   {},
}

// ValidateSetting rejects empty keys, invalid JSON and out-of-range knob values.
func ValidateSetting(key string, value json.RawMessage) error {
	if strings.TrimSpace(key) == "" {
		return apperrors.Validationf("key is required")
	}
	if len(value) == 0 || !json.Valid(value) {
		return apperrors.Validationf("value must be valid json")
	}
	if _, ok := positiveIntSettingKeys[key]; ok {
		if _, okParse := internalsettings.ParsePositiveInt(value); !okParse {
			return apperrors.Validationf("%s must be a positive integer", key)
		}
	}
	if _, ok := nonNegativeIntSettingKeys[key]; ok {
		if _, okParse := internalsettings.ParseNonNegativeInt(value); !okParse {
			return apperrors.Validationf("%s must be a non-negative integer", key)
		}
	}
	if _, ok := stringSettingKeys[key]; ok {
		if _, okParse := internalsettings.ParseString(value); !okParse {
			return apperrors.Validationf("%s must be a string", key)
		}
	}
	if key == internalsettings.RateLimitRedisEnabledKey {
		if _, okParse := internalsettings.ParseBool(value); !okParse {
			return apperrors.Validationf("%s must be a boolean", key)
		}
	}
	return nil
}

// jsonEqual compares two JSON documents for semantic equality.
func jsonEqual(a, b []byte) bool {
	var objA, objB any
	if errA := json.Unmarshal(a, &objA); errA != nil {
		return false
	}
	if errB := json.Unmarshal(b, &objB); errB != nil {
		return false
	}
	jsonA, _ := json.Marshal(objA)
	jsonB, _ := json.Marshal(objB)
	return string(jsonA) == string(jsonB)
}

// notFound wraps gorm's missing-row error into the app taxonomy.
func notFound(what string, id uint64, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, apperrors.ErrNotFound)
	}
	return err
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
