// Package watcher polls the database for changes made by other replicas.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/CodegenAdmin/internal/models"
	internalsettings "github.com/router-for-me/CodegenAdmin/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// defaultPollInterval controls how often DB snapshots are refreshed.
	defaultPollInterval = 5 * time.Second
	// defaultQueryTimeout bounds DB query duration.
	defaultQueryTimeout = 10 * time.Second
)

// EvictFunc drops the cached connection of a data source.
type EvictFunc func(dataSourceID uint64)

// Watcher keeps the settings snapshot and cached data source connections in
// step with the database.
type Watcher struct {
	db           *gorm.DB
	evict        EvictFunc
	pollInterval time.Duration

	// settings snapshot
	settingsLatestAt  time.Time
	settingsLatestKey string
	hasSettingsLatest bool

	// data source versions, keyed by id
	sources map[uint64]time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Watcher. A non-positive pollInterval uses the default.
func New(db *gorm.DB, pollInterval time.Duration, evict EvictFunc) *Watcher {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Watcher{
		db:           db,
		evict:        evict,
		pollInterval: pollInterval,
		sources:      make(map[uint64]time.Time),
	}
}

// Start launches the poll loop. It is a no-op when already running.
func (w *Watcher) Start(ctx context.Context) {
	if w == nil || w.db == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(runCtx)
	}()
	log.Infof("db watcher started (poll_interval=%s)", w.pollInterval)
}

// Stop cancels the poll loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context) {
	w.pollSettings(ctx, true)
	w.pollDataSources(ctx)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollSettings(ctx, false)
			w.pollDataSources(ctx)
		}
	}
}

// pollSettings reloads the settings snapshot when the newest row changed.
func (w *Watcher) pollSettings(ctx context.Context, force bool) bool {
	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	var latest models.Setting
	hasLatest := false
	errLatest := w.db.WithContext(qctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "updated_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}, Desc: true}).
		Take(&latest).Error
	switch {
	case errLatest == nil:
		hasLatest = true
	case errors.Is(errLatest, gorm.ErrRecordNotFound):
	case errors.Is(errLatest, context.Canceled):
		return false
	default:
		log.WithError(errLatest).Warn("db watcher: query settings latest row failed")
		return false
	}

	latestKey := strings.TrimSpace(latest.Key)
	latestAt := latest.UpdatedAt.UTC()
	if !force {
		if !hasLatest {
			if !w.hasSettingsLatest {
				return false
			}
		} else if w.hasSettingsLatest && latestAt.Equal(w.settingsLatestAt) && latestKey == w.settingsLatestKey {
			return false
		}
	}

	var rows []models.Setting
	if errFind := w.db.WithContext(qctx).Find(&rows).Error; errFind != nil {
		if !errors.Is(errFind, context.Canceled) {
			log.WithError(errFind).Warn("db watcher: query settings failed")
		}
		return false
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
			maxUpdatedAt = row.UpdatedAt.UTC()
		}
	}
	internalsettings.StoreDBConfig(maxUpdatedAt, values)
	if !force {
		log.Infof("db watcher: settings reloaded (latest_updated_at=%s latest_key=%s)", latestAt.Format(time.RFC3339Nano), latestKey)
	}

	w.settingsLatestAt = latestAt
	w.settingsLatestKey = latestKey
	w.hasSettingsLatest = hasLatest
	return true
}

// pollDataSources evicts cached connections of data sources that were updated or removed.
// The first poll only records versions.
func (w *Watcher) pollDataSources(ctx context.Context) []uint64 {
	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	// versionRow is the change-detection projection of a data source.
	type versionRow struct {
		ID        uint64    `gorm:"column:id"`         // Data source id.
		UpdatedAt time.Time `gorm:"column:updated_at"` // Last update time.
	}
	var rows []versionRow
	if errFind := w.db.WithContext(qctx).Model(&models.DataSource{}).Select("id", "updated_at").Find(&rows).Error; errFind != nil {
		if !errors.Is(errFind, context.Canceled) {
			log.WithError(errFind).Warn("db watcher: query data sources failed")
		}
		return nil
	}

	current := make(map[uint64]time.Time, len(rows))
	for _, row := range rows {
		current[row.ID] = row.UpdatedAt.UTC()
	}
	var changed []uint64
	for id, seenAt := range w.sources {
		updatedAt, ok := current[id]
		if !ok || !updatedAt.Equal(seenAt) {
			changed = append(changed, id)
		}
	}
	w.sources = current
	for _, id := range changed {
		log.WithField("data_source_id", id).Info("db watcher: data source changed, dropping cached connection")
		if w.evict != nil {
			w.evict(id)
		}
	}
	return changed
}
