package settings

import (
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"
)

type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var globalSnapshot atomic.Value

func init() {
	globalSnapshot.Store(snapshot{values: make(map[string]json.RawMessage)})
}

// StoreDBConfig replaces the in-memory settings snapshot.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	next := make(map[string]json.RawMessage, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		next[key] = value
	}
	globalSnapshot.Store(snapshot{updatedAt: updatedAt.UTC(), values: next})
}

// DBConfigValue returns the raw JSON value stored for key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	snap := loadSnapshot()
	value, ok := snap.values[strings.TrimSpace(key)]
	return value, ok
}

// DBConfigUpdatedAt returns the newest update time seen in the snapshot.
func DBConfigUpdatedAt() time.Time {
	return loadSnapshot().updatedAt
}

func loadSnapshot() snapshot {
	snap, ok := globalSnapshot.Load().(snapshot)
	if !ok || snap.values == nil {
		return snapshot{values: make(map[string]json.RawMessage)}
	}
	return snap
}
