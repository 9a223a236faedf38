package models

import (
	"time"

	"gorm.io/datatypes"
)

// PersistedCacheEntry is the optional on-disk blob-cache sidecar (spec.md §6
// "Persisted state"): keyed by a hash of the canonical URL, recording expiry
// and HTTP validators so a cache hit can skip the fetch pipeline entirely.
// The content bytes themselves live in ContentPath; this row is only the
// metadata sidecar.
type PersistedCacheEntry struct {
	ID           uint   `gorm:"primarykey"`
	URLHash      string `gorm:"uniqueIndex;size:64"`
	URL          string `gorm:"size:2048"`
	ContentPath  string
	ContentBytes int64
	Expires      time.Time
	ETag         string
	LastModified string
	Extra        datatypes.JSON
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PersistedCacheEntry) TableName() string { return "cache_entries" }

// AuthConfigRecord persists the last time an AuthConfig was observed stale,
// so a restarted process does not immediately hammer the auth endpoint
// again if it was already mid-backoff when the process exited.
type AuthConfigRecord struct {
	ID          uint   `gorm:"primarykey"`
	ConfigURL   string `gorm:"uniqueIndex;size:2048"`
	StaleAt     time.Time
	LastRefresh time.Time
	UpdatedAt   time.Time
}

func (AuthConfigRecord) TableName() string { return "auth_config_records" }
