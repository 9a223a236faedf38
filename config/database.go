package config

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenPersistedCacheDB opens the gorm connection backing the on-disk blob
// cache sidecar (store.Persister), driver selected by Options.
// PersistedCacheDriver, generalized from the teacher's config/database.go
// (which only ever opened sqlite) to the three drivers the retrieved pack
// shows wired elsewhere (gorm.io/driver/mysql, gorm.io/driver/postgres).
func (o Options) OpenPersistedCacheDB() (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch o.PersistedCacheDriver {
	case "", "sqlite":
		path := o.PersistedCacheDSN
		if path == "" {
			path = "vtscore-cache.db"
		}
		dialector = sqlite.Open(path)
	case "mysql":
		dialector = mysql.Open(o.PersistedCacheDSN)
	case "postgres":
		dialector = postgres.Open(o.PersistedCacheDSN)
	default:
		return nil, fmt.Errorf("config: unknown persisted_cache_driver %q", o.PersistedCacheDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("config: open persisted cache db: %w", err)
	}
	return db, nil
}
