package store

import (
	"os"
	"path/filepath"
	"time"

	"github.com/GrainArc/vtscore/models"
	"gorm.io/gorm"
)

// Persister is the optional on-disk blob cache sidecar (spec.md §6
// "Persisted state"): content bytes are written under ContentDir, keyed by
// url hash; the gorm-backed PersistedCacheEntry row carries expires/HTTP
// validators. A cache hit lets the fetch pipeline skip the network fetch
// entirely and feed the bytes straight into the Downloaded state.
//
// Grounded on config/database.go + models/core.go's sqlite-via-gorm
// initialization pattern in the teacher repo.
type Persister struct {
	DB         *gorm.DB
	ContentDir string
}

func NewPersister(db *gorm.DB, contentDir string) (*Persister, error) {
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.PersistedCacheEntry{}, &models.AuthConfigRecord{}); err != nil {
		return nil, err
	}
	return &Persister{DB: db, ContentDir: contentDir}, nil
}

// Lookup returns the cached entry and its content bytes for url, if present
// and unexpired.
func (p *Persister) Lookup(url string) (*models.PersistedCacheEntry, []byte, bool) {
	var entry models.PersistedCacheEntry
	h := urlHash(url)
	if err := p.DB.Where("url_hash = ?", h).First(&entry).Error; err != nil {
		return nil, nil, false
	}
	if time.Now().After(entry.Expires) {
		return nil, nil, false
	}
	data, err := os.ReadFile(entry.ContentPath)
	if err != nil {
		return nil, nil, false
	}
	return &entry, data, true
}

// Store writes data for url to disk and upserts the metadata sidecar row.
func (p *Persister) Store(url string, data []byte, expires time.Time, etag, lastModified string) error {
	h := urlHash(url)
	path := filepath.Join(p.ContentDir, h)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	entry := models.PersistedCacheEntry{
		URLHash:      h,
		URL:          url,
		ContentPath:  path,
		ContentBytes: int64(len(data)),
		Expires:      expires,
		ETag:         etag,
		LastModified: lastModified,
	}
	return p.DB.Where(models.PersistedCacheEntry{URLHash: h}).
		Assign(entry).
		FirstOrCreate(&models.PersistedCacheEntry{}).Error
}

// tryPersistedHit looks up r's persisted cache entry, returning its raw
// bytes for the scheduler to resume decoding directly, skipping the network
// fetch (spec.md §6 "Persisted state").
func (s *Store) tryPersistedHit(r *models.Resource) ([]byte, bool) {
	if s.persist == nil {
		return nil, false
	}
	_, data, ok := s.persist.Lookup(r.Key)
	if !ok {
		return nil, false
	}
	return data, true
}
