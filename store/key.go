package store

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// urlHash returns the canonical cache key used by the persisted sidecar
// table (models.PersistedCacheEntry.URLHash): a blake2b-256 digest of the
// URL, hex-encoded. Using a fixed-width hash rather than the raw URL keeps
// the sqlite index compact and avoids path-length limits on ContentPath.
func urlHash(url string) string {
	sum := blake2b.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
