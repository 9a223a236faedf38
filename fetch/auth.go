package fetch

import (
	"strings"
	"sync"
	"time"

	"github.com/GrainArc/vtscore/logging"
	"github.com/GrainArc/vtscore/models"
	"gorm.io/gorm"
)

// Refresher performs the actual credential refresh for one AuthConfig
// (typically an OAuth2 client-credentials exchange or a signed-URL mint);
// it returns the headers to attach to subsequent requests under the
// AuthConfig's URL prefix.
type Refresher interface {
	Refresh() (headers map[string]string, err error)
}

type authEntry struct {
	prefix    string
	refresher Refresher
	headers   map[string]string
	stale     bool
	staleAt   time.Time
	refreshAt time.Time
}

// AuthManager implements fetch.AuthSource: it resolves the auth headers for
// a URL by longest-prefix match against registered AuthConfigs, and drives
// the 401/403 -> stale -> refresh -> retry cycle (spec.md §4.3's "Auth
// handling"). A stale entry is retried on a short fixed back-off rather than
// the exponential fetch back-off, since credential refresh failures are
// usually either transient (clock skew, propagation delay) or a hard
// misconfiguration that back-off does not help with.
type AuthManager struct {
	mu      sync.RWMutex
	entries []*authEntry

	db      *gorm.DB // optional, nil disables persistence
	backoff time.Duration
}

func NewAuthManager(db *gorm.DB, backoff time.Duration) *AuthManager {
	return &AuthManager{db: db, backoff: backoff}
}

// Register associates urlPrefix (e.g. a bound layer's base URL) with a
// Refresher. Longer prefixes take priority over shorter ones on lookup.
func (m *AuthManager) Register(urlPrefix string, r Refresher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := &authEntry{prefix: urlPrefix, refresher: r, stale: true}
	m.entries = append(m.entries, e)
	// longest-prefix-first so Headers' linear scan finds the most specific
	// match without a trie.
	for i := len(m.entries) - 1; i > 0; i-- {
		if len(m.entries[i].prefix) > len(m.entries[i-1].prefix) {
			m.entries[i], m.entries[i-1] = m.entries[i-1], m.entries[i]
		}
	}
}

func (m *AuthManager) find(url string) *authEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.entries {
		if strings.HasPrefix(url, e.prefix) {
			return e
		}
	}
	return nil
}

// Headers implements AuthSource. A stale entry triggers a synchronous
// refresh attempt on first use after going stale; callers on the fetch
// worker pool therefore pay the refresh latency inline, same as the teacher
// webtile_downloader's inline cookie-refresh-then-retry.
func (m *AuthManager) Headers(url string) (map[string]string, bool) {
	e := m.find(url)
	if e == nil {
		return nil, false
	}
	m.mu.RLock()
	stale := e.stale
	headers := e.headers
	refreshAt := e.refreshAt
	m.mu.RUnlock()
	if !stale {
		return headers, true
	}
	if time.Now().Before(refreshAt) {
		// a refresh failed recently: keep serving the prior headers until
		// the back-off elapses.
		return headers, headers != nil
	}
	return m.refresh(e)
}

func (m *AuthManager) refresh(e *authEntry) (map[string]string, bool) {
	h, err := e.refresher.Refresh()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		logging.Log.WithField("prefix", e.prefix).WithError(err).Warn("auth: refresh failed")
		e.refreshAt = time.Now().Add(m.backoff)
		return e.headers, e.headers != nil
	}
	e.headers = h
	e.stale = false
	e.refreshAt = time.Time{}
	m.persist(e)
	return h, true
}

// MarkStale implements AuthSource: called by the fetch pipeline on a
// 401/403. The next Headers() call for this prefix triggers a refresh.
func (m *AuthManager) MarkStale(url string) {
	e := m.find(url)
	if e == nil {
		return
	}
	m.mu.Lock()
	e.stale = true
	e.staleAt = time.Now()
	m.mu.Unlock()
	m.persistStale(e)
}

func (m *AuthManager) persist(e *authEntry) {
	if m.db == nil {
		return
	}
	rec := models.AuthConfigRecord{ConfigURL: e.prefix, LastRefresh: time.Now()}
	m.db.Where(models.AuthConfigRecord{ConfigURL: e.prefix}).Assign(rec).FirstOrCreate(&models.AuthConfigRecord{})
}

func (m *AuthManager) persistStale(e *authEntry) {
	if m.db == nil {
		return
	}
	rec := models.AuthConfigRecord{ConfigURL: e.prefix, StaleAt: e.staleAt}
	m.db.Where(models.AuthConfigRecord{ConfigURL: e.prefix}).Assign(rec).FirstOrCreate(&models.AuthConfigRecord{})
}
