package fetch

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedRefresher struct {
	calls   int32
	headers map[string]string
	err     error
}

func (r *scriptedRefresher) Refresh() (map[string]string, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.err != nil {
		return nil, r.err
	}
	return r.headers, nil
}

func TestAuthManagerLongestPrefixWins(t *testing.T) {
	m := NewAuthManager(nil, time.Second)
	short := &scriptedRefresher{headers: map[string]string{"X-Auth": "short"}}
	long := &scriptedRefresher{headers: map[string]string{"X-Auth": "long"}}

	m.Register("https://x/a", short)
	m.Register("https://x/a/b", long)

	headers, ok := m.Headers("https://x/a/b/tile.jpg")
	require.True(t, ok)
	assert.Equal(t, "long", headers["X-Auth"])
}

func TestAuthManagerUnregisteredPrefixReturnsFalse(t *testing.T) {
	m := NewAuthManager(nil, time.Second)
	_, ok := m.Headers("https://nowhere/x")
	assert.False(t, ok)
}

func TestAuthManagerRefreshesOnFirstUseThenCaches(t *testing.T) {
	m := NewAuthManager(nil, time.Second)
	r := &scriptedRefresher{headers: map[string]string{"X-Auth": "v1"}}
	m.Register("https://x", r)

	h1, ok := m.Headers("https://x/a")
	require.True(t, ok)
	assert.Equal(t, "v1", h1["X-Auth"])

	h2, ok := m.Headers("https://x/b")
	require.True(t, ok)
	assert.Equal(t, "v1", h2["X-Auth"])

	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
}

func TestAuthManagerMarkStaleTriggersRefreshOnNextHeaders(t *testing.T) {
	m := NewAuthManager(nil, time.Second)
	r := &scriptedRefresher{headers: map[string]string{"X-Auth": "v1"}}
	m.Register("https://x", r)

	_, _ = m.Headers("https://x/a")
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))

	m.MarkStale("https://x/a")
	r.headers = map[string]string{"X-Auth": "v2"}

	h, ok := m.Headers("https://x/a")
	require.True(t, ok)
	assert.Equal(t, "v2", h["X-Auth"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&r.calls))
}

func TestAuthManagerFailedRefreshKeepsPriorHeadersAndStale(t *testing.T) {
	m := NewAuthManager(nil, time.Second)
	r := &scriptedRefresher{headers: map[string]string{"X-Auth": "v1"}}
	m.Register("https://x", r)

	_, _ = m.Headers("https://x/a")

	m.MarkStale("https://x/a")
	r.err = errors.New("refresh failed")

	h, ok := m.Headers("https://x/a")
	// stale refresh failed but a prior header set exists, so it is returned.
	assert.True(t, ok)
	assert.Equal(t, "v1", h["X-Auth"])
	assert.True(t, m.find("https://x/a").stale)
}
