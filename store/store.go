// Package store implements the resource store (spec.md §4.2): a keyed cache
// of typed resources with state machine, priority and touch-based eviction,
// and at-most-one-build-per-key fetch coalescing.
//
// Grounded on tile_proxy/cache.go's TileCache (mutex-guarded map, TTL
// eviction loop) generalised from a single blob cache into the full typed
// resource state machine the traversal engine needs, plus
// services/tile_cache_service.go's pattern of backing the cache with a
// persisted sqlite table.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/GrainArc/vtscore/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Scheduler is implemented by the fetch pipeline: the store calls Schedule
// once per newly created stub (and once per ErrorRetry entry whose back-off
// just expired) to enqueue it for background fetching. ResumeDecode is
// called instead, in place of Schedule, when a persisted-cache hit already
// supplied the raw bytes and only the decode step remains.
type Scheduler interface {
	Schedule(r *models.Resource)
	ResumeDecode(r *models.Resource, raw []byte)
}

// Budget bounds the store's RAM/GPU accounting (spec.md §4.2 "Budget").
type Budget struct {
	MaxRAMBytes int64
	MaxGPUBytes int64
}

// Store is the resource store. One Store exists per loaded map
// configuration; the facade purges it wholesale on config change.
type Store struct {
	mu        sync.Mutex
	resources map[string]*models.Resource
	kinds     map[string]models.ResourceKind

	sf singleflight.Group

	scheduler Scheduler
	budget    Budget

	ramBytes int64
	gpuBytes int64

	persist *Persister // nil when no on-disk sidecar is configured

	log *logrus.Entry
}

func NewStore(budget Budget, persist *Persister) *Store {
	return &Store{
		resources: make(map[string]*models.Resource),
		kinds:     make(map[string]models.ResourceKind),
		budget:    budget,
		persist:   persist,
	}
}

func (s *Store) SetScheduler(sc Scheduler) { s.scheduler = sc }

// Get returns the resource immediately; if absent, it creates
// a stub in state Initializing and schedules a fetch. Re-querying an
// existing URL with a different kind is a caller error and returns false.
func (s *Store) Get(url string, kind models.ResourceKind) (*models.Resource, bool) {
	s.mu.Lock()
	if r, ok := s.resources[url]; ok {
		s.mu.Unlock()
		if existing := s.kinds[url]; existing != kind {
			return r, false
		}
		return r, true
	}

	// at-most-one-build-per-key: only one goroutine actually constructs and
	// registers the stub for a given URL, even under concurrent Get calls.
	s.mu.Unlock()
	v, _, _ := s.sf.Do(url, func() (interface{}, error) {
		s.mu.Lock()
		if r, ok := s.resources[url]; ok {
			s.mu.Unlock()
			return r, nil
		}
		r := models.NewResource(url, kind)
		s.resources[url] = r
		s.kinds[url] = kind
		s.mu.Unlock()

		if s.scheduler != nil {
			if raw, hit := s.tryPersistedHit(r); hit {
				s.scheduler.ResumeDecode(r, raw)
			} else {
				s.scheduler.Schedule(r)
			}
		}
		return r, nil
	})
	r := v.(*models.Resource)
	return r, true
}

// Touch updates a resource's lastAccessTick, protecting it from eviction
// this tick.
func (s *Store) Touch(r *models.Resource, tick uint64) {
	r.Touch(tick)
}

// UpdatePriority sets priority = max(current, p).
func (s *Store) UpdatePriority(r *models.Resource, p float64) {
	r.UpdatePriority(p)
}

// Validity returns the tri-valued readiness of r.
func (s *Store) Validity(r *models.Resource) models.Validity {
	return r.Validity()
}

// AccountCreate registers ram/gpu byte costs once a resource finishes
// decoding, called by the fetch pipeline's decode step.
func (s *Store) AccountCreate(r *models.Resource, ramBytes, gpuBytes int64) {
	s.mu.Lock()
	r.RamBytes = ramBytes
	r.GPUBytes = gpuBytes
	s.ramBytes += ramBytes
	s.gpuBytes += gpuBytes
	s.mu.Unlock()
}

func (s *Store) accountRemove(r *models.Resource) {
	s.ramBytes -= r.RamBytes
	s.gpuBytes -= r.GPUBytes
	r.RamBytes = 0
	r.GPUBytes = 0
}

// Tick drives the budget eviction and re-schedules ErrorRetry entries whose
// back-off elapsed. Runs on the render thread once per frame.
func (s *Store) Tick(tick uint64) {
	s.mu.Lock()
	over := s.ramBytes > s.budget.MaxRAMBytes || s.gpuBytes > s.budget.MaxGPUBytes
	var candidates []*models.Resource
	var retryReady []*models.Resource
	for _, r := range s.resources {
		switch r.State() {
		case models.StateDownloading, models.StateFinalizing:
			continue
		}
		if over {
			candidates = append(candidates, r)
		}
		if r.State() == models.StateErrorRetry && time.Now().After(r.RetryAt) {
			retryReady = append(retryReady, r)
		}
	}

	if over {
		s.evictLocked(candidates)
	}
	s.mu.Unlock()

	for _, r := range retryReady {
		if s.scheduler != nil {
			s.scheduler.Schedule(r)
		}
	}
}

// evictLocked evicts in ascending lastAccessTick order (ties broken by
// ascending priority), skipping +Inf-priority resources, until the store is
// back under budget. Caller holds s.mu.
func (s *Store) evictLocked(candidates []*models.Resource) {
	sort.Slice(candidates, func(i, j int) bool {
		ti, tj := candidates[i].LastAccessTick(), candidates[j].LastAccessTick()
		if ti != tj {
			return ti < tj
		}
		return candidates[i].Priority() < candidates[j].Priority()
	})

	for _, r := range candidates {
		if s.ramBytes <= s.budget.MaxRAMBytes && s.gpuBytes <= s.budget.MaxGPUBytes {
			return
		}
		if r.Priority() == models.PriorityAlwaysInBudget {
			continue
		}
		if fh, ok := r.FetchHandle.(interface{ Abort() }); ok {
			fh.Abort()
		}
		s.accountRemove(r)
		delete(s.resources, r.Key)
		delete(s.kinds, r.Key)
	}
}

// Purge removes every resource belonging to this store, cancelling any
// in-flight fetches (spec.md §5 "Map-config purge cancels all in-flight
// fetches belonging to the outgoing config").
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.resources {
		if fh, ok := r.FetchHandle.(interface{ Abort() }); ok {
			fh.Abort()
		}
	}
	s.resources = make(map[string]*models.Resource)
	s.kinds = make(map[string]models.ResourceKind)
	s.ramBytes = 0
	s.gpuBytes = 0
}

// Len returns the current resource count (test/diagnostics helper).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resources)
}

// RAMBytes/GPUBytes expose current accounting for the stats surface.
func (s *Store) RAMBytes() int64 { s.mu.Lock(); defer s.mu.Unlock(); return s.ramBytes }
func (s *Store) GPUBytes() int64 { s.mu.Lock(); defer s.mu.Unlock(); return s.gpuBytes }
