package store

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GrainArc/vtscore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []string
	resumed   []string
}

func (f *fakeScheduler) Schedule(r *models.Resource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, r.Key)
}

func (f *fakeScheduler) ResumeDecode(r *models.Resource, raw []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumed = append(f.resumed, r.Key)
}

func (f *fakeScheduler) count() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scheduled), len(f.resumed)
}

func TestStoreGetSchedulesExactlyOnceUnderConcurrency(t *testing.T) {
	sched := &fakeScheduler{}
	s := NewStore(Budget{MaxRAMBytes: 1 << 30, MaxGPUBytes: 1 << 30}, nil)
	s.SetScheduler(sched)

	var wg sync.WaitGroup
	var calls int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, ok := s.Get("https://example/meta/0/0/0", models.KindMetaTile)
			require.True(t, ok)
			require.NotNil(t, r)
			atomic.AddInt64(&calls, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), calls)
	scheduled, resumed := sched.count()
	assert.Equal(t, 1, scheduled)
	assert.Equal(t, 0, resumed)
	assert.Equal(t, 1, s.Len())
}

func TestStoreGetKindMismatchFails(t *testing.T) {
	s := NewStore(Budget{MaxRAMBytes: 1 << 30, MaxGPUBytes: 1 << 30}, nil)
	s.SetScheduler(&fakeScheduler{})

	_, ok := s.Get("https://example/tex/0/0/0", models.KindTexture)
	require.True(t, ok)

	_, ok = s.Get("https://example/tex/0/0/0", models.KindMeshAggregate)
	assert.False(t, ok)
}

func TestStoreTickEvictsOverBudgetByLastAccessTick(t *testing.T) {
	s := NewStore(Budget{MaxRAMBytes: 100, MaxGPUBytes: 100}, nil)
	s.SetScheduler(&fakeScheduler{})

	old, _ := s.Get("old", models.KindTexture)
	old.SetState(models.StateReady)
	s.AccountCreate(old, 60, 0)
	s.Touch(old, 1)

	fresh, _ := s.Get("fresh", models.KindTexture)
	fresh.SetState(models.StateReady)
	s.AccountCreate(fresh, 60, 0)
	s.Touch(fresh, 5)

	s.Tick(6)

	assert.Equal(t, 1, s.Len())
	_, stillThere := s.resources["fresh"]
	assert.True(t, stillThere)
}

func TestStoreTickNeverEvictsAlwaysInBudgetPriority(t *testing.T) {
	s := NewStore(Budget{MaxRAMBytes: 10, MaxGPUBytes: 10}, nil)
	s.SetScheduler(&fakeScheduler{})

	r, _ := s.Get("root-meta", models.KindMetaTile)
	r.SetState(models.StateReady)
	r.UpdatePriority(models.PriorityAlwaysInBudget)
	s.AccountCreate(r, 1000, 0)
	s.Touch(r, 1)

	s.Tick(2)

	assert.Equal(t, 1, s.Len())
}

func TestStoreTickReschedulesElapsedErrorRetry(t *testing.T) {
	sched := &fakeScheduler{}
	s := NewStore(Budget{MaxRAMBytes: 1 << 30, MaxGPUBytes: 1 << 30}, nil)
	s.SetScheduler(sched)

	r, _ := s.Get("flaky", models.KindTexture)
	r.SetState(models.StateErrorRetry)
	r.RetryAt = time.Now().Add(-time.Millisecond)

	s.Tick(1)

	scheduled, _ := sched.count()
	assert.Equal(t, 2, scheduled) // once from Get's initial stub, once from Tick's retry
}

func TestStoreTickDoesNotRescheduleBackoffStillPending(t *testing.T) {
	sched := &fakeScheduler{}
	s := NewStore(Budget{MaxRAMBytes: 1 << 30, MaxGPUBytes: 1 << 30}, nil)
	s.SetScheduler(sched)

	r, _ := s.Get("flaky", models.KindTexture)
	r.SetState(models.StateErrorRetry)
	r.RetryAt = time.Now().Add(time.Hour)

	s.Tick(1)

	scheduled, _ := sched.count()
	assert.Equal(t, 1, scheduled) // only the initial Get schedule
}

type abortCounter struct{ n int32 }

func (a *abortCounter) Abort() { atomic.AddInt32(&a.n, 1) }

func TestStorePurgeAbortsInFlightFetches(t *testing.T) {
	s := NewStore(Budget{MaxRAMBytes: 1 << 30, MaxGPUBytes: 1 << 30}, nil)
	s.SetScheduler(&fakeScheduler{})

	r, _ := s.Get("inflight", models.KindMeshAggregate)
	r.SetState(models.StateDownloading)
	ac := &abortCounter{}
	r.FetchHandle = ac

	s.Purge()

	assert.Equal(t, int32(1), ac.n)
	assert.Equal(t, 0, s.Len())
}
