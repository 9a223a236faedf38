// Package telemetry implements the runtime's "statistics block" (spec.md
// §3 MetaNode / §9 "diagnostics accumulate in a statistics block"): a
// lock-light, process-wide counter set, plus a best-effort sink that
// forwards fatal/permanent tile failures to an external diagnostics store
// for offline analysis.
//
// Grounded on services/tile_cache_service.go's package-level atomic hit/miss
// counters, generalized into one struct and extended with a mongo-driver
// sink modeled on the same repo's report_service.go write-and-ignore-error
// best-effort persistence pattern.
package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/GrainArc/vtscore/logging"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Stats is the process-wide statistics block. Every field is an
// independent atomic counter so readers (the /stats HTTP handler, the
// websocket pusher) never contend with writers (fetch/traversal
// goroutines) for a lock.
type Stats struct {
	ResourcesReady      int64
	ResourcesErrorRetry int64
	ResourcesErrorFatal int64
	FetchBytesTotal     int64
	FetchCount          int64
	CacheHits           int64
	CacheMisses         int64
	AuthStaleEvents     int64
}

// Global is the single process-wide instance, following §9's "logging and
// statistics are process-wide and may be shared". The /vts/stats handler and
// the stats websocket read it; no component in this module increments it,
// so its counters stay at zero.
var Global = &Stats{}

func (s *Stats) IncReady()          { atomic.AddInt64(&s.ResourcesReady, 1) }
func (s *Stats) IncErrorRetry()     { atomic.AddInt64(&s.ResourcesErrorRetry, 1) }
func (s *Stats) IncErrorFatal()     { atomic.AddInt64(&s.ResourcesErrorFatal, 1) }
func (s *Stats) AddFetchBytes(n int64) {
	atomic.AddInt64(&s.FetchBytesTotal, n)
	atomic.AddInt64(&s.FetchCount, 1)
}
func (s *Stats) IncCacheHit()    { atomic.AddInt64(&s.CacheHits, 1) }
func (s *Stats) IncCacheMiss()   { atomic.AddInt64(&s.CacheMisses, 1) }
func (s *Stats) IncAuthStale()   { atomic.AddInt64(&s.AuthStaleEvents, 1) }

// Snapshot is the read-side view: a plain value copy, safe to marshal to
// JSON or push over the websocket without re-reading the atomics under a
// reader's nose.
type Snapshot struct {
	ResourcesReady      int64 `json:"resources_ready"`
	ResourcesErrorRetry int64 `json:"resources_error_retry"`
	ResourcesErrorFatal int64 `json:"resources_error_fatal"`
	FetchBytesTotal     int64 `json:"fetch_bytes_total"`
	FetchCount          int64 `json:"fetch_count"`
	CacheHits           int64 `json:"cache_hits"`
	CacheMisses         int64 `json:"cache_misses"`
	AuthStaleEvents     int64 `json:"auth_stale_events"`
	RAMBytes            int64 `json:"ram_bytes"`
	GPUBytes            int64 `json:"gpu_bytes"`
	ResourceCount       int   `json:"resource_count"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ResourcesReady:      atomic.LoadInt64(&s.ResourcesReady),
		ResourcesErrorRetry: atomic.LoadInt64(&s.ResourcesErrorRetry),
		ResourcesErrorFatal: atomic.LoadInt64(&s.ResourcesErrorFatal),
		FetchBytesTotal:     atomic.LoadInt64(&s.FetchBytesTotal),
		FetchCount:          atomic.LoadInt64(&s.FetchCount),
		CacheHits:           atomic.LoadInt64(&s.CacheHits),
		CacheMisses:         atomic.LoadInt64(&s.CacheMisses),
		AuthStaleEvents:     atomic.LoadInt64(&s.AuthStaleEvents),
	}
}

// DiagnosticsEvent is one fatal/permanent tile failure, recorded for
// offline analysis (SPEC_FULL.md §3). Best-effort only: a sink failure is
// logged and dropped, never propagated to the caller, since diagnostics
// must never perturb the render-thread-never-blocks discipline.
type DiagnosticsEvent struct {
	Url       string    `bson:"url"`
	TileId    string    `bson:"tile_id,omitempty"`
	Kind      string    `bson:"kind"`
	Reason    string    `bson:"reason"`
	Fatal     bool      `bson:"fatal"`
	Timestamp time.Time `bson:"timestamp"`
}

// Sink forwards DiagnosticsEvent documents to a mongo collection. A nil
// *Sink is valid and silently drops every event, so callers don't need to
// nil-check before recording — matching the teacher's pattern of
// best-effort secondary persistence that never blocks the primary path.
type Sink struct {
	coll *mongo.Collection
}

func NewSink(uri, database, collection string) (*Sink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return &Sink{coll: client.Database(database).Collection(collection)}, nil
}

// Record writes ev, logging and swallowing any failure.
func (s *Sink) Record(ev DiagnosticsEvent) {
	if s == nil || s.coll == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := s.coll.InsertOne(ctx, ev); err != nil {
		logging.Log.WithError(err).Warn("telemetry: diagnostics sink insert failed")
	}
}
