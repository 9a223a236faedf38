// Package mapfacade is the runtime's single external entry point (spec.md
// §4.7): setMapConfigPath/renderInitialize/renderTickPrepare/
// renderTickRender/renderFinalize, matching the host embedding contract.
//
// Grounded on services/tile_server_manager.go's singleton-manager shape
// (mutex-guarded map, swapped wholesale on reconfiguration) generalized
// from "one map per raster service name" to "one loaded map configuration
// at a time, hot-swappable".
package mapfacade

import (
	"context"
	"sync"

	"github.com/paulmach/orb"

	"github.com/GrainArc/vtscore/draws"
	"github.com/GrainArc/vtscore/fetch"
	"github.com/GrainArc/vtscore/logging"
	"github.com/GrainArc/vtscore/meta"
	"github.com/GrainArc/vtscore/models"
	"github.com/GrainArc/vtscore/store"
	"github.com/GrainArc/vtscore/traversal"
)

// ConfigLoader fetches and decodes a map configuration from a path (a URL
// or local file, the host embedding decides which).
type ConfigLoader interface {
	Load(ctx context.Context, path string) (*models.MapConfig, error)
}

// loadedMap bundles one map configuration's whole runtime: its own store,
// pipeline and traversal engine, so a config swap can tear the old one down
// without touching the new one (§5 "Map-config purge cancels all in-flight
// fetches belonging to the outgoing config").
type loadedMap struct {
	cfg      *models.MapConfig
	stack    models.SurfaceStack
	st       *store.Store
	pipeline *fetch.Pipeline
	resolver *meta.Resolver
	engine   *traversal.Engine
}

// Facade is the process-wide map runtime. Exactly one instance is expected
// per embedding process; renderTickPrepare/renderTickRender are meant to be
// called from the render thread every frame.
type Facade struct {
	mu       sync.Mutex
	current  *loadedMap
	pending  *loadedMap
	loader   ConfigLoader
	budget   store.Budget
	fetchCfg fetch.Config

	tickIndex uint64
	lastDraws draws.MapDraws
}

func NewFacade(loader ConfigLoader, budget store.Budget, fetchCfg fetch.Config) *Facade {
	return &Facade{loader: loader, budget: budget, fetchCfg: fetchCfg}
}

// SetMapConfigPath begins loading a new map configuration asynchronously.
// It becomes the active configuration the next time RenderTickPrepare
// observes the load finished, atomically replacing (and purging) whatever
// was previously active.
func (f *Facade) SetMapConfigPath(path string) {
	go func() {
		cfg, err := f.loader.Load(context.Background(), path)
		if err != nil {
			logging.Log.WithField("path", path).WithError(err).Warn("mapfacade: config load failed")
			return
		}
		lm := f.build(cfg)
		f.mu.Lock()
		f.pending = lm
		f.mu.Unlock()
	}()
}

func (f *Facade) build(cfg *models.MapConfig) *loadedMap {
	stack := cfg.ToSurfaceStack()
	st := store.NewStore(f.budget, nil)
	fetcher := fetch.NewHTTPFetcher(f.fetchCfg.FetchTimeout)
	pipeline := fetch.NewPipeline(f.fetchCfg, fetcher, &metaDecoder{}, nil, st)
	st.SetScheduler(pipeline)

	resolver := meta.NewResolver(st, cfg.ReferenceFrame.MetaBinaryOrder)
	frame := &models.ReferenceFrame{
		Srs:             cfg.ReferenceFrame.NavigationSrs,
		Extents:         orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}},
		MetaBinaryOrder: cfg.ReferenceFrame.MetaBinaryOrder,
	}
	conv := newConvertorFromWire(cfg)
	engine := traversal.NewEngine(st, resolver, &stack, conv, frame)
	engine.SetRoots([]models.TileId{{Lod: 0, X: 0, Y: 0}})

	return &loadedMap{cfg: cfg, stack: stack, st: st, pipeline: pipeline, resolver: resolver, engine: engine}
}

// RenderInitialize must be called once before the first RenderTickPrepare.
func (f *Facade) RenderInitialize() {
	f.tickIndex = 0
}

// RenderTickPrepare runs the data-side of one frame: swap in a finished
// config load, budget eviction, and the traversal engine's tree walk. Must
// run on the render thread, but never blocks on I/O itself (§5) — all
// fetch/decode work already happened on background goroutines.
func (f *Facade) RenderTickPrepare(cam traversal.Camera) {
	f.mu.Lock()
	if f.pending != nil {
		old := f.current
		f.current = f.pending
		f.pending = nil
		f.mu.Unlock()
		if old != nil {
			old.pipeline.Close()
			old.st.Purge()
		}
	} else {
		f.mu.Unlock()
	}

	f.mu.Lock()
	cur := f.current
	f.mu.Unlock()
	if cur == nil {
		return
	}

	f.tickIndex++
	cur.st.Tick(f.tickIndex)
	cur.engine.SetCamera(cam)
	cur.engine.Tick(f.tickIndex)
}

// RenderTickRender assembles the finished traversal into a MapDraws for the
// host to render this frame.
func (f *Facade) RenderTickRender(cam traversal.Camera) draws.MapDraws {
	f.mu.Lock()
	cur := f.current
	f.mu.Unlock()
	if cur == nil {
		return draws.MapDraws{}
	}
	f.lastDraws = draws.Assemble(cur.engine.Emitted(), cam.FocusPosPhys)
	return f.lastDraws
}

// RenderFinalize tears down the active configuration's background workers,
// used on process shutdown or before a caller-driven full reset.
func (f *Facade) RenderFinalize() {
	f.mu.Lock()
	cur := f.current
	f.current = nil
	f.pending = nil
	f.mu.Unlock()
	if cur != nil {
		cur.pipeline.Close()
		cur.st.Purge()
	}
}

// LastCreditIds returns the distinct attribution credit ids referenced by
// the most recently assembled frame's draws (spec.md §9 "the credit string
// is non-empty once at least one surface with declared credits has
// produced draws").
func (f *Facade) LastCreditIds() []int {
	f.mu.Lock()
	cur := f.current
	f.mu.Unlock()
	if cur == nil {
		return nil
	}
	return draws.CreditIds(cur.engine.Emitted())
}

// Stats returns a small diagnostics snapshot of the active configuration,
// consumed by the telemetry package's stats surface.
func (f *Facade) Stats() (ramBytes, gpuBytes int64, resourceCount int, ok bool) {
	f.mu.Lock()
	cur := f.current
	f.mu.Unlock()
	if cur == nil {
		return 0, 0, 0, false
	}
	return cur.st.RAMBytes(), cur.st.GPUBytes(), cur.st.Len(), true
}

