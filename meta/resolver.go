// Package meta resolves the MetaNode governing one TileId on one Surface
// (spec.md §4.4), walking the parent chain before ever requesting a child's
// own meta-tile: a child is only worth fetching once its parent's node says
// the child quadrant exists.
//
// Grounded on original_source/browser/src/vts-libbrowser/rendererTraversal.cpp's
// findMetaNode/determineMetaNode chain: the C++ traversal resolves ancestors
// first for exactly the same reason (avoid spurious fetches below a
// non-existent subtree), stated there as "all parents must be loaded".
package meta

import (
	"sync"

	"github.com/GrainArc/vtscore/models"
)

// Store is the subset of store.Store the resolver needs; declared locally
// so this package never imports store (store has no reason to know about
// meta-tile semantics).
type Store interface {
	Get(url string, kind models.ResourceKind) (*models.Resource, bool)
	Touch(r *models.Resource, tick uint64)
	UpdatePriority(r *models.Resource, p float64)
	Validity(r *models.Resource) models.Validity
}

// metaPriorityBoost multiplies the caller's priority before it reaches the
// meta-tile resource: a meta-tile governs many descendant tiles' decisions,
// so it should win eviction races against the mesh/texture resources that
// depend on it.
const metaPriorityBoost = 2.0

type cacheKey struct {
	surfaceID string
	tile      models.TileId
}

type cacheEntry struct {
	validity models.Validity
	node     *models.MetaNode
}

// Resolver resolves MetaNodes for one loaded map configuration. It
// memoizes per-tick so that the many siblings sharing a parent in one
// traversal pass do not each re-walk and re-fetch the same ancestor chain.
type Resolver struct {
	st              Store
	metaBinaryOrder uint

	mu   sync.Mutex
	tick uint64
	memo map[cacheKey]cacheEntry
}

func NewResolver(st Store, metaBinaryOrder uint) *Resolver {
	return &Resolver{st: st, metaBinaryOrder: metaBinaryOrder, memo: make(map[cacheKey]cacheEntry)}
}

// BeginTick clears the per-tick memo. Called once per frame by the
// traversal engine before any CheckMetaNode calls.
func (r *Resolver) BeginTick(tick uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tick == r.tick {
		return
	}
	r.tick = tick
	r.memo = make(map[cacheKey]cacheEntry)
}

// CheckMetaNode resolves tileId's MetaNode on surface, per spec.md §4.4:
//   - lod==0 (root) has no parent gate and is resolved directly.
//   - lod>0 first resolves the parent; if the parent is not yet Valid, the
//     child's validity is the parent's (Indeterminate propagates up,
//     Invalid short-circuits without ever requesting the child meta-tile).
//   - once the parent is Valid, the parent's ChildAvailable flag for this
//     tile's quadrant decides whether the child exists at all.
func (r *Resolver) CheckMetaNode(surface *models.Surface, tileId models.TileId, priority float64, tick uint64) (models.Validity, *models.MetaNode) {
	key := cacheKey{surfaceID: surface.Id, tile: tileId}
	r.mu.Lock()
	if e, ok := r.memo[key]; ok && tick == r.tick {
		r.mu.Unlock()
		return e.validity, e.node
	}
	r.mu.Unlock()

	validity, node := r.resolve(surface, tileId, priority, tick)

	r.mu.Lock()
	if tick == r.tick {
		r.memo[key] = cacheEntry{validity: validity, node: node}
	}
	r.mu.Unlock()
	return validity, node
}

func (r *Resolver) resolve(surface *models.Surface, tileId models.TileId, priority float64, tick uint64) (models.Validity, *models.MetaNode) {
	if tileId.Lod > 0 {
		parentValidity, parentNode := r.CheckMetaNode(surface, tileId.Parent(), priority, tick)
		if parentValidity != models.Valid {
			return parentValidity, nil
		}
		if !parentNode.ChildAvailable(tileId.QuadrantInParent()) {
			return models.Invalid, nil
		}
	}

	rounded := tileId.Round(r.metaBinaryOrder)
	url := surface.URLMeta(rounded)
	res, ok := r.st.Get(url, models.KindMetaTile)
	if !ok {
		return models.Invalid, nil
	}
	r.st.Touch(res, tick)
	r.st.UpdatePriority(res, priority*metaPriorityBoost)

	validity := r.st.Validity(res)
	if validity != models.Valid {
		return validity, nil
	}

	metaTile, ok := res.Payload.(*models.MetaTile)
	if !ok || metaTile == nil {
		return models.Invalid, nil
	}
	node := metaTile.Get(tileId)
	if node == nil {
		return models.Invalid, nil
	}
	return models.Valid, node
}
