// Package traversal implements the per-frame hierarchical quad-tree walk
// (spec.md §4.5): for each surface's root, decide per node whether to
// recurse into children or emit draws, gated by meta-tile resolution,
// frustum visibility and screen-space coarseness.
//
// Grounded on original_source/browser/src/vts-libbrowser/rendererTraversal.cpp
// (travInit/travDetermineMeta/travDetermineDraws/travMode*/traverseClearing).
package traversal

import (
	"github.com/GrainArc/vtscore/convert"
	"github.com/GrainArc/vtscore/meta"
	"github.com/GrainArc/vtscore/models"
)

// Store is the subset of store.Store the engine needs for mesh/texture
// resources (meta-tile resolution goes through meta.Resolver instead).
type Store interface {
	Get(url string, kind models.ResourceKind) (*models.Resource, bool)
	Touch(r *models.Resource, tick uint64)
	UpdatePriority(r *models.Resource, p float64)
	Validity(r *models.Resource) models.Validity
}

// Mode selects one of the four traversal strategies (spec.md §4.5).
type Mode int

const (
	ModeHierarchical Mode = iota
	ModeFlat
	ModeBalanced
	ModeFixed
)

// Camera carries the per-frame view parameters the engine needs: frustum
// planes for visibility, focus position for distance/priority, viewport
// geometry for the coarseness test.
type Camera struct {
	Frustum      Frustum
	FocusPosPhys [3]float64

	// ViewProj is the current frame's combined view-projection matrix
	// (column-major, same convention as Obb.RotInv), used by the coarseness
	// test to project a texel-sized offset into screen space.
	ViewProj [16]float64
	// PerpendicularUnitVector is a unit vector roughly perpendicular to the
	// view direction, scaled per corner by the node's texelSize to build the
	// "up" offset the coarseness test projects (mirrors
	// renderer.perpendicularUnitVector in the original).
	PerpendicularUnitVector [3]float64
	ViewportHeightPx        float64
	MaxTexelToPixelScale    float64

	FixedModeLod      uint8
	FixedModeDistance float64
}

// Engine drives one loaded map configuration's traversal tree.
type Engine struct {
	store    Store
	resolver *meta.Resolver
	stack    *models.SurfaceStack
	conv     *convert.Convertor

	mode Mode
	cam  Camera

	refFrame *models.ReferenceFrame

	roots     []*models.TraverseNode
	tickIndex uint64
	emitted   []*models.TraverseNode
}

func NewEngine(st Store, resolver *meta.Resolver, stack *models.SurfaceStack, conv *convert.Convertor, frame *models.ReferenceFrame) *Engine {
	return &Engine{store: st, resolver: resolver, stack: stack, conv: conv, refFrame: frame}
}

func (e *Engine) SetMode(m Mode)     { e.mode = m }
func (e *Engine) SetCamera(c Camera) { e.cam = c }

// SetRoots installs the surface stack's division roots (one TraverseNode
// tree per distinct root tile id of the reference frame).
func (e *Engine) SetRoots(ids []models.TileId) {
	e.roots = make([]*models.TraverseNode, len(ids))
	for i, id := range ids {
		n := models.NewTraverseNode(id, nil)
		n.Srs = e.refFrame.Srs
		n.Priority = models.PriorityAlwaysInBudget
		e.roots[i] = n
	}
}

// Tick runs one full traversal pass: resolver memo reset, the clearing
// sweep, then the selected mode over every root.
func (e *Engine) Tick(tick uint64) {
	e.tickIndex = tick
	e.emitted = e.emitted[:0]
	e.resolver.BeginTick(tick)

	for _, root := range e.roots {
		e.traverseClearing(root)
	}

	for _, root := range e.roots {
		switch e.mode {
		case ModeHierarchical:
			e.travModeHierarchical(root, false)
		case ModeFlat:
			e.travModeFlat(root)
		case ModeBalanced:
			e.travModeBalanced(root, false)
		case ModeFixed:
			e.travModeFixed(root)
		}
	}
}

// Roots exposes the current traversal trees. The draw assembler does not
// walk them; it consumes Emitted() instead.
func (e *Engine) Roots() []*models.TraverseNode { return e.roots }

// Emitted returns every node the just-finished Tick decided to render,
// in traversal order. The draw assembler consumes this directly instead of
// re-walking Roots() and re-deriving which nodes were chosen.
func (e *Engine) Emitted() []*models.TraverseNode { return e.emitted }

// travInit resolves trav's MetaNode (if not already resolved) and refreshes
// its priority. Returns false if the meta-tile chain is not yet determined.
func (e *Engine) travInit(trav *models.TraverseNode) bool {
	trav.LastAccessTick = e.tickIndex
	e.updateNodePriority(trav)

	if trav.Meta == nil {
		return e.travDetermineMeta(trav)
	}
	return true
}

// updateNodePriority recomputes trav's priority from its distance to the
// camera focus, but only on a 4-tick-staggered cadence so that not every
// node's distance is recomputed every single frame (spec.md §4.5's "4-tick
// jitter").
func (e *Engine) updateNodePriority(trav *models.TraverseNode) {
	if trav.Parent == nil {
		// root priority is fixed at +Inf (spec.md §3 "the root has priority
		// = +∞") and must never be overwritten by the distance formula.
		return
	}
	if trav.Meta != nil {
		if (uint64(trav.Hash)+e.tickIndex)%4 == 0 {
			d := travDistance(trav, e.cam.FocusPosPhys)
			trav.Priority = 1e6 / (d + 1)
		}
		return
	}
	trav.Priority = trav.Parent.Priority
}

func travDistance(trav *models.TraverseNode, focus [3]float64) float64 {
	return aabbPointDistance(focus, trav.AabbPhys[0], trav.AabbPhys[1])
}
