package traversal

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/GrainArc/vtscore/convert"
	"github.com/GrainArc/vtscore/models"
)

// travDetermineMeta resolves trav's MetaNode across every surface of the
// stack and picks the topmost surface carrying geometry whose node's alien
// flag matches the stack entry's own Alien flag, mirroring
// rendererTraversal.cpp's travDetermineMeta. Returns false if any surface's
// meta-tile is still Indeterminate (caller must retry next tick).
func (e *Engine) travDetermineMeta(trav *models.TraverseNode) bool {
	surfaces := e.stack.Surfaces
	nodes := make([]*models.MetaNode, len(surfaces))
	determined := true

	for i := range surfaces {
		validity, node := e.resolver.CheckMetaNode(&surfaces[i], trav.Id, trav.Priority, e.tickIndex)
		switch validity {
		case models.Indeterminate:
			determined = false
			continue
		case models.Invalid:
			continue
		case models.Valid:
			nodes[i] = node
		}
	}
	if !determined {
		return false
	}

	var topmost *models.Surface
	var chosen *models.MetaNode
	var childAvailable [4]bool
	for i, n := range nodes {
		if n == nil {
			continue
		}
		for q := uint32(0); q < 4; q++ {
			if n.ChildAvailable(q) {
				childAvailable[q] = true
			}
		}
		if topmost != nil || n.Alien() != surfaces[i].Alien {
			continue
		}
		if n.Geometry() {
			chosen = n
			topmost = &surfaces[i]
		}
		if chosen == nil {
			chosen = n
		}
	}
	if chosen == nil {
		return false // every surface's meta-tile resolved Invalid
	}

	trav.Meta = chosen
	e.computeGeometry(trav)

	if topmost != nil {
		trav.Surface = topmost
	}

	for q := uint32(0); q < 4; q++ {
		if childAvailable[q] {
			dx, dy := q%2, q/2
			child := models.NewTraverseNode(trav.Id.Child(dx, dy), trav)
			child.Srs = trav.Srs
			trav.Children = append(trav.Children, child)
		}
	}

	e.updateNodePriority(trav)
	return true
}

// computeGeometry derives trav's world-space corners, AABB, OBB (nodes
// deeper than distanceFromRoot 4) and surrogate, mirroring
// travDetermineMetaImpl.
func (e *Engine) computeGeometry(trav *models.TraverseNode) {
	nodeExtents := e.frame().NodeExtents(trav.Id)
	ll, ur := nodeExtents.Min, nodeExtents.Max

	switch {
	case trav.Meta.GeomExtentsZ.Valid:
		for i := 0; i < 8; i++ {
			f := lowerUpperCombine(uint32(i))
			x := ll[0] + f[0]*(ur[0]-ll[0])
			y := ll[1] + f[1]*(ur[1]-ll[1])
			z := trav.Meta.GeomExtentsZ.Min + f[2]*(trav.Meta.GeomExtentsZ.Max-trav.Meta.GeomExtentsZ.Min)
			p := e.conv.Convert(convert.FromOrbPoint(orb.Point{x, y}, z), trav.Srs, string(convert.Physical))
			trav.CornersPhys[i] = [3]float64(p)
		}

		if trav.DistanceFromRoot > 4 {
			trav.Obb = computeObb(trav.CornersPhys)
			trav.HasObb = true
		}

	case trav.Meta.Extents.Min != trav.Meta.Extents.Max:
		// No geomExtents.z: fall back to the meta node's own flat extents
		// box, mirroring the original's "else if extents.ll != extents.ur"
		// branch. Without this, a geometry-flagged node whose meta-tile
		// lacks a z-range would keep a degenerate all-zero AABB forever.
		mll, mur := trav.Meta.Extents.Min, trav.Meta.Extents.Max
		for i := 0; i < 8; i++ {
			f := lowerUpperCombine(uint32(i))
			x := mll[0] + f[0]*(mur[0]-mll[0])
			y := mll[1] + f[1]*(mur[1]-mll[1])
			p := e.conv.Convert(convert.FromOrbPoint(orb.Point{x, y}, 0), trav.Srs, string(convert.Physical))
			trav.CornersPhys[i] = [3]float64(p)
		}
	}

	if trav.DistanceFromRoot > 2 {
		trav.AabbPhys[0] = trav.CornersPhys[0]
		trav.AabbPhys[1] = trav.CornersPhys[0]
		for _, c := range trav.CornersPhys {
			trav.AabbPhys[0] = vmin(trav.AabbPhys[0], c)
			trav.AabbPhys[1] = vmax(trav.AabbPhys[1], c)
		}
	}

	if trav.Meta.HasValidSurrogate() {
		center := orb.Point{(ll[0] + ur[0]) / 2, (ll[1] + ur[1]) / 2}
		sds := convert.FromOrbPoint(center, trav.Meta.Surrogate)
		phys := e.conv.Convert(sds, trav.Srs, string(convert.Physical))
		nav := e.conv.Convert(sds, trav.Srs, string(convert.Navigation))
		trav.SurrogatePhys = [3]float64(phys)
		trav.SurrogateNav = nav[2]
		trav.HasSurrogate = true
	}
}

func (e *Engine) frame() *models.ReferenceFrame {
	return e.refFrame
}

// lowerUpperCombine returns the {0,1}^3 corner selector for corner index i,
// the same bit-unpacking as the original's lowerUpperCombine.
func lowerUpperCombine(i uint32) [3]float64 {
	return [3]float64{
		float64((i >> 0) % 2),
		float64((i >> 1) % 2),
		float64((i >> 2) % 2),
	}
}

func vmin(a, b [3]float64) [3]float64 {
	return [3]float64{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])}
}
func vmax(a, b [3]float64) [3]float64 {
	return [3]float64{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])}
}
