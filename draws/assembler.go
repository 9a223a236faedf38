// Package draws assembles the per-frame draw list from the traversal
// engine's emitted nodes (spec.md §4.6): opaque tasks sorted front-to-back
// by distance for early-z efficiency, transparent and infographic tasks
// left in traversal order for correct back-to-front blending.
//
// Grounded on original_source/browser/src/vts-libbrowser/mapDraws.cpp's
// MapDraws assembly (draws.opaque/draws.transparent/draws.infographic
// separation and the sortOpaqueFrontToBack step).
package draws

import (
	"sort"

	"github.com/GrainArc/vtscore/models"
)

// MapDraws is the finished per-frame draw list the host renderer consumes.
type MapDraws struct {
	Opaque      []models.RenderTask
	Transparent []models.RenderTask
	Infographic []models.RenderTask
}

// Assemble walks emitted (the traversal engine's Emitted() nodes, already
// in traversal order) and produces one MapDraws: opaque tasks are sorted by
// squared distance to focus, nearest first; transparent/infographic keep
// traversal order so overlapping alpha blends stay stable frame to frame.
func Assemble(emitted []*models.TraverseNode, focusPosPhys [3]float64) MapDraws {
	var out MapDraws
	for _, n := range emitted {
		out.Opaque = append(out.Opaque, withCenter(n.Opaque, n)...)
		out.Transparent = append(out.Transparent, n.Transparent...)
		out.Infographic = append(out.Infographic, n.Infographic...)
	}

	sort.SliceStable(out.Opaque, func(i, j int) bool {
		di := sqDist(out.Opaque[i].Center, focusPosPhys)
		dj := sqDist(out.Opaque[j].Center, focusPosPhys)
		return di < dj
	})

	return out
}

// withCenter stamps each opaque task with its owning node's AABB center, so
// the front-to-back sort has something to key on without re-deriving it
// from the mesh itself (spec.md's draw tasks carry no geometry, only
// handles).
func withCenter(tasks []models.RenderTask, n *models.TraverseNode) []models.RenderTask {
	if len(tasks) == 0 {
		return nil
	}
	center := aabbCenter(n.AabbPhys)
	out := make([]models.RenderTask, len(tasks))
	for i, t := range tasks {
		t.Center = center
		out[i] = t
	}
	return out
}

func aabbCenter(aabb [2][3]float64) [3]float64 {
	return [3]float64{
		(aabb[0][0] + aabb[1][0]) / 2,
		(aabb[0][1] + aabb[1][1]) / 2,
		(aabb[0][2] + aabb[1][2]) / 2,
	}
}

func sqDist(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dx*dx + dy*dy + dz*dz
}

// CreditIds collects the distinct credit ids referenced by every emitted
// node's resolved MetaNode, for the host's attribution overlay.
func CreditIds(emitted []*models.TraverseNode) []int {
	seen := make(map[int]struct{})
	for _, n := range emitted {
		if n.Meta == nil {
			continue
		}
		for id := range n.Meta.Credits {
			seen[id] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}
