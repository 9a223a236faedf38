package traversal

import (
	"math"

	"github.com/GrainArc/vtscore/models"
)

// Plane is a half-space boundary, normal pointing into the visible
// half-space: DistanceTo(p) >= 0 means p is on the visible side.
type Plane struct {
	Normal [3]float64
	D      float64
}

func (p Plane) DistanceTo(v [3]float64) float64 {
	return dot(p.Normal, v) + p.D
}

// Frustum is the six view-frustum planes in physical srs.
type Frustum struct {
	Planes [6]Plane
}

// visibilityTest implements the p-vertex AABB test (spec.md §4.5), refined
// by an OBB test for nodes past distanceFromRoot 4 when the AABB test alone
// is inconclusive (a coarse AABB can straddle a frustum plane that a tighter
// OBB does not).
func (e *Engine) visibilityTest(trav *models.TraverseNode) bool {
	if trav.DistanceFromRoot <= 2 {
		// too shallow for a meaningful AABB yet; never culled.
		return true
	}
	if !aabbInFrustum(trav.AabbPhys, e.cam.Frustum) {
		return false
	}
	if trav.HasObb {
		return obbInFrustum(trav.Obb, e.cam.Frustum)
	}
	return true
}

// aabbInFrustum is the standard p-vertex (positive-vertex) test: for every
// plane, the AABB corner most aligned with the plane's normal is the one
// most likely to be on the visible side; if even that corner fails, the
// whole box is outside.
func aabbInFrustum(aabb [2][3]float64, f Frustum) bool {
	for _, pl := range f.Planes {
		var p [3]float64
		for i := 0; i < 3; i++ {
			if pl.Normal[i] >= 0 {
				p[i] = aabb[1][i]
			} else {
				p[i] = aabb[0][i]
			}
		}
		if pl.DistanceTo(p) < 0 {
			return false
		}
	}
	return true
}

// obbInFrustum transforms each frustum plane's normal into the OBB's local
// frame (via the cached inverse rotation) and tests against the box's
// min/max, same p-vertex idea in local space.
func obbInFrustum(obb *models.Obb, f Frustum) bool {
	for _, pl := range f.Planes {
		localNormal := mulMat3Vec(obb.RotInv, pl.Normal)
		var p [3]float64
		for i := 0; i < 3; i++ {
			if localNormal[i] >= 0 {
				p[i] = obb.MaxLocal[i]
			} else {
				p[i] = obb.MinLocal[i]
			}
		}
		// D is expressed in world space; translate the plane test by
		// evaluating the world-space point equivalent to the local corner
		// (rotated back, then offset by the box centre stored in RotInv).
		world := add(mulMat3Vec(transpose3(obb.RotInv), p), [3]float64{obb.RotInv[12], obb.RotInv[13], obb.RotInv[14]})
		if dot(pl.Normal, world)+pl.D < 0 {
			return false
		}
	}
	return true
}

// computeObb builds the oriented bounding box of 8 world-space corners,
// using corners 0/4 and 0/2 as the forward/up basis vectors, mirroring
// travDetermineMetaImpl's lookAt-based OBB construction.
func computeObb(corners [8][3]float64) *models.Obb {
	var center [3]float64
	for _, c := range corners {
		center = add(center, c)
	}
	center = scale(center, 1.0/8.0)

	fwd := normalize(sub(corners[4], corners[0]))
	up := normalize(sub(corners[2], corners[0]))
	right := normalize(cross(fwd, up))
	up = cross(right, fwd)

	// rows of the rotation matrix (world -> local), i.e. its inverse.
	rotInv := mat3{right, up, fwd}

	obb := &models.Obb{}
	minL := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxL := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, c := range corners {
		rel := sub(c, center)
		local := mulMat3Vec(flatten(rotInv, [3]float64{}), rel)
		minL = vmin(minL, local)
		maxL = vmax(maxL, local)
	}
	obb.MinLocal = minL
	obb.MaxLocal = maxL
	obb.RotInv = flatten(rotInv, center)
	return obb
}

// mat3 is a row-major 3x3 rotation matrix; flatten packs it plus a
// translation into the TraverseNode.Obb's column-major 4x4 storage.
type mat3 [3][3]float64

func mulMat3Vec(m [16]float64, v [3]float64) [3]float64 {
	return [3]float64{
		m[0]*v[0] + m[4]*v[1] + m[8]*v[2],
		m[1]*v[0] + m[5]*v[1] + m[9]*v[2],
		m[2]*v[0] + m[6]*v[1] + m[10]*v[2],
	}
}

func transpose3(m [16]float64) [16]float64 {
	return [16]float64{
		m[0], m[4], m[8], 0,
		m[1], m[5], m[9], 0,
		m[2], m[6], m[10], 0,
		0, 0, 0, 1,
	}
}

func flatten(m mat3, translation [3]float64) [16]float64 {
	return [16]float64{
		m[0][0], m[1][0], m[2][0], 0,
		m[0][1], m[1][1], m[2][1], 0,
		m[0][2], m[1][2], m[2][2], 0,
		translation[0], translation[1], translation[2], 1,
	}
}

func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func add(a, b [3]float64) [3]float64 { return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func sub(a, b [3]float64) [3]float64 { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func scale(a [3]float64, s float64) [3]float64 { return [3]float64{a[0] * s, a[1] * s, a[2] * s} }
func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
func length(a [3]float64) float64 { return math.Sqrt(dot(a, a)) }
func normalize(a [3]float64) [3]float64 {
	l := length(a)
	if l == 0 {
		return a
	}
	return scale(a, 1/l)
}

// aabbPointDistance returns the distance from p to the nearest point of the
// AABB [lo,hi] (0 if p is inside), matching the original's aabbPointDist.
func aabbPointDistance(p, lo, hi [3]float64) float64 {
	var d2 float64
	for i := 0; i < 3; i++ {
		v := p[i]
		if v < lo[i] {
			d := lo[i] - v
			d2 += d * d
		} else if v > hi[i] {
			d := v - hi[i]
			d2 += d * d
		}
	}
	return math.Sqrt(d2)
}
