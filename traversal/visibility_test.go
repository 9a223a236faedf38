package traversal

import (
	"testing"

	"github.com/GrainArc/vtscore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisAlignedFrustum is a box frustum [-1,1]^3, planes pointing inward.
func axisAlignedFrustum() Frustum {
	return Frustum{Planes: [6]Plane{
		{Normal: [3]float64{1, 0, 0}, D: 1},
		{Normal: [3]float64{-1, 0, 0}, D: 1},
		{Normal: [3]float64{0, 1, 0}, D: 1},
		{Normal: [3]float64{0, -1, 0}, D: 1},
		{Normal: [3]float64{0, 0, 1}, D: 1},
		{Normal: [3]float64{0, 0, -1}, D: 1},
	}}
}

func TestAabbInFrustumFullyInside(t *testing.T) {
	f := axisAlignedFrustum()
	aabb := [2][3]float64{{-0.5, -0.5, -0.5}, {0.5, 0.5, 0.5}}
	assert.True(t, aabbInFrustum(aabb, f))
}

func TestAabbInFrustumFullyOutside(t *testing.T) {
	f := axisAlignedFrustum()
	aabb := [2][3]float64{{2, 2, 2}, {3, 3, 3}}
	assert.False(t, aabbInFrustum(aabb, f))
}

func TestAabbInFrustumStraddlingBoundaryCounted(t *testing.T) {
	f := axisAlignedFrustum()
	// the box straddles the x/y/z == 1 faces: each +axis plane's p-vertex
	// (1.5) gives DistanceTo 2.5 and each -axis plane's p-vertex (0.5) gives
	// 0.5, so no plane rejects it.
	aabb := [2][3]float64{{0.5, 0.5, 0.5}, {1.5, 1.5, 1.5}}
	assert.True(t, aabbInFrustum(aabb, f))
}

func TestVisibilityTestShallowNodeNeverCulled(t *testing.T) {
	e := &Engine{cam: Camera{Frustum: axisAlignedFrustum()}}
	trav := &models.TraverseNode{DistanceFromRoot: 1, AabbPhys: [2][3]float64{{100, 100, 100}, {200, 200, 200}}}
	assert.True(t, e.visibilityTest(trav))
}

func TestVisibilityTestDeepNodeOutsideFrustumCulled(t *testing.T) {
	e := &Engine{cam: Camera{Frustum: axisAlignedFrustum()}}
	trav := &models.TraverseNode{DistanceFromRoot: 5, AabbPhys: [2][3]float64{{100, 100, 100}, {200, 200, 200}}}
	assert.False(t, e.visibilityTest(trav))
}

func TestVisibilityTestDeepNodeInsideFrustumVisible(t *testing.T) {
	e := &Engine{cam: Camera{Frustum: axisAlignedFrustum()}}
	trav := &models.TraverseNode{DistanceFromRoot: 5, AabbPhys: [2][3]float64{{-0.2, -0.2, -0.2}, {0.2, 0.2, 0.2}}}
	assert.True(t, e.visibilityTest(trav))
}

func TestComputeObbHasNonDegenerateExtent(t *testing.T) {
	corners := [8][3]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
	}
	obb := computeObb(corners)
	require.NotNil(t, obb)
	for i := 0; i < 3; i++ {
		assert.Greater(t, obb.MaxLocal[i]-obb.MinLocal[i], 0.0)
	}
}

func TestAabbPointDistanceInsideIsZero(t *testing.T) {
	lo, hi := [3]float64{0, 0, 0}, [3]float64{10, 10, 10}
	assert.Equal(t, 0.0, aabbPointDistance([3]float64{5, 5, 5}, lo, hi))
}

func TestAabbPointDistanceOutsideMeasuresNearestFace(t *testing.T) {
	lo, hi := [3]float64{0, 0, 0}, [3]float64{10, 10, 10}
	assert.Equal(t, 5.0, aabbPointDistance([3]float64{15, 0, 0}, lo, hi))
}
