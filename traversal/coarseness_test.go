package traversal

import (
	"testing"

	"github.com/GrainArc/vtscore/models"
	"github.com/stretchr/testify/assert"
)

func cubeCorners(center [3]float64, half float64) [8][3]float64 {
	var out [8][3]float64
	i := 0
	for _, dx := range []float64{-half, half} {
		for _, dy := range []float64{-half, half} {
			for _, dz := range []float64{-half, half} {
				out[i] = [3]float64{center[0] + dx, center[1] + dy, center[2] + dz}
				i++
			}
		}
	}
	return out
}

// pinholeViewProj is a minimal view-projection matrix for a camera at the
// origin looking down +z: after the perspective divide it reduces to the
// standard pinhole projection x' = f*x/z, y' = f*y/z.
func pinholeViewProj(f float64) [16]float64 {
	return [16]float64{
		f, 0, 0, 0,
		0, f, 0, 0,
		0, 0, 1, 1,
		0, 0, 0, 0,
	}
}

func testCamera(viewportHeight, maxScale float64) Camera {
	return Camera{
		PerpendicularUnitVector: [3]float64{0, 1, 0},
		ViewProj:                pinholeViewProj(1),
		ViewportHeightPx:        viewportHeight,
		MaxTexelToPixelScale:    maxScale,
	}
}

func TestCoarsenessTestNilMetaNeverCoarse(t *testing.T) {
	e := &Engine{cam: testCamera(1000, 2)}
	trav := &models.TraverseNode{CornersPhys: cubeCorners([3]float64{0, 0, 100}, 1)}
	assert.False(t, e.coarsenessTest(trav))
}

func TestCoarsenessTestNeitherFlagSetNeverCoarse(t *testing.T) {
	e := &Engine{cam: testCamera(1000, 2)}
	trav := &models.TraverseNode{
		CornersPhys: cubeCorners([3]float64{0, 0, 100}, 1),
		Meta:        &models.MetaNode{TexelSize: 0.001},
	}
	assert.False(t, e.coarsenessTest(trav))
}

func TestCoarsenessTestFarNodeIsCoarse(t *testing.T) {
	e := &Engine{cam: testCamera(1000, 2)}
	trav := &models.TraverseNode{
		CornersPhys: cubeCorners([3]float64{0, 0, 10000}, 1),
		Meta:        &models.MetaNode{Flags: models.FlagApplyTexelSize, TexelSize: 0.01},
	}
	assert.True(t, e.coarsenessTest(trav))
}

func TestCoarsenessTestNearNodeIsNotCoarse(t *testing.T) {
	e := &Engine{cam: testCamera(1000, 2)}
	trav := &models.TraverseNode{
		CornersPhys: cubeCorners([3]float64{0, 0, 10}, 1),
		Meta:        &models.MetaNode{Flags: models.FlagApplyTexelSize, TexelSize: 5},
	}
	assert.False(t, e.coarsenessTest(trav))
}

func TestCoarsenessTestAllEightCornersMustPassThreshold(t *testing.T) {
	e := &Engine{cam: testCamera(1000, 2)}
	// one corner much closer to the camera (z=1) than the rest (z=10000):
	// its projected texel size is large, so the whole node must fail even
	// though seven of its eight corners individually pass.
	corners := cubeCorners([3]float64{0, 0, 10000}, 1)
	corners[0] = [3]float64{0, 0, 1}
	trav := &models.TraverseNode{
		CornersPhys: corners,
		Meta:        &models.MetaNode{Flags: models.FlagApplyTexelSize, TexelSize: 0.01},
	}
	assert.False(t, e.coarsenessTest(trav))
}

func TestCoarsenessTestDisplaySizeOverridesToNotCoarse(t *testing.T) {
	e := &Engine{cam: testCamera(1000, 2)}
	trav := &models.TraverseNode{
		// texel-size alone would read as coarse (far node, tiny texel).
		CornersPhys: cubeCorners([3]float64{0, 0, 10000}, 1),
		Meta: &models.MetaNode{
			Flags:     models.FlagApplyTexelSize | models.FlagApplyDisplaySize,
			TexelSize: 0.01,
		},
	}
	// applyDisplaySize mirrors the original's unimplemented branch: it always
	// forces the result to false, it never switches the metric consulted.
	assert.False(t, e.coarsenessTest(trav))
}
