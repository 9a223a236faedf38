package traversal

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/GrainArc/vtscore/convert"
	"github.com/GrainArc/vtscore/models"
)

func identityEngine() *Engine {
	return &Engine{
		conv:     convert.NewConvertor(nil),
		refFrame: &models.ReferenceFrame{Srs: string(convert.Physical), Extents: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{16, 16}}},
	}
}

func TestComputeGeometryUsesGeomExtentsZWhenValid(t *testing.T) {
	e := identityEngine()
	trav := &models.TraverseNode{
		Id:  models.TileId{Lod: 0, X: 0, Y: 0},
		Srs: string(convert.Physical),
		Meta: &models.MetaNode{
			GeomExtentsZ: models.ZRange{Min: 10, Max: 20, Valid: true},
		},
	}
	e.computeGeometry(trav)

	assert.Equal(t, [3]float64{0, 0, 10}, trav.CornersPhys[0])
	assert.Equal(t, [3]float64{16, 16, 20}, trav.CornersPhys[7])
}

func TestComputeGeometryFallsBackToMetaExtentsWithoutZRange(t *testing.T) {
	e := identityEngine()
	trav := &models.TraverseNode{
		Id:  models.TileId{Lod: 0, X: 0, Y: 0},
		Srs: string(convert.Physical),
		Meta: &models.MetaNode{
			Extents: orb.Bound{Min: orb.Point{1, 2}, Max: orb.Point{3, 4}},
		},
	}
	e.computeGeometry(trav)

	// every corner is flattened to z=0 and takes x,y from the meta node's
	// own extents box, not the reference frame's division extents.
	for _, c := range trav.CornersPhys {
		assert.Equal(t, 0.0, c[2])
		assert.GreaterOrEqual(t, c[0], 1.0)
		assert.LessOrEqual(t, c[0], 3.0)
		assert.GreaterOrEqual(t, c[1], 2.0)
		assert.LessOrEqual(t, c[1], 4.0)
	}
}

func TestComputeGeometryDegenerateExtentsLeavesCornersZero(t *testing.T) {
	e := identityEngine()
	trav := &models.TraverseNode{
		Id:   models.TileId{Lod: 0, X: 0, Y: 0},
		Srs:  string(convert.Physical),
		Meta: &models.MetaNode{}, // no z-range, Extents.Min == Extents.Max == zero value
	}
	e.computeGeometry(trav)

	assert.Equal(t, [8][3]float64{}, trav.CornersPhys)
}
