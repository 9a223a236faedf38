package models

import "github.com/paulmach/orb"

// ReferenceFrame carries the division geometry shared by every node of one
// loaded map configuration's quad-tree: the lod-0 root's extents in the
// frame's navigation srs, subdivided by power-of-two quadrant splitting at
// each deeper lod (spec.md §3 "division.extents"/"division.metaBinaryOrder").
type ReferenceFrame struct {
	Srs             string
	Extents         orb.Bound
	MetaBinaryOrder uint
}

// NodeExtents returns id's [ll, ur] footprint within the frame's navigation
// srs, by halving the root extents id.Lod times along each axis.
func (f *ReferenceFrame) NodeExtents(id TileId) orb.Bound {
	divisions := float64(uint64(1) << id.Lod)
	spanX := (f.Extents.Max[0] - f.Extents.Min[0]) / divisions
	spanY := (f.Extents.Max[1] - f.Extents.Min[1]) / divisions

	llx := f.Extents.Min[0] + float64(id.X)*spanX
	lly := f.Extents.Min[1] + float64(id.Y)*spanY
	return orb.Bound{
		Min: orb.Point{llx, lly},
		Max: orb.Point{llx + spanX, lly + spanY},
	}
}
