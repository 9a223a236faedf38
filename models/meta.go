package models

import (
	"math"

	"github.com/paulmach/orb"
)

// NodeFlag is the MetaNode attribute bitset described in spec.md §3.
type NodeFlag uint32

const (
	FlagGeometry NodeFlag = 1 << iota
	FlagAlien
	FlagApplyTexelSize
	FlagApplyDisplaySize
	FlagChildUL
	FlagChildUR
	FlagChildLL
	FlagChildLR
)

// childFlag returns the Child{UL,UR,LL,LR} flag for quadrant index 0..3, in
// the same UL,UR,LL,LR order used by TileId.QuadrantInParent.
func childFlag(quadrant uint32) NodeFlag {
	return NodeFlag(uint32(FlagChildUL) << quadrant)
}

// ZRange is the optional geomExtents.z.{min,max} of a MetaNode.
type ZRange struct {
	Min, Max float64
	Valid    bool
}

const surrogateInvalid = math.MaxFloat64

// MetaNode is the decoded, per-tile record carried inside a MetaTile.
// The core treats it as opaque data extracted by the external meta-tile
// decoder; this struct is the verified, in-memory shape it is handed as.
type MetaNode struct {
	Flags                NodeFlag
	Extents              orb.Bound // local-srs axis-aligned box, spec.md §3 "extents.ll"/"extents.ur"
	GeomExtentsZ         ZRange
	Surrogate            float64 // surrogateInvalid when absent
	TexelSize            float64
	DisplaySize          float64
	SourceReference      int // index into an optional tileset-mapping surface list; 0 == none
	Credits              map[int]struct{}
	InternalTextureCount uint32
}

func (n *MetaNode) Geometry() bool          { return n.Flags&FlagGeometry != 0 }
func (n *MetaNode) Alien() bool             { return n.Flags&FlagAlien != 0 }
func (n *MetaNode) ApplyTexelSize() bool    { return n.Flags&FlagApplyTexelSize != 0 }
func (n *MetaNode) ApplyDisplaySize() bool  { return n.Flags&FlagApplyDisplaySize != 0 }
func (n *MetaNode) ChildAvailable(q uint32) bool {
	return n.Flags&childFlag(q) != 0
}
func (n *MetaNode) HasValidSurrogate() bool { return n.Surrogate != surrogateInvalid }

// MetaTile is a square block of MetaNodes of side 2^order, addressed by the
// rounded TileId of its covering node.
type MetaTile struct {
	Order uint
	Nodes []MetaNode // len == (1<<Order)^2, row-major
}

// Get returns the node for tileId, which must lie within this tile's block
// (same lod, same Round(order)).
func (m *MetaTile) Get(tileId TileId) *MetaNode {
	idx := tileId.LocalIndex(m.Order)
	if idx < 0 || idx >= len(m.Nodes) {
		return nil
	}
	return &m.Nodes[idx]
}
