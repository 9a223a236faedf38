package models

import "fmt"

// TileId identifies one node of the hierarchical quad-tree: lod is the
// subdivision level (root at 0), x/y are the node's column/row at that lod.
type TileId struct {
	Lod uint8
	X   uint32
	Y   uint32
}

func (t TileId) String() string {
	return fmt.Sprintf("%d-%d-%d", t.Lod, t.X, t.Y)
}

// Child returns the id of this tile's child in quadrant (dx,dy), dx,dy in {0,1}.
func (t TileId) Child(dx, dy uint32) TileId {
	return TileId{Lod: t.Lod + 1, X: 2*t.X + dx, Y: 2*t.Y + dy}
}

// Parent returns this tile's parent id. Calling Parent on the root (Lod==0)
// is a programmer error and panics, matching the "lod==0 has no parent"
// boundary invariant from the traversal spec.
func (t TileId) Parent() TileId {
	if t.Lod == 0 {
		panic("models: TileId.Parent called on root")
	}
	return TileId{Lod: t.Lod - 1, X: t.X / 2, Y: t.Y / 2}
}

// QuadrantInParent returns this tile's index (0=UL,1=UR,2=LL,3=LR) within its
// parent's 2x2 child block, matching the Child{UL,UR,LL,LR} MetaNode flags.
func (t TileId) QuadrantInParent() uint32 {
	return (t.X % 2) + (t.Y%2)*2
}

// metaBinaryOrder is read from the reference frame (division.metaBinaryOrder,
// typically 5): rounding masks off the low metaBinaryOrder bits of x and y so
// a TileId maps to the MetaTile that covers it.

// Round masks off the low `order` bits of X and Y, producing the id of the
// MetaTile covering this tile. Idempotent: Round(Round(t, o), o) == Round(t, o).
func (t TileId) Round(order uint) TileId {
	mask := ^uint32(0) << order
	return TileId{Lod: t.Lod, X: t.X & mask, Y: t.Y & mask}
}

// LocalIndex returns this tile's row-major offset within its rounded
// MetaTile's 2^order x 2^order grid of nodes.
func (t TileId) LocalIndex(order uint) int {
	side := 1 << order
	mask := uint32(side - 1)
	lx := int(t.X & mask)
	ly := int(t.Y & mask)
	return ly*side + lx
}
