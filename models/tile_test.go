package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileIdChildParentRoundTrip(t *testing.T) {
	root := TileId{Lod: 2, X: 3, Y: 5}
	child := root.Child(1, 0)
	assert.Equal(t, TileId{Lod: 3, X: 7, Y: 10}, child)
	assert.Equal(t, root, child.Parent())
}

func TestTileIdParentOnRootPanics(t *testing.T) {
	assert.Panics(t, func() {
		TileId{Lod: 0, X: 0, Y: 0}.Parent()
	})
}

func TestTileIdQuadrantInParent(t *testing.T) {
	root := TileId{Lod: 4, X: 6, Y: 9}
	for dy := uint32(0); dy < 2; dy++ {
		for dx := uint32(0); dx < 2; dx++ {
			child := root.Child(dx, dy)
			assert.Equal(t, dx+dy*2, child.QuadrantInParent())
		}
	}
}

func TestTileIdRoundIsIdempotent(t *testing.T) {
	id := TileId{Lod: 10, X: 773, Y: 421}
	once := id.Round(5)
	twice := once.Round(5)
	assert.Equal(t, once, twice)
}

func TestTileIdRoundMasksLowBits(t *testing.T) {
	id := TileId{Lod: 6, X: 0b101101, Y: 0b110011}
	rounded := id.Round(2)
	assert.Equal(t, uint32(0b101100), rounded.X)
	assert.Equal(t, uint32(0b110000), rounded.Y)
}

func TestTileIdLocalIndexCoversWholeMetaTile(t *testing.T) {
	order := uint(3)
	side := 1 << order
	seen := make(map[int]bool)
	base := TileId{Lod: 8, X: 16, Y: 24} // already a multiple of 2^order
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			id := TileId{Lod: base.Lod, X: base.X + uint32(x), Y: base.Y + uint32(y)}
			assert.Equal(t, base, id.Round(order))
			idx := id.LocalIndex(order)
			assert.False(t, seen[idx], "duplicate local index %d", idx)
			seen[idx] = true
		}
	}
	assert.Len(t, seen, side*side)
}
