package draws

import (
	"testing"

	"github.com/GrainArc/vtscore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeAt(center [3]float64, opaque, transparent, infographic int) *models.TraverseNode {
	n := &models.TraverseNode{
		AabbPhys: [2][3]float64{center, center}, // zero-extent AABB centers exactly on center
	}
	for i := 0; i < opaque; i++ {
		n.Opaque = append(n.Opaque, models.RenderTask{Kind: models.DrawOpaque})
	}
	for i := 0; i < transparent; i++ {
		n.Transparent = append(n.Transparent, models.RenderTask{Kind: models.DrawTransparent})
	}
	for i := 0; i < infographic; i++ {
		n.Infographic = append(n.Infographic, models.RenderTask{Kind: models.DrawInfographic})
	}
	return n
}

func TestAssembleSortsOpaqueFrontToBack(t *testing.T) {
	far := nodeAt([3]float64{100, 0, 0}, 1, 0, 0)
	near := nodeAt([3]float64{1, 0, 0}, 1, 0, 0)
	mid := nodeAt([3]float64{10, 0, 0}, 1, 0, 0)

	out := Assemble([]*models.TraverseNode{far, near, mid}, [3]float64{0, 0, 0})

	require.Len(t, out.Opaque, 3)
	assert.Equal(t, [3]float64{1, 0, 0}, out.Opaque[0].Center)
	assert.Equal(t, [3]float64{10, 0, 0}, out.Opaque[1].Center)
	assert.Equal(t, [3]float64{100, 0, 0}, out.Opaque[2].Center)
}

func TestAssembleKeepsTransparentAndInfographicInTraversalOrder(t *testing.T) {
	a := nodeAt([3]float64{5, 0, 0}, 0, 1, 1)
	b := nodeAt([3]float64{1, 0, 0}, 0, 1, 1)

	out := Assemble([]*models.TraverseNode{a, b}, [3]float64{0, 0, 0})

	require.Len(t, out.Transparent, 2)
	require.Len(t, out.Infographic, 2)
	// traversal order (a, b), not distance order — no sort applied.
	assert.Equal(t, a.Transparent[0], out.Transparent[0])
	assert.Equal(t, b.Transparent[0], out.Transparent[1])
}

func TestAssembleSkipsNodesWithNoOpaqueTasks(t *testing.T) {
	empty := &models.TraverseNode{AabbPhys: [2][3]float64{{9, 9, 9}, {9, 9, 9}}}
	withOne := nodeAt([3]float64{1, 1, 1}, 1, 0, 0)

	out := Assemble([]*models.TraverseNode{empty, withOne}, [3]float64{0, 0, 0})
	assert.Len(t, out.Opaque, 1)
}

func TestCreditIdsDedupesAndSorts(t *testing.T) {
	n1 := &models.TraverseNode{Meta: &models.MetaNode{Credits: map[int]struct{}{3: {}, 1: {}}}}
	n2 := &models.TraverseNode{Meta: &models.MetaNode{Credits: map[int]struct{}{1: {}, 2: {}}}}
	n3 := &models.TraverseNode{Meta: nil}

	ids := CreditIds([]*models.TraverseNode{n1, n2, n3})
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestCreditIdsEmptyWhenNoMetaHasCredits(t *testing.T) {
	n := &models.TraverseNode{Meta: &models.MetaNode{Credits: map[int]struct{}{}}}
	ids := CreditIds([]*models.TraverseNode{n})
	assert.Empty(t, ids)
}
