package traversal

import "github.com/GrainArc/vtscore/models"

// travModeHierarchical recurses depth-first, only emitting a node's draws
// once every child that exists is itself determined and non-empty;
// otherwise it renders the coarser parent and only loads the children
// (none of them emit), so there is never a visible hole while children are
// still loading (spec.md §4.5, "Hierarchical" mode).
func (e *Engine) travModeHierarchical(trav *models.TraverseNode, loadOnly bool) {
	if !e.travInit(trav) {
		return
	}

	e.touchDraws(trav)
	if trav.Surface != nil && trav.RendersEmpty() {
		e.travDetermineDraws(trav)
	}

	if loadOnly {
		return
	}

	if !e.visibilityTest(trav) {
		return
	}

	if e.coarsenessTest(trav) || len(trav.Children) == 0 {
		if !trav.RendersEmpty() {
			e.emit(trav)
		}
		return
	}

	ok := true
	for _, c := range trav.Children {
		if c.Meta == nil {
			ok = false
			continue
		}
		if c.Surface != nil && c.RendersEmpty() {
			ok = false
		}
	}

	for _, c := range trav.Children {
		e.travModeHierarchical(c, !ok)
	}

	if !ok && !trav.RendersEmpty() {
		e.emit(trav)
	}
}

// travModeFlat never holds onto a coarser fallback: every frame starts
// clean and either renders leaves at the coarseness boundary or recurses,
// clearing draws on the way back up (spec.md §4.5, "Flat" mode).
func (e *Engine) travModeFlat(trav *models.TraverseNode) {
	if !e.travInit(trav) {
		return
	}

	if !e.visibilityTest(trav) {
		trav.ClearRenders()
		return
	}

	if e.coarsenessTest(trav) || len(trav.Children) == 0 {
		e.touchDraws(trav)
		if trav.Surface != nil && trav.RendersEmpty() {
			e.travDetermineDraws(trav)
		}
		if !trav.RendersEmpty() {
			e.emit(trav)
		}
		return
	}

	for _, c := range trav.Children {
		e.travModeFlat(c)
	}
	trav.ClearRenders()
}

// travModeBalanced trades Hierarchical's double-buffering for Flat's
// cleanliness: once a subtree is render-only (its coarseness boundary was
// already found this pass, or its meta is missing), it stops re-running
// travInit and just falls back to the nearest ancestor with usable draws.
func (e *Engine) travModeBalanced(trav *models.TraverseNode, renderOnly bool) {
	if renderOnly {
		trav.LastAccessTick = e.tickIndex
		if trav.Meta == nil {
			e.renderNodeCoarserRecursive(trav)
			return
		}
	} else if !e.travInit(trav) {
		e.renderNodeCoarserRecursive(trav)
		return
	}

	if !e.visibilityTest(trav) {
		trav.ClearRenders()
		return
	}

	if !renderOnly && (e.coarsenessTest(trav) || len(trav.Children) == 0) {
		e.touchDraws(trav)
		if trav.Surface != nil && trav.RendersEmpty() {
			e.travDetermineDraws(trav)
		}
		renderOnly = true
	}

	if renderOnly && !trav.RendersEmpty() {
		e.emit(trav)
		return
	}

	if len(trav.Children) == 0 {
		e.renderNodeCoarserRecursive(trav)
	} else {
		for _, c := range trav.Children {
			e.travModeBalanced(c, renderOnly)
		}
	}
	trav.ClearRenders()
}

// renderNodeCoarserRecursive walks back up to the nearest ancestor that
// still has assembled draws and emits that instead, so a subtree whose own
// meta/draws are not ready never leaves a visible gap.
func (e *Engine) renderNodeCoarserRecursive(trav *models.TraverseNode) {
	for n := trav.Parent; n != nil; n = n.Parent {
		if !n.RendersEmpty() {
			e.emit(n)
			return
		}
	}
}

// travModeFixed ignores coarseness entirely and descends purely by lod and
// a fixed distance cutoff — useful for reproducible screenshots/tests where
// screen-space heuristics would make the traversal depend on viewport size.
func (e *Engine) travModeFixed(trav *models.TraverseNode) {
	if !e.travInit(trav) {
		return
	}

	if travDistance(trav, e.cam.FocusPosPhys) > e.cam.FixedModeDistance {
		trav.ClearRenders()
		return
	}

	if trav.Id.Lod >= e.cam.FixedModeLod || len(trav.Children) == 0 {
		e.touchDraws(trav)
		if trav.Surface != nil && trav.RendersEmpty() {
			e.travDetermineDraws(trav)
		}
		if !trav.RendersEmpty() {
			e.emit(trav)
		}
		return
	}

	for _, c := range trav.Children {
		e.travModeFixed(c)
	}
	trav.ClearRenders()
}

// traverseClearing drops a node's (and its whole subtree's) state once it
// has not been touched for 5 consecutive ticks, bounding memory use for
// subtrees the camera has moved away from (spec.md §4.5 "Clearing pass").
func (e *Engine) traverseClearing(trav *models.TraverseNode) {
	if trav.LastAccessTick+5 < e.tickIndex {
		trav.ClearAll()
		return
	}
	for _, c := range trav.Children {
		e.traverseClearing(c)
	}
}

// touchDraws re-touches every resource already referenced by trav's
// assembled draws, protecting them from eviction for another tick even
// though travDetermineDraws will not run again until RendersEmpty.
func (e *Engine) touchDraws(trav *models.TraverseNode) {
	touch := func(key string, kind models.ResourceKind) {
		if key == "" {
			return
		}
		if r, ok := e.store.Get(key, kind); ok {
			e.store.Touch(r, e.tickIndex)
			e.store.UpdatePriority(r, trav.Priority)
		}
	}
	for _, list := range [][]models.RenderTask{trav.Opaque, trav.Transparent, trav.Infographic} {
		for _, t := range list {
			touch(t.MeshHandle, models.KindMeshAggregate)
			touch(t.ColorHandle, models.KindTexture)
			touch(t.MaskHandle, models.KindTexture)
		}
	}
}

// emit is the hand-off point to the draw assembler: it marks the node
// visited this tick and appends it to the list Emitted() returns, which the
// assembler consumes after Tick().
func (e *Engine) emit(trav *models.TraverseNode) {
	trav.LastAccessTick = e.tickIndex
	e.emitted = append(e.emitted, trav)
}
