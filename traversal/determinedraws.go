package traversal

import "github.com/GrainArc/vtscore/models"

// travDetermineDraws assembles trav's RenderTasks from its surface's mesh
// aggregate and bound textures, mirroring travDetermineDrawsSurface. It is
// intentionally all-or-nothing: if any submesh's texture is still
// Indeterminate, none of the draws for this node are published yet,
// matching the original's "determined" accumulator.
func (e *Engine) travDetermineDraws(trav *models.TraverseNode) bool {
	e.updateNodePriority(trav)

	meshURL := trav.Surface.URLMesh(trav.Id)
	meshRes, ok := e.store.Get(meshURL, models.KindMeshAggregate)
	if !ok {
		trav.Surface = nil
		return false
	}
	e.store.Touch(meshRes, e.tickIndex)
	e.store.UpdatePriority(meshRes, trav.Priority)

	switch e.store.Validity(meshRes) {
	case models.Invalid:
		trav.Surface = nil
		return false
	case models.Indeterminate:
		return false
	}

	agg, ok := meshRes.Payload.(*models.MeshAggregate)
	if !ok || agg == nil {
		trav.Surface = nil
		return false
	}

	determined := true
	var opaque, transparent []models.RenderTask

	for subIdx, sub := range agg.SubMeshes {
		if sub.InternalUV {
			colorURL := trav.Surface.URLIntTex(trav.Id, subIdx)
			colorRes, ok := e.store.Get(colorURL, models.KindTexture)
			if !ok {
				continue
			}
			e.store.Touch(colorRes, e.tickIndex)
			e.store.UpdatePriority(colorRes, trav.Priority)
			switch e.store.Validity(colorRes) {
			case models.Indeterminate:
				determined = false
				continue
			case models.Invalid:
				continue
			}
			task := models.RenderTask{
				Kind:        models.DrawOpaque,
				MeshHandle:  meshURL,
				ColorHandle: colorURL,
				Model:       sub.NormToPhys,
				UVMatrix:    identity3(),
				Color:       [4]float64{1, 1, 1, 1},
				ExternalUV:  false,
			}
			// internal-uv submeshes render first among opaque tasks, same
			// ordering travDetermineDrawsSurface insert-at-front uses.
			opaque = append([]models.RenderTask{task}, opaque...)
			continue
		}

		if sub.ExternalUV {
			bls, ok := e.resolveBoundLayers(trav, sub)
			if !ok {
				determined = false
			}
			for _, b := range bls {
				task := models.RenderTask{
					Kind:        models.DrawOpaque,
					MeshHandle:  meshURL,
					ColorHandle: b.colorURL,
					MaskHandle:  b.maskURL,
					Model:       sub.NormToPhys,
					UVMatrix:    b.uvMatrix,
					Color:       [4]float64{1, 1, 1, b.alpha},
					ExternalUV:  true,
				}
				if b.transparent || b.maskURL != "" {
					task.Kind = models.DrawTransparent
					transparent = append(transparent, task)
				} else {
					opaque = append(opaque, task)
				}
			}
		}
	}

	if !determined {
		return false
	}

	trav.Opaque = opaque
	trav.Transparent = transparent
	if trav.RendersEmpty() {
		trav.Surface = nil
	}
	return true
}

type resolvedBound struct {
	colorURL    string
	maskURL     string
	uvMatrix    [9]float64
	transparent bool
	alpha       float64
}

// resolveBoundLayers resolves sub's ordered bound-layer candidate list
// (textureLayer override, then the surface's declared bound list),
// stopping after the first opaque, watertight layer — layers after it are
// never requested, matching reorderBoundLayers's opaque-layer short-circuit.
//
// The returned bool is false if any candidate's color or mask texture is
// still Indeterminate: per spec.md §4.5 step 5, a node with an Indeterminate
// dependency must leave the whole node draws-incomplete rather than commit
// a partial bound-layer set, same as the internal-uv branch above.
func (e *Engine) resolveBoundLayers(trav *models.TraverseNode, sub models.SubMesh) ([]resolvedBound, bool) {
	var out []resolvedBound
	determined := true
	candidates := e.stack.BoundLayersFor(trav.Surface, sub.SurfaceReference)
	if sub.TextureLayer != "" {
		if bl := e.stack.BoundLayerByID(sub.TextureLayer); bl != nil {
			candidates = append([]models.BoundLayer{*bl}, candidates...)
		}
	}

	for _, bl := range candidates {
		colorURL := bl.URLColor(trav.Id)
		colorRes, ok := e.store.Get(colorURL, models.KindTexture)
		if !ok {
			continue
		}
		e.store.Touch(colorRes, e.tickIndex)
		e.store.UpdatePriority(colorRes, trav.Priority)
		switch e.store.Validity(colorRes) {
		case models.Indeterminate:
			determined = false
			continue
		case models.Invalid:
			continue
		}

		maskURL := bl.URLMask(trav.Id)
		if maskURL != "" {
			maskRes, ok := e.store.Get(maskURL, models.KindTexture)
			if ok {
				e.store.Touch(maskRes, e.tickIndex)
				e.store.UpdatePriority(maskRes, trav.Priority)
				switch e.store.Validity(maskRes) {
				case models.Indeterminate:
					determined = false
					continue
				case models.Invalid:
					continue
				}
			}
		}

		alpha := 1.0
		if bl.Alpha != nil {
			alpha = *bl.Alpha
		}
		out = append(out, resolvedBound{
			colorURL:    colorURL,
			maskURL:     maskURL,
			uvMatrix:    identity3(),
			transparent: bl.Transparent,
			alpha:       alpha,
		})
		if bl.Watertight && !bl.Transparent {
			break
		}
	}
	return out, determined
}

func identity3() [9]float64 {
	return [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
}
