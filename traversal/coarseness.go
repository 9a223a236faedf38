package traversal

import "github.com/GrainArc/vtscore/models"

// coarsenessTest projects each of the node's eight corners' texel-sized
// offset into screen space and accepts the node (stops subdividing, render
// here) only if every corner's projected size is below maxTexelToPixelScale
// (spec.md §4.5 step 4).
//
// Grounded on original_source/browser/src/vts-browser-lib/renderer.cpp's
// MapImpl::coarsenessTest: for each corner c, project c-0.5*up and
// c+0.5*up through the view-projection matrix and measure the screen-space
// distance between them, scaled by window height.
func (e *Engine) coarsenessTest(trav *models.TraverseNode) bool {
	if trav.Meta == nil {
		return false
	}

	applyTexelSize := trav.Meta.ApplyTexelSize()
	applyDisplaySize := trav.Meta.ApplyDisplaySize()
	if !applyTexelSize && !applyDisplaySize {
		return false
	}

	result := true

	if applyTexelSize {
		up := scale(e.cam.PerpendicularUnitVector, trav.Meta.TexelSize)
		for _, c := range trav.CornersPhys {
			c1 := sub(c, scale(up, 0.5))
			c2 := add(c1, up)
			s1 := projectToScreen(e.cam.ViewProj, c1)
			s2 := projectToScreen(e.cam.ViewProj, c2)
			projected := length(sub(s2, s1)) * e.cam.ViewportHeightPx
			if projected >= e.cam.MaxTexelToPixelScale {
				result = false
			}
		}
	}

	if applyDisplaySize {
		// the original leaves this branch unimplemented ("result = false;
		// // todo"); spec.md §9's Open Question directs implementers to
		// mirror that rather than invent a displaySize-based formula.
		result = false
	}

	return result
}

// projectToScreen transforms a physical-srs point through the
// view-projection matrix and performs the perspective divide.
func projectToScreen(viewProj [16]float64, p [3]float64) [3]float64 {
	x := viewProj[0]*p[0] + viewProj[4]*p[1] + viewProj[8]*p[2] + viewProj[12]
	y := viewProj[1]*p[0] + viewProj[5]*p[1] + viewProj[9]*p[2] + viewProj[13]
	z := viewProj[2]*p[0] + viewProj[6]*p[1] + viewProj[10]*p[2] + viewProj[14]
	w := viewProj[3]*p[0] + viewProj[7]*p[1] + viewProj[11]*p[2] + viewProj[15]
	if w != 0 {
		x /= w
		y /= w
		z /= w
	}
	return [3]float64{x, y, z}
}
