package models

import (
	"strconv"
	"strings"
)

// expandURLTemplate substitutes {lod},{x},{y} (and {sub} when subMesh >= 0)
// placeholders in a surface/bound-layer URL template, the same way the
// teacher's tile proxy expands {z},{x},{y} in buildTileURL.
func expandURLTemplate(tpl string, id TileId, subMesh int) string {
	r := tpl
	r = strings.ReplaceAll(r, "{lod}", strconv.Itoa(int(id.Lod)))
	r = strings.ReplaceAll(r, "{x}", strconv.Itoa(int(id.X)))
	r = strings.ReplaceAll(r, "{y}", strconv.Itoa(int(id.Y)))
	if subMesh >= 0 {
		r = strings.ReplaceAll(r, "{sub}", strconv.Itoa(subMesh))
	}
	return r
}
