package models

// Surface is a named, URL-templated source of meta-tiles, meshes, internal
// textures and (optionally) free-form geodata.
type Surface struct {
	Id          string
	UrlMeta     string // template with {lod},{x},{y}
	UrlMesh     string
	UrlIntTex   string
	UrlGeodata  string
	Alien       bool
	Credits     []int

	// BoundLayers is this surface's ordered external-UV texture candidate
	// list (view.surfaces[id].boundLayers in the wire config), consulted by
	// the draw assembler for submeshes carrying externalUv.
	BoundLayers []BoundLayer
}

func (s *Surface) substitute(tpl string, id TileId, subMesh int) string {
	return expandURLTemplate(tpl, id, subMesh)
}

func (s *Surface) URLMeta(id TileId) string   { return s.substitute(s.UrlMeta, id, -1) }
func (s *Surface) URLMesh(id TileId) string   { return s.substitute(s.UrlMesh, id, -1) }
func (s *Surface) URLIntTex(id TileId, subMesh int) string {
	return s.substitute(s.UrlIntTex, id, subMesh)
}
func (s *Surface) URLGeodata(id TileId) string { return s.substitute(s.UrlGeodata, id, -1) }

// SurfaceStack is an ordered list of Surface entries, topmost first.
type SurfaceStack struct {
	Surfaces []Surface
	// TilesetMapping, if non-nil, redirects a resolved sourceReference to an
	// entry in a separate list of "virtual" component surfaces.
	TilesetMapping *TilesetMapping
}

// TilesetMapping allows several stacked surfaces to be served as one virtual
// surface: sourceReference in a MetaNode indexes into Surfaces here.
type TilesetMapping struct {
	Surfaces []Surface
}

// BoundLayersFor returns surface's ordered external-UV bound-layer
// candidates. surfaceReference is accepted for parity with the
// tileset-mapping-aware C++ boundList lookup but is not otherwise needed
// here since Surface already carries its own resolved BoundLayers.
func (s *SurfaceStack) BoundLayersFor(surface *Surface, surfaceReference int) []BoundLayer {
	if surface == nil {
		return nil
	}
	return surface.BoundLayers
}

// BoundLayerByID searches every surface's bound-layer list for id,
// supporting a submesh's explicit textureLayer override.
func (s *SurfaceStack) BoundLayerByID(id string) *BoundLayer {
	for i := range s.Surfaces {
		for j := range s.Surfaces[i].BoundLayers {
			if s.Surfaces[i].BoundLayers[j].Id == id {
				return &s.Surfaces[i].BoundLayers[j]
			}
		}
	}
	return nil
}

// BoundLayer is a texture overlay applied to a surface's geometry via UV
// remapping.
type BoundLayer struct {
	Id          string
	UrlColor    string
	UrlMask     string // optional, empty if none
	Watertight  bool
	Transparent bool
	Alpha       *float64
	Credits     []int
}

func (b *BoundLayer) URLColor(id TileId) string { return expandURLTemplate(b.UrlColor, id, -1) }
func (b *BoundLayer) URLMask(id TileId) string {
	if b.UrlMask == "" {
		return ""
	}
	return expandURLTemplate(b.UrlMask, id, -1)
}
