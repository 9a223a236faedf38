package models

// SubMesh is one part of a decoded MeshAggregate (spec.md §4.6 "Draw
// assembly"): it carries enough to build one or more RenderTasks once its
// textures resolve.
type SubMesh struct {
	MeshHandle       string // opaque GPU mesh handle, produced by the decode step
	NormToPhys       [16]float64
	ExternalUV       bool
	InternalUV       bool
	SurfaceReference int    // which BoundLayer list governs this submesh's external UVs
	TextureLayer     string // explicit single bound layer id, "" == none
}

// MeshAggregate is the decoded payload of a KindMeshAggregate Resource.
type MeshAggregate struct {
	SubMeshes []SubMesh
}
