package mapfacade

import (
	"context"
	"fmt"

	"github.com/GrainArc/vtscore/models"
)

// MetaTileDecoder and MeshDecoder are external collaborators: the binary
// wire formats for meta-tiles and mesh aggregates are outside this
// runtime's scope (spec.md §1, "geodesic math and format decoders are
// external") — the host embedding supplies the concrete parsers.
type MetaTileDecoder interface {
	DecodeMetaTile(raw []byte) (*models.MetaTile, error)
}

type MeshDecoder interface {
	DecodeMeshAggregate(raw []byte) (*models.MeshAggregate, error)
}

// metaDecoder implements fetch.Decoder, dispatching by Resource.Kind to the
// host-supplied format decoders. Textures have no structured payload at
// this layer — decoding into a GPU-resident handle is the host's upload
// callback's job, so metaDecoder only carries the raw bytes through.
type metaDecoder struct {
	metaTiles MetaTileDecoder
	meshes    MeshDecoder
}

func (d *metaDecoder) Decode(ctx context.Context, r *models.Resource, raw []byte) (int64, int64, error) {
	switch r.Kind {
	case models.KindMetaTile:
		if d.metaTiles == nil {
			return 0, 0, fmt.Errorf("mapfacade: no meta-tile decoder configured")
		}
		mt, err := d.metaTiles.DecodeMetaTile(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("mapfacade: decode meta-tile: %w", err)
		}
		r.Payload = mt
		return int64(len(raw)), 0, nil

	case models.KindMeshAggregate:
		if d.meshes == nil {
			return 0, 0, fmt.Errorf("mapfacade: no mesh decoder configured")
		}
		agg, err := d.meshes.DecodeMeshAggregate(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("mapfacade: decode mesh aggregate: %w", err)
		}
		r.Payload = agg
		return int64(len(raw)), int64(len(raw)), nil

	case models.KindTexture:
		// GPU upload happens on the data thread's own context (§5); this
		// decoder only reports the byte cost and hands the raw bytes
		// through as the payload for that upload step to consume.
		r.Payload = raw
		return int64(len(raw)), int64(len(raw)), nil

	default:
		r.Payload = raw
		return int64(len(raw)), 0, nil
	}
}
