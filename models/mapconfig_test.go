package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestDecodeMapConfigValidatesRequiredFields(t *testing.T) {
	_, err := DecodeMapConfig([]byte(`{}`))
	assert.Error(t, err)
}

func TestDecodeMapConfigRoundTrip(t *testing.T) {
	raw := []byte(`{
		"referenceFrame": {"subdivisions": 2, "navigationSrs": "nav", "physicalSrs": "phys", "metaBinaryOrder": 5},
		"srs": [{"id": "nav", "def": "+proj=longlat"}, {"id": "phys", "def": "+proj=geocent"}],
		"boundLayers": [{"id": "ortho", "urlColor": "http://x/{lod}/{x}/{y}.jpg", "alpha": 0.5}],
		"surfaces": [{"id": "terrain", "urlMeta": "http://x/meta", "urlMesh": "http://x/mesh"}],
		"view": {"surfaces": {"terrain": [{"id": "ortho"}]}},
		"position": {"type": "objective", "verticalFov": 60, "verticalExtent": 1000}
	}`)
	cfg, err := DecodeMapConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, "nav", cfg.ReferenceFrame.NavigationSrs)
	assert.Len(t, cfg.Surfaces, 1)
}

func TestToSurfaceStackResolvesBoundLayerParamsAndOverridesAlpha(t *testing.T) {
	cfg := &MapConfig{
		BoundLayers: []BoundLayerWire{
			{Id: "ortho", UrlColor: "http://x/{lod}/{x}/{y}.jpg", Alpha: ptr(0.8)},
			{Id: "unused", UrlColor: "http://y"},
		},
		Surfaces: []SurfaceWire{
			{Id: "terrain", UrlMeta: "http://x/meta", UrlMesh: "http://x/mesh"},
		},
		View: ViewWire{
			BoundLayerParams: map[string][]ViewBoundParamWire{
				"terrain": {{Id: "ortho", Alpha: ptr(0.3)}, {Id: "missing"}},
			},
		},
	}

	stack := cfg.ToSurfaceStack()
	require.Len(t, stack.Surfaces, 1)
	layers := stack.Surfaces[0].BoundLayers
	require.Len(t, layers, 1) // "missing" silently skipped, "unused" never referenced
	assert.Equal(t, "ortho", layers[0].Id)
	require.NotNil(t, layers[0].Alpha)
	assert.Equal(t, 0.3, *layers[0].Alpha) // view-level override wins over the definition's own alpha
}

func TestToSurfaceStackKeepsDefinitionAlphaWhenViewOmitsIt(t *testing.T) {
	cfg := &MapConfig{
		BoundLayers: []BoundLayerWire{{Id: "ortho", UrlColor: "http://x", Alpha: ptr(0.8)}},
		Surfaces:    []SurfaceWire{{Id: "terrain", UrlMeta: "http://x/meta", UrlMesh: "http://x/mesh"}},
		View: ViewWire{
			BoundLayerParams: map[string][]ViewBoundParamWire{
				"terrain": {{Id: "ortho"}},
			},
		},
	}
	stack := cfg.ToSurfaceStack()
	require.NotNil(t, stack.Surfaces[0].BoundLayers[0].Alpha)
	assert.Equal(t, 0.8, *stack.Surfaces[0].BoundLayers[0].Alpha)
}
