package models

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

// MapConfig is the wire format described in spec.md §6: reference frame,
// srs list, bound layers, surfaces, optional virtual-surfaces mapping,
// view and initial position.
type MapConfig struct {
	ReferenceFrame ReferenceFrameWire `json:"referenceFrame" validate:"required"`
	Srs            []SrsWire          `json:"srs" validate:"required,min=1,dive"`
	BoundLayers    []BoundLayerWire   `json:"boundLayers" validate:"dive"`
	Surfaces       []SurfaceWire      `json:"surfaces" validate:"required,min=1,dive"`
	VirtualSurfaces *VirtualSurfacesWire `json:"virtualSurfaces,omitempty"`
	View           ViewWire           `json:"view"`
	Position       PositionWire       `json:"position" validate:"required"`
}

type ReferenceFrameWire struct {
	Subdivisions    int    `json:"subdivisions" validate:"gte=0"`
	NavigationSrs   string `json:"navigationSrs" validate:"required"`
	PhysicalSrs     string `json:"physicalSrs" validate:"required"`
	MetaBinaryOrder uint   `json:"metaBinaryOrder" validate:"gte=1,lte=10"`
}

type SrsWire struct {
	Id         string `json:"id" validate:"required"`
	Definition string `json:"def" validate:"required"`
}

type BoundLayerWire struct {
	Id          string   `json:"id" validate:"required"`
	UrlColor    string   `json:"urlColor" validate:"required"`
	UrlMask     string   `json:"urlMask"`
	Availability string  `json:"availability"`
	Credits     []int    `json:"credits"`
	Watertight  bool     `json:"watertight"`
	Transparent bool     `json:"transparent"`
	Alpha       *float64 `json:"alpha"`
}

type SurfaceWire struct {
	Id         string `json:"id" validate:"required"`
	UrlMeta    string `json:"urlMeta" validate:"required"`
	UrlMesh    string `json:"urlMesh" validate:"required"`
	UrlIntTex  string `json:"urlTex"`
	UrlGeodata string `json:"geodata"`
	Alien      bool   `json:"alien"`
}

type VirtualSurfacesWire struct {
	ComponentSurfaceIds []string `json:"surfaces" validate:"required,min=1"`
	MappingUrl          string   `json:"mappingUrl" validate:"required"`
}

type ViewWire struct {
	// BoundLayerParams is keyed by surface id, each value an ordered list of
	// bound-layer params to apply on top of that surface's geometry.
	BoundLayerParams map[string][]ViewBoundParamWire `json:"surfaces"`
}

type ViewBoundParamWire struct {
	Id    string   `json:"id" validate:"required"`
	Alpha *float64 `json:"alpha"`
}

type PositionWire struct {
	Type          string     `json:"type" validate:"required,oneof=objective subjective"`
	VerticalFov   float64    `json:"verticalFov" validate:"gt=0,lt=180"`
	VerticalExtent float64   `json:"verticalExtent" validate:"gt=0"`
	Orientation   [3]float64 `json:"orientation"`
	Position      [3]float64 `json:"position"`
}

var validate = validator.New()

// DecodeMapConfig decodes and validates the map-configuration wire JSON
// (§6). A validation failure is a "map-config exception" (§7): the caller
// decides whether an alternate config path is configured.
func DecodeMapConfig(data []byte) (*MapConfig, error) {
	var cfg MapConfig
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("models: decode map config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("models: validate map config: %w", err)
	}
	return &cfg, nil
}

// ToSurfaceStack builds the runtime SurfaceStack from the wire surfaces,
// topmost-first in declaration order (stacks are declared front-to-back),
// resolving each surface's view.surfaces[id] bound-layer param list against
// the top-level boundLayers definitions.
func (c *MapConfig) ToSurfaceStack() SurfaceStack {
	defs := make(map[string]BoundLayerWire, len(c.BoundLayers))
	for _, bl := range c.BoundLayers {
		defs[bl.Id] = bl
	}

	stack := SurfaceStack{Surfaces: make([]Surface, len(c.Surfaces))}
	for i, s := range c.Surfaces {
		stack.Surfaces[i] = Surface{
			Id:          s.Id,
			UrlMeta:     s.UrlMeta,
			UrlMesh:     s.UrlMesh,
			UrlIntTex:   s.UrlIntTex,
			UrlGeodata:  s.UrlGeodata,
			Alien:       s.Alien,
			BoundLayers: resolveBoundLayerParams(defs, c.View.BoundLayerParams[s.Id]),
		}
	}
	return stack
}

func resolveBoundLayerParams(defs map[string]BoundLayerWire, params []ViewBoundParamWire) []BoundLayer {
	out := make([]BoundLayer, 0, len(params))
	for _, p := range params {
		def, ok := defs[p.Id]
		if !ok {
			continue
		}
		alpha := def.Alpha
		if p.Alpha != nil {
			alpha = p.Alpha
		}
		out = append(out, BoundLayer{
			Id:          def.Id,
			UrlColor:    def.UrlColor,
			UrlMask:     def.UrlMask,
			Watertight:  def.Watertight,
			Transparent: def.Transparent,
			Alpha:       alpha,
			Credits:     def.Credits,
		})
	}
	return out
}
