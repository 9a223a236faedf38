// Package convert implements the coordinate convertor (spec.md §4.1): a pure
// function bundle converting points between the navigation, physical and
// per-node spatial reference systems declared in a map configuration.
//
// Grounded on Transformer/CoordTransform.go's ST_Transform-based conversion
// in the teacher repo, but performed in-process rather than via a per-call
// database round trip: the convertor is invoked every frame (once per visited
// tile), so it must not block on I/O (§5 "the render thread never blocks").
package convert

import (
	"math"

	"github.com/paulmach/orb"
)

// Srs names the well-known navigation and physical reference systems; a
// per-node srs is addressed by its own map-config id instead.
type Srs string

const (
	Navigation Srs = "navigation"
	Physical   Srs = "physical"
)

// Point3 is a plain 3-component point (no unit baked in; interpretation is
// per-srs).
type Point3 [3]float64

// Definition describes one spatial reference system loaded from the map
// configuration's srs list. Kind selects which built-in conversion family
// handles it; Proj is an opaque definition string (e.g. a proj4 string) that
// a real deployment's geodesic backend would parse — out of scope here per
// spec.md §1 ("geodesic math" is an external collaborator) — so Kind fully
// determines behavior and Proj is carried through only for diagnostics.
type Definition struct {
	Id   string
	Kind Kind
	Proj string

	// MajorRadius is the body's equatorial radius, used by geocentric<->geodetic
	// conversions.
	MajorRadius float64
	Flattening  float64
}

type Kind int

const (
	KindGeocentric Kind = iota // ECEF-like physical srs
	KindGeodetic               // lon/lat/height navigation srs
	KindLocal                  // a per-node projected srs (e.g. local tangent plane)
)

// DefaultEarth mirrors the WGS84 ellipsoid, used when a map config does not
// override MajorRadius/Flattening.
var DefaultEarth = Definition{Kind: KindGeocentric, MajorRadius: 6378137.0, Flattening: 1 / 298.257223563}

// Convertor holds the loaded srs definitions for one map configuration and
// exposes convert(p, from, to) plus the Navigation<->Physical shortcuts.
type Convertor struct {
	defs map[string]Definition
}

func NewConvertor(defs []Definition) *Convertor {
	m := make(map[string]Definition, len(defs))
	for _, d := range defs {
		m[d.Id] = d
	}
	return &Convertor{defs: m}
}

// Convert converts p from the `from` srs to the `to` srs. Non-invertible or
// unknown conversions return a point whose components are NaN; callers must
// check Finite before using the result (spec.md §4.1).
func (c *Convertor) Convert(p Point3, from, to string) Point3 {
	if from == to {
		return p
	}
	fd, ok1 := c.defs[from]
	td, ok2 := c.defs[to]
	if !ok1 || !ok2 {
		return nanPoint()
	}
	geo, ok := toGeodetic(p, fd)
	if !ok {
		return nanPoint()
	}
	out, ok := fromGeodetic(geo, td)
	if !ok {
		return nanPoint()
	}
	return out
}

// Finite reports whether every component of p is finite, the documented way
// callers detect a failed conversion.
func Finite(p Point3) bool {
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func nanPoint() Point3 { return Point3{math.NaN(), math.NaN(), math.NaN()} }

// toGeodetic normalises any supported srs kind to lon/lat/height degrees+m.
func toGeodetic(p Point3, d Definition) (Point3, bool) {
	switch d.Kind {
	case KindGeodetic:
		return p, true
	case KindGeocentric:
		return ecefToGeodetic(p, d), true
	case KindLocal:
		// local tangent-plane srs without an anchor cannot be generally
		// inverted here; treat as identity against geodetic (documented
		// limitation — a real per-node srs anchor comes from the division
		// node, which is supplied by the traversal engine, not this pure
		// function bundle).
		return p, true
	default:
		return Point3{}, false
	}
}

func fromGeodetic(p Point3, d Definition) (Point3, bool) {
	switch d.Kind {
	case KindGeodetic:
		return p, true
	case KindGeocentric:
		return geodeticToECEF(p, d), true
	case KindLocal:
		return p, true
	default:
		return Point3{}, false
	}
}

// geodeticToECEF converts lon,lat (degrees),height(m) to an ECEF-like
// geocentric point using the standard ellipsoidal formula.
func geodeticToECEF(p Point3, d Definition) Point3 {
	a := d.MajorRadius
	f := d.Flattening
	e2 := f * (2 - f)
	lon := p[0] * math.Pi / 180
	lat := p[1] * math.Pi / 180
	h := p[2]
	sinLat := math.Sin(lat)
	n := a / math.Sqrt(1-e2*sinLat*sinLat)
	x := (n + h) * math.Cos(lat) * math.Cos(lon)
	y := (n + h) * math.Cos(lat) * math.Sin(lon)
	z := (n*(1-e2) + h) * sinLat
	return Point3{x, y, z}
}

func ecefToGeodetic(p Point3, d Definition) Point3 {
	a := d.MajorRadius
	f := d.Flattening
	e2 := f * (2 - f)
	x, y, z := p[0], p[1], p[2]
	lon := math.Atan2(y, x)
	pxy := math.Hypot(x, y)
	lat := math.Atan2(z, pxy*(1-e2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		n := a / math.Sqrt(1-e2*sinLat*sinLat)
		h := pxy/math.Cos(lat) - n
		lat = math.Atan2(z, pxy*(1-e2*n/(n+h)))
	}
	sinLat := math.Sin(lat)
	n := a / math.Sqrt(1-e2*sinLat*sinLat)
	h := pxy/math.Cos(lat) - n
	return Point3{lon * 180 / math.Pi, lat * 180 / math.Pi, h}
}

// OrbPoint / FromOrbPoint adapt to github.com/paulmach/orb, whose
// orb.Point/orb.Bound types back the extents stored on models.ReferenceFrame
// and models.MetaNode; the traversal engine uses these to drop back to a
// plain Point3 before running a coordinate conversion.
func OrbPoint(p Point3) orb.Point { return orb.Point{p[0], p[1]} }
func FromOrbPoint(p orb.Point, height float64) Point3 { return Point3{p[0], p[1], height} }
