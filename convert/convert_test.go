package convert

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func testConvertor() *Convertor {
	return NewConvertor([]Definition{
		{Id: "nav", Kind: KindGeodetic, MajorRadius: DefaultEarth.MajorRadius, Flattening: DefaultEarth.Flattening},
		{Id: "phys", Kind: KindGeocentric, MajorRadius: DefaultEarth.MajorRadius, Flattening: DefaultEarth.Flattening},
	})
}

func TestConvertSameSrsIsIdentity(t *testing.T) {
	c := testConvertor()
	p := Point3{12, 34, 56}
	assert.Equal(t, p, c.Convert(p, "nav", "nav"))
}

func TestConvertUnknownSrsProducesNonFinite(t *testing.T) {
	c := testConvertor()
	out := c.Convert(Point3{0, 0, 0}, "nav", "bogus")
	assert.False(t, Finite(out))
}

func TestConvertGeodeticToGeocentricRoundTripsWithinTolerance(t *testing.T) {
	c := testConvertor()
	original := Point3{116.4, 39.9, 500} // lon, lat, height near Beijing

	phys := c.Convert(original, "nav", "phys")
	assert.True(t, Finite(phys))

	back := c.Convert(phys, "phys", "nav")
	assert.True(t, Finite(back))

	assert.InDelta(t, original[0], back[0], 1e-6)
	assert.InDelta(t, original[1], back[1], 1e-6)
	assert.InDelta(t, original[2], back[2], 1e-3)
}

func TestConvertGeocentricRoundTripAtEquator(t *testing.T) {
	c := testConvertor()
	original := Point3{0, 0, 0}
	phys := c.Convert(original, "nav", "phys")
	assert.InDelta(t, DefaultEarth.MajorRadius, phys[0], 1e-6)
	assert.InDelta(t, 0, phys[1], 1e-6)
	assert.InDelta(t, 0, phys[2], 1e-6)

	back := c.Convert(phys, "phys", "nav")
	assert.InDelta(t, 0, back[0], 1e-9)
	assert.InDelta(t, 0, back[1], 1e-9)
}

func TestFiniteRejectsNaNAndInf(t *testing.T) {
	assert.False(t, Finite(Point3{math.NaN(), 0, 0}))
	assert.False(t, Finite(Point3{math.Inf(1), 0, 0}))
	assert.True(t, Finite(Point3{1, 2, 3}))
}

func TestOrbPointRoundTrip(t *testing.T) {
	p := Point3{1.5, -2.5, 100}
	op := OrbPoint(p)
	assert.Equal(t, orb.Point{1.5, -2.5}, op)
	back := FromOrbPoint(op, p[2])
	assert.Equal(t, p, back)
}
