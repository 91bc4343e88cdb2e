package region

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const boundaries = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"country_na": "Squareland"},
     "geometry": {"type": "Polygon", "coordinates": [[[10,40],[11,40],[11,41],[10,41],[10,40]]]}},
    {"type": "Feature", "properties": {"country_na": "Twinland"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
    {"type": "Feature", "properties": {"country_na": "Twinland"},
     "geometry": {"type": "Polygon", "coordinates": [[[2,0],[3,0],[3,1],[2,1],[2,0]]]}},
    {"type": "Feature", "properties": {"country_na": "Islands"},
     "geometry": {"type": "MultiPolygon", "coordinates": [
       [[[20,10],[21,10],[21,11],[20,11],[20,10]]],
       [[[22,10],[23,10],[23,11],[22,11],[22,10]]]]}},
    {"type": "Feature", "properties": {"name": "nameless"},
     "geometry": {"type": "Polygon", "coordinates": [[[5,5],[6,5],[6,6],[5,6],[5,5]]]}}
  ]
}`

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver([]byte(boundaries), "")
	require.NoError(t, err)
	return r
}

func TestResolverCountries(t *testing.T) {
	r := newTestResolver(t)

	assert.Equal(t, []string{"Islands", "Squareland", "Twinland"}, r.Countries())
	assert.Equal(t, []string{"Twinland"}, r.Duplicates())
}

func TestResolverErrors(t *testing.T) {
	r := newTestResolver(t)

	_, _, err := r.Resolve("Atlantis", 10)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = r.Resolve("Twinland", 10)
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, _, err = r.Resolve("Squareland", -1)
	assert.ErrorIs(t, err, ErrInvalidBuffer)

	_, _, err = r.Resolve("Squareland", 100.5)
	assert.ErrorIs(t, err, ErrInvalidBuffer)

	_, _, err = r.Resolve("Squareland", 100)
	assert.NoError(t, err)
}

func TestRegionContainsMultiPolygon(t *testing.T) {
	r := newTestResolver(t)
	islands, err := r.Region("Islands")
	require.NoError(t, err)

	assert.True(t, islands.Contains(orb.Point{20.5, 10.5}))
	assert.True(t, islands.Contains(orb.Point{22.5, 10.5}))
	assert.False(t, islands.Contains(orb.Point{21.5, 10.5}))
}

func TestRegionArea(t *testing.T) {
	r := newTestResolver(t)
	square, err := r.Region("Squareland")
	require.NoError(t, err)

	// one degree square around 40.5N is roughly 111 km by 85 km
	assert.InEpsilon(t, 9.4e9, square.Area(), 0.05)
}

func samplePoints(b orb.Bound, steps int) []orb.Point {
	var points []orb.Point
	dx := (b.Max.Lon() - b.Min.Lon()) / float64(steps)
	dy := (b.Max.Lat() - b.Min.Lat()) / float64(steps)
	for i := 0; i <= steps; i++ {
		for j := 0; j <= steps; j++ {
			points = append(points, orb.Point{b.Min.Lon() + dx*(float64(i)+0.25), b.Min.Lat() + dy*(float64(j)+0.25)})
		}
	}
	return points
}

func TestCoastalBandIsSubsetOfRegion(t *testing.T) {
	r := newTestResolver(t)
	base, band, err := r.Resolve("Squareland", 10)
	require.NoError(t, err)

	inBand, inBase := 0, 0
	for _, p := range samplePoints(base.Bound().Pad(0.2), 60) {
		if band.Contains(p) {
			inBand++
			assert.True(t, base.Contains(p), "band point %v outside region", p)
		}
		if base.Contains(p) {
			inBase++
		}
	}
	assert.Greater(t, inBand, 0)
	assert.Less(t, inBand, inBase, "band should be a strict subset")

	// centre is ~42 km from every edge
	assert.False(t, band.Contains(orb.Point{10.5, 40.5}))
	// ~4 km from the western edge
	assert.True(t, band.Contains(orb.Point{10.05, 40.5}))
	assert.False(t, band.Contains(orb.Point{9.95, 40.5}))
}

func TestCoastalBandZeroBufferIsWholeRegion(t *testing.T) {
	r := newTestResolver(t)
	base, band, err := r.Resolve("Squareland", 0)
	require.NoError(t, err)

	for _, p := range samplePoints(base.Bound().Pad(0.2), 30) {
		assert.Equal(t, base.Contains(p), band.Contains(p), "point %v", p)
	}
}

func TestCoastalBandNarrowsAsBufferShrinks(t *testing.T) {
	r := newTestResolver(t)
	base, err := r.Region("Squareland")
	require.NoError(t, err)
	points := samplePoints(base.Bound(), 200)
	kmPerDegree := metersPerDegree / 1000 * math.Cos(40.5*math.Pi/180)

	previous := math.MaxInt
	for _, km := range []float64{1, 0.1, 0.01} {
		band, err := NewCoastalBand(base, km)
		require.NoError(t, err)

		// half and twice the width in from the western edge
		assert.True(t, band.Contains(orb.Point{10 + km/2/kmPerDegree, 40.5}), "%v km", km)
		assert.False(t, band.Contains(orb.Point{10 + 2*km/kmPerDegree, 40.5}), "%v km", km)

		covered := 0
		for _, p := range points {
			if band.Contains(p) {
				covered++
			}
		}
		assert.LessOrEqual(t, covered, previous, "%v km", km)
		previous = covered
	}

	whole, err := NewCoastalBand(base, 0)
	require.NoError(t, err)
	for _, p := range points {
		assert.Equal(t, base.Contains(p), whole.Contains(p), "point %v", p)
	}
}

func TestCoastalBandGrowsWithBuffer(t *testing.T) {
	r := newTestResolver(t)
	base, err := r.Region("Squareland")
	require.NoError(t, err)

	narrow, err := NewCoastalBand(base, 5)
	require.NoError(t, err)
	wide, err := NewCoastalBand(base, 20)
	require.NoError(t, err)
	widest, err := NewCoastalBand(base, 100)
	require.NoError(t, err)

	nNarrow, nWide := 0, 0
	for _, p := range samplePoints(base.Bound(), 40) {
		if narrow.Contains(p) {
			nNarrow++
			assert.True(t, wide.Contains(p), "point %v in 5 km band but not in 20 km band", p)
		}
		if wide.Contains(p) {
			nWide++
		}
		// a 100 km band covers the whole 1 degree square
		assert.Equal(t, base.Contains(p), widest.Contains(p), "point %v", p)
	}
	assert.Less(t, nNarrow, nWide)
}

func TestCoastalBandPolygon(t *testing.T) {
	r := newTestResolver(t)
	base, band, err := r.Resolve("Squareland", 10)
	require.NoError(t, err)

	mp, err := band.Polygon()
	if err != nil {
		t.Skipf("GDAL built without GEOS support: %v", err)
	}
	require.NotEmpty(t, mp)
	assert.True(t, mp.Bound().Min.Lon() >= base.Bound().Min.Lon()-1e-6)
	assert.True(t, mp.Bound().Max.Lat() <= base.Bound().Max.Lat()+1e-6)

	zero, err := NewCoastalBand(base, 0)
	require.NoError(t, err)
	whole, err := zero.Polygon()
	require.NoError(t, err)
	assert.Equal(t, base.Polygons(), whole)
}

func TestRegionIntersectsBound(t *testing.T) {
	r := newTestResolver(t)
	square, err := r.Region("Squareland")
	require.NoError(t, err)

	inside := orb.Bound{Min: orb.Point{10.2, 40.2}, Max: orb.Point{10.4, 40.4}}
	covering := orb.Bound{Min: orb.Point{9, 39}, Max: orb.Point{12, 42}}
	crossing := orb.Bound{Min: orb.Point{10.4, 39}, Max: orb.Point{10.6, 42}}
	apart := orb.Bound{Min: orb.Point{12, 40}, Max: orb.Point{13, 41}}

	assert.True(t, square.IntersectsBound(inside))
	assert.True(t, square.IntersectsBound(covering))
	assert.True(t, square.IntersectsBound(crossing))
	assert.False(t, square.IntersectsBound(apart))
}
