// Package region resolves country boundaries and derives the coastal band of
// a country: the ring of land within a buffer distance of its border.
package region

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

var (
	ErrNotFound      = errors.New("region: country not found")
	ErrAmbiguous     = errors.New("region: country name matches more than one boundary")
	ErrInvalidBuffer = errors.New("region: buffer must be between 0 and 100 km")
	ErrNotPolygonal  = errors.New("region: geometry is not a polygon or multipolygon")
)

const MaxBufferKm = 100

// Area is anything that can answer whether a lon/lat point lies inside it.
type Area interface {
	Contains(p orb.Point) bool
}

// Region is an immutable lon/lat polygon set.
type Region struct {
	Name     string
	polygons orb.MultiPolygon
	bound    orb.Bound
}

func NewRegion(name string, g orb.Geometry) (Region, error) {
	var mp orb.MultiPolygon
	switch g := g.(type) {
	case orb.Polygon:
		mp = orb.MultiPolygon{g.Clone()}
	case orb.MultiPolygon:
		mp = g.Clone()
	default:
		return Region{}, fmt.Errorf("%w: %s has %T", ErrNotPolygonal, name, g)
	}
	if len(mp) == 0 {
		return Region{}, fmt.Errorf("%w: %s is empty", ErrNotPolygonal, name)
	}
	return Region{Name: name, polygons: mp, bound: mp.Bound()}, nil
}

// Polygons returns a copy of the region geometry.
func (r Region) Polygons() orb.MultiPolygon {
	return r.polygons.Clone()
}

func (r Region) Bound() orb.Bound {
	return r.bound
}

func (r Region) Contains(p orb.Point) bool {
	if !r.bound.Contains(p) {
		return false
	}
	return planar.MultiPolygonContains(r.polygons, p)
}

// Area returns the region area in square metres.
func (r Region) Area() float64 {
	return math.Abs(geo.Area(r.polygons))
}

// IntersectsBound reports whether the region and the rectangle b share any
// point: one contains a point of the other or their boundaries cross.
func (r Region) IntersectsBound(b orb.Bound) bool {
	if !r.bound.Intersects(b) {
		return false
	}
	if r.Contains(b.Center()) {
		return true
	}
	corners := [4]orb.Point{b.Min, {b.Max.Lon(), b.Min.Lat()}, b.Max, {b.Min.Lon(), b.Max.Lat()}}
	for _, polygon := range r.polygons {
		for _, ring := range polygon {
			for i, p := range ring {
				if b.Contains(p) {
					return true
				}
				if i+1 == len(ring) {
					continue
				}
				for j := range corners {
					if segmentsCross(p, ring[i+1], corners[j], corners[(j+1)%4]) {
						return true
					}
				}
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := orientation(c, d, a)
	d2 := orientation(c, d, b)
	d3 := orientation(a, b, c)
	d4 := orientation(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func orientation(a, b, c orb.Point) float64 {
	return (b.Lon()-a.Lon())*(c.Lat()-a.Lat()) - (b.Lat()-a.Lat())*(c.Lon()-a.Lon())
}
