package region

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const metersPerDegree = 2 * math.Pi * orb.EarthRadius / 360

type segment struct {
	a, b  orb.Point
	bound orb.Bound
}

// CoastalBand is the base region minus a copy of it shrunk inwards by Width
// metres. A zero width means no shrink and the band covers the whole region.
type CoastalBand struct {
	Base     Region
	Width    float64
	segments []segment
}

func NewCoastalBand(base Region, bufferKm float64) (CoastalBand, error) {
	if bufferKm < 0 || bufferKm > MaxBufferKm || math.IsNaN(bufferKm) {
		return CoastalBand{}, fmt.Errorf("%w: got %v", ErrInvalidBuffer, bufferKm)
	}
	band := CoastalBand{Base: base, Width: bufferKm * 1000}
	for _, polygon := range base.polygons {
		for _, ring := range polygon {
			for i := 0; i+1 < len(ring); i++ {
				a, b := ring[i], ring[i+1]
				band.segments = append(band.segments, segment{
					a:     a,
					b:     b,
					bound: orb.Bound{Min: a, Max: a}.Extend(b),
				})
			}
		}
	}
	return band, nil
}

func (b CoastalBand) Bound() orb.Bound {
	return b.Base.Bound()
}

// Contains reports whether p is inside the base region and closer than Width
// to its boundary.
func (b CoastalBand) Contains(p orb.Point) bool {
	if !b.Base.Contains(p) {
		return false
	}
	if b.Width == 0 {
		return true
	}
	return b.distanceToBoundary(p) < b.Width
}

// distanceToBoundary returns the distance in metres from p to the closest
// ring segment, or +Inf when no segment lies within Width. Segments are
// projected onto a local equirectangular plane centred on p.
func (b CoastalBand) distanceToBoundary(p orb.Point) float64 {
	kx := metersPerDegree * math.Cos(p.Lat()*math.Pi/180)
	ky := metersPerDegree
	if kx < 1 {
		kx = 1
	}
	padLon, padLat := b.Width/kx, b.Width/ky
	window := orb.Bound{
		Min: orb.Point{p.Lon() - padLon, p.Lat() - padLat},
		Max: orb.Point{p.Lon() + padLon, p.Lat() + padLat},
	}

	project := func(q orb.Point) orb.Point {
		return orb.Point{(q.Lon() - p.Lon()) * kx, (q.Lat() - p.Lat()) * ky}
	}

	best := math.Inf(1)
	for _, s := range b.segments {
		if !s.bound.Intersects(window) {
			continue
		}
		d := planar.DistanceFromSegment(project(s.a), project(s.b), orb.Point{})
		if d < best {
			best = d
		}
	}
	return best
}
