// Package normalize rescales index rasters onto a common scale using extrema
// measured over an analysis region.
package normalize

import (
	"errors"
	"fmt"
	"math"

	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrDegenerateRange = errors.New("normalize: degenerate value range")
	ErrBadScale        = errors.New("normalize: scale max must exceed min")
)

type Scale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

var DefaultScale = Scale{Min: 0, Max: 100}

func (s Scale) Span() float64 {
	return s.Max - s.Min
}

// Stats summarises the valid samples of a raster inside a region.
type Stats struct {
	Min   float64 `json:"min" csv:"min"`
	Max   float64 `json:"max" csv:"max"`
	Mean  float64 `json:"mean" csv:"mean"`
	Count int     `json:"count" csv:"count"`
}

// RegionStats computes min, max and mean of the valid samples whose pixel
// centre lies inside area. Count is zero when there are none.
func RegionStats(r *raster.Raster, area region.Area) Stats {
	samples := regionSamples(r, area)
	if len(samples) == 0 {
		return Stats{Min: math.NaN(), Max: math.NaN(), Mean: math.NaN()}
	}
	return Stats{
		Min:   floats.Min(samples),
		Max:   floats.Max(samples),
		Mean:  stat.Mean(samples, nil),
		Count: len(samples),
	}
}

func regionSamples(r *raster.Raster, area region.Area) []float64 {
	var samples []float64
	for y := 0; y < r.Grid.Height; y++ {
		for x := 0; x < r.Grid.Width; x++ {
			if v := r.At(x, y); !raster.IsNoData(v) && area.Contains(r.Grid.PixelCenter(x, y)) {
				samples = append(samples, v)
			}
		}
	}
	return samples
}

// Normalized is a raster rescaled from [Min, Max] onto Scale.
type Normalized struct {
	*raster.Raster
	Min   float64
	Max   float64
	Scale Scale
}

// Normalize clips r to area and rescales it so that the extrema found inside
// area map onto scale. Pixels outside area and no-data pixels are no-data.
func Normalize(r *raster.Raster, area region.Area, scale Scale) (*Normalized, error) {
	if !(scale.Max > scale.Min) {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrBadScale, scale.Min, scale.Max)
	}
	stats := RegionStats(r, area)
	if stats.Count == 0 {
		return nil, fmt.Errorf("%w: no valid sample inside the region", ErrDegenerateRange)
	}
	return NormalizeWith(Clip(r, area), stats.Min, stats.Max, scale)
}

// NormalizeWith rescales r with extrema computed elsewhere. Values outside
// [min, max] are clamped onto the scale.
func NormalizeWith(r *raster.Raster, min, max float64, scale Scale) (*Normalized, error) {
	if !(scale.Max > scale.Min) {
		return nil, fmt.Errorf("%w: [%g, %g]", ErrBadScale, scale.Min, scale.Max)
	}
	if max == min {
		return nil, fmt.Errorf("%w: min and max are both %g", ErrDegenerateRange, min)
	}
	out := r.Clone()
	// NaN stays NaN through the arithmetic.
	floats.AddConst(-min, out.Values)
	floats.Scale(scale.Span()/(max-min), out.Values)
	floats.AddConst(scale.Min, out.Values)
	for i, v := range out.Values {
		if !raster.IsNoData(v) {
			out.Values[i] = math.Min(math.Max(v, scale.Min), scale.Max)
		}
	}
	return &Normalized{Raster: out, Min: min, Max: max, Scale: scale}, nil
}

// Clip returns a copy of r with every pixel whose centre is outside area set
// to no-data.
func Clip(r *raster.Raster, area region.Area) *raster.Raster {
	out := r.Clone()
	for y := 0; y < r.Grid.Height; y++ {
		for x := 0; x < r.Grid.Width; x++ {
			if !area.Contains(r.Grid.PixelCenter(x, y)) {
				out.Set(x, y, raster.NoData)
			}
		}
	}
	return out
}

// Denormalize maps the normalised values back onto the source range.
func (n *Normalized) Denormalize() *raster.Raster {
	out := n.Raster.Clone()
	floats.AddConst(-n.Scale.Min, out.Values)
	floats.Scale((n.Max-n.Min)/n.Scale.Span(), out.Values)
	floats.AddConst(n.Min, out.Values)
	return out
}
