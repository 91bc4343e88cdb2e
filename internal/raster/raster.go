package raster

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
)

var (
	ErrMissingBand  = errors.New("raster: missing band")
	ErrGridMismatch = errors.New("raster: grid mismatch")
)

// NoData marks an excluded sample. It is NaN so a valid zero stays a zero.
var NoData = math.NaN()

func IsNoData(v float64) bool {
	return math.IsNaN(v)
}

// Grid is the pixel lattice shared by every band of a layer. GeoTransform
// follows the GDAL affine convention.
type Grid struct {
	Width        int
	Height       int
	GeoTransform [6]float64
	EPSG         int
}

func (g Grid) Size() int {
	return g.Width * g.Height
}

func (g Grid) Equal(other Grid) bool {
	return g.Width == other.Width && g.Height == other.Height &&
		g.GeoTransform == other.GeoTransform && g.EPSG == other.EPSG
}

// PixelCenter returns the lon/lat of the centre of pixel (x, y).
func (g Grid) PixelCenter(x, y int) orb.Point {
	gt := g.GeoTransform
	fx, fy := float64(x)+0.5, float64(y)+0.5
	return orb.Point{
		gt[0] + gt[1]*fx + gt[2]*fy,
		gt[3] + gt[4]*fx + gt[5]*fy,
	}
}

// Bound is the footprint of the grid in its own coordinates.
func (g Grid) Bound() orb.Bound {
	corners := []orb.Point{
		g.corner(0, 0),
		g.corner(g.Width, 0),
		g.corner(0, g.Height),
		g.corner(g.Width, g.Height),
	}
	b := orb.Bound{Min: corners[0], Max: corners[0]}
	for _, c := range corners[1:] {
		b = b.Extend(c)
	}
	return b
}

func (g Grid) corner(x, y int) orb.Point {
	gt := g.GeoTransform
	return orb.Point{
		gt[0] + gt[1]*float64(x) + gt[2]*float64(y),
		gt[3] + gt[4]*float64(x) + gt[5]*float64(y),
	}
}

// NewGrid builds a north-up grid anchored at the top-left corner (lon, lat).
func NewGrid(width, height int, lon, lat, pixelSize float64) Grid {
	return Grid{
		Width:        width,
		Height:       height,
		GeoTransform: [6]float64{lon, pixelSize, 0, lat, 0, -pixelSize},
		EPSG:         4326,
	}
}

// Raster is one band of samples on a grid, row-major.
type Raster struct {
	Grid   Grid
	Time   time.Time
	Values []float64
}

func New(grid Grid, t time.Time) *Raster {
	values := make([]float64, grid.Size())
	for i := range values {
		values[i] = NoData
	}
	return &Raster{Grid: grid, Time: t, Values: values}
}

func Filled(grid Grid, t time.Time, value float64) *Raster {
	r := New(grid, t)
	for i := range r.Values {
		r.Values[i] = value
	}
	return r
}

func (r *Raster) At(x, y int) float64 {
	return r.Values[y*r.Grid.Width+x]
}

func (r *Raster) Set(x, y int, v float64) {
	r.Values[y*r.Grid.Width+x] = v
}

func (r *Raster) Clone() *Raster {
	values := make([]float64, len(r.Values))
	copy(values, r.Values)
	return &Raster{Grid: r.Grid, Time: r.Time, Values: values}
}

// ValidCount returns the number of samples that are not no-data.
func (r *Raster) ValidCount() int {
	n := 0
	for _, v := range r.Values {
		if !IsNoData(v) {
			n++
		}
	}
	return n
}

// Layer is a single acquisition with all of its named bands.
type Layer struct {
	ID     string
	Source string
	Time   time.Time
	Grid   Grid
	Bands  map[string][]float64
}

func (l *Layer) Band(name string) (*Raster, error) {
	values, ok := l.Bands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in layer %s", ErrMissingBand, name, l.ID)
	}
	if len(values) != l.Grid.Size() {
		return nil, fmt.Errorf("%w: band %q of layer %s has %d samples, grid has %d", ErrGridMismatch, name, l.ID, len(values), l.Grid.Size())
	}
	return &Raster{Grid: l.Grid, Time: l.Time, Values: values}, nil
}

func (l *Layer) BandNames() []string {
	names := make([]string, 0, len(l.Bands))
	for name := range l.Bands {
		names = append(names, name)
	}
	return names
}

// Series is a time-ascending sequence of layers from one source.
type Series []*Layer

func (s Series) Times() []time.Time {
	times := make([]time.Time, len(s))
	for i, l := range s {
		times[i] = l.Time
	}
	return times
}
