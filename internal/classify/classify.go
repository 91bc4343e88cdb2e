// Package classify combines two normalised index rasters into a weighted
// composite and buckets it into five ordered status classes.
package classify

import (
	"errors"
	"fmt"
	"math"

	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrWeightMismatch = errors.New("classify: weights must sum to 1")
	ErrGridMismatch   = raster.ErrGridMismatch
	ErrBadThresholds  = errors.New("classify: thresholds must be four ascending values")
)

const (
	Classes         = 5
	weightTolerance = 1e-9
)

type Weights struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

var DefaultWeights = Weights{A: 0.5, B: 0.5}

// DefaultThresholds split the 0-100 composite into five equal classes.
var DefaultThresholds = []float64{20, 40, 60, 80}

func (w Weights) Validate() error {
	if math.IsNaN(w.A) || math.IsNaN(w.B) || math.Abs(w.A+w.B-1) > weightTolerance {
		return fmt.Errorf("%w: %g + %g", ErrWeightMismatch, w.A, w.B)
	}
	return nil
}

func ValidateThresholds(thresholds []float64) error {
	if len(thresholds) != Classes-1 {
		return fmt.Errorf("%w: got %d", ErrBadThresholds, len(thresholds))
	}
	for i := 1; i < len(thresholds); i++ {
		if !(thresholds[i] > thresholds[i-1]) {
			return fmt.Errorf("%w: %v", ErrBadThresholds, thresholds)
		}
	}
	return nil
}

// Class returns the class of a composite value. Classes are closed on their
// upper side: with thresholds 20/40/60/80 the value 40 is class 2 and 40.0001
// is class 3.
func Class(composite float64, thresholds []float64) int {
	class := 1
	for _, t := range thresholds {
		if t < composite {
			class++
		}
	}
	return min(max(class, 1), Classes)
}

// Composite returns w.A*a + w.B*b wherever both inputs are valid.
func Composite(a, b *raster.Raster, w Weights) (*raster.Raster, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if !a.Grid.Equal(b.Grid) || len(a.Values) != len(b.Values) {
		return nil, fmt.Errorf("%w: %dx%d and %dx%d", ErrGridMismatch, a.Grid.Width, a.Grid.Height, b.Grid.Width, b.Grid.Height)
	}
	out := raster.New(a.Grid, a.Time)
	// A no-data input turns the sum into no-data.
	floats.ScaleTo(out.Values, w.A, a.Values)
	floats.AddScaled(out.Values, w.B, b.Values)
	return out, nil
}

// Classify computes the composite of a and b and maps it onto classes 1..5.
func Classify(a, b *raster.Raster, w Weights, thresholds []float64) (*raster.Raster, error) {
	if err := ValidateThresholds(thresholds); err != nil {
		return nil, err
	}
	composite, err := Composite(a, b, w)
	if err != nil {
		return nil, err
	}
	return ClassifyComposite(composite, thresholds)
}

// ClassifyComposite maps an already weighted composite onto classes 1..5.
func ClassifyComposite(composite *raster.Raster, thresholds []float64) (*raster.Raster, error) {
	if err := ValidateThresholds(thresholds); err != nil {
		return nil, err
	}
	out := composite.Clone()
	for i, v := range out.Values {
		if !raster.IsNoData(v) {
			out.Values[i] = float64(Class(v, thresholds))
		}
	}
	return out, nil
}

// Bucket is the pixel count and share of one class.
type Bucket struct {
	Class   int     `csv:"class" json:"class"`
	Pixels  int     `csv:"pixels" json:"pixels"`
	Percent float64 `csv:"percent" json:"percent"`
}

// Histogram counts the valid pixels of a class raster per class.
func Histogram(classes *raster.Raster) []Bucket {
	buckets := make([]Bucket, Classes)
	for i := range buckets {
		buckets[i].Class = i + 1
	}
	total := 0
	for _, v := range classes.Values {
		if raster.IsNoData(v) {
			continue
		}
		c := int(v)
		if c < 1 || c > Classes {
			continue
		}
		buckets[c-1].Pixels++
		total++
	}
	if total > 0 {
		for i := range buckets {
			buckets[i].Percent = 100 * float64(buckets[i].Pixels) / float64(total)
		}
	}
	return buckets
}
