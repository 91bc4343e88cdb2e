// Package composite collapses a time series of masked rasters into one
// representative raster with a per-pixel aggregate.
package composite

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmptyInput     = errors.New("composite: empty series")
	ErrGridMismatch   = raster.ErrGridMismatch
	ErrUnknownReducer = errors.New("composite: unknown reducer")
)

type Reducer string

const (
	Mean   Reducer = "mean"
	Median Reducer = "median"
)

func ParseReducer(s string) (Reducer, error) {
	switch r := Reducer(strings.ToLower(strings.TrimSpace(s))); r {
	case Mean, Median:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReducer, s)
	}
}

// Reduce aggregates every pixel over the valid samples of series. A pixel
// with no valid sample is no-data. The output carries the time of the first
// layer.
func Reduce(series []*raster.Raster, reducer Reducer) (*raster.Raster, error) {
	if len(series) == 0 {
		return nil, ErrEmptyInput
	}
	var aggregate func([]float64) float64
	switch reducer {
	case Mean:
		aggregate = mean
	case Median:
		aggregate = median
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReducer, reducer)
	}

	grid := series[0].Grid
	for i, r := range series[1:] {
		if !r.Grid.Equal(grid) {
			return nil, fmt.Errorf("%w: layer %d of %d", ErrGridMismatch, i+1, len(series))
		}
	}

	out := raster.New(grid, series[0].Time)
	samples := make([]float64, 0, len(series))
	for i := range out.Values {
		samples = samples[:0]
		for _, r := range series {
			if v := r.Values[i]; !raster.IsNoData(v) {
				samples = append(samples, v)
			}
		}
		if len(samples) > 0 {
			out.Values[i] = aggregate(samples)
		}
	}
	return out, nil
}

func mean(values []float64) float64 {
	return stat.Mean(values, nil)
}

// median sorts values in place. An even count takes the midpoint of the two
// middle samples, which stat.Quantile does not offer.
func median(values []float64) float64 {
	slices.Sort(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
