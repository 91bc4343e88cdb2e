package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/classify"
	"github.com/ges-coastal/coastal-monitor/internal/composite"
	"github.com/ges-coastal/coastal-monitor/internal/normalize"
	"github.com/ges-coastal/coastal-monitor/internal/region"
)

// Extrema fixes the normalisation range instead of measuring it over the
// coastal band.
type Extrema struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Index selects the source and reduction of one index branch.
type Index struct {
	Source  string            `json:"source"`
	Reducer composite.Reducer `json:"reducer"`
	Extrema *Extrema          `json:"extrema,omitempty"`
}

type Params struct {
	Country     string           `json:"country"`
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
	BufferKm    float64          `json:"buffer_km"`
	Vegetation  Index            `json:"vegetation"`
	Temperature Index            `json:"temperature"`
	Scale       normalize.Scale  `json:"scale"`
	Weights     classify.Weights `json:"weights"`
	Thresholds  []float64        `json:"thresholds"`
	// MinCoverage drops layers whose valid share of the band is below it.
	MinCoverage float64 `json:"min_coverage"`
}

func DefaultParams() Params {
	return Params{
		BufferKm:    10,
		Vegetation:  Index{Source: "MOD13A1", Reducer: composite.Median},
		Temperature: Index{Source: "MOD11A1", Reducer: composite.Median},
		Scale:       normalize.DefaultScale,
		Weights:     classify.DefaultWeights,
		Thresholds:  append([]float64(nil), classify.DefaultThresholds...),
	}
}

// ParseDate parses an ISO 8601 calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q, expected YYYY-MM-DD", ErrInvalidParams, s)
	}
	return t, nil
}

// Validate reports every problem with p as a single InputError.
func (p Params) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Country) == "" {
		errs = append(errs, fmt.Errorf("%w: country is required", ErrInvalidParams))
	}
	if p.Start.IsZero() || p.End.IsZero() {
		errs = append(errs, fmt.Errorf("%w: start and end dates are required", ErrInvalidParams))
	} else if p.End.Before(p.Start) {
		errs = append(errs, fmt.Errorf("%w: end %s is before start %s", ErrInvalidParams, p.End.Format(time.DateOnly), p.Start.Format(time.DateOnly)))
	}
	if p.BufferKm < 0 || p.BufferKm > region.MaxBufferKm || math.IsNaN(p.BufferKm) {
		errs = append(errs, fmt.Errorf("%w: %g km", region.ErrInvalidBuffer, p.BufferKm))
	}
	for _, idx := range []Index{p.Vegetation, p.Temperature} {
		if idx.Source == "" {
			errs = append(errs, fmt.Errorf("%w: source is required for both indices", ErrInvalidParams))
		}
		if _, err := composite.ParseReducer(string(idx.Reducer)); err != nil {
			errs = append(errs, err)
		}
		if idx.Extrema != nil && !(idx.Extrema.Max > idx.Extrema.Min) {
			errs = append(errs, fmt.Errorf("%w: extrema of %s must have max > min", ErrInvalidParams, idx.Source))
		}
	}
	if !(p.Scale.Max > p.Scale.Min) {
		errs = append(errs, fmt.Errorf("%w: [%g, %g]", normalize.ErrBadScale, p.Scale.Min, p.Scale.Max))
	}
	if err := p.Weights.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := classify.ValidateThresholds(p.Thresholds); err != nil {
		errs = append(errs, err)
	}
	if p.MinCoverage < 0 || p.MinCoverage > 1 {
		errs = append(errs, fmt.Errorf("%w: min coverage %g is outside [0, 1]", ErrInvalidParams, p.MinCoverage))
	}
	if len(errs) == 0 {
		return nil
	}
	return &Error{Kind: InputError, Stage: "params", Err: errors.Join(errs...)}
}
