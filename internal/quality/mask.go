// Package quality masks low-confidence samples out of raster layers using
// per-source quality indicator bands.
package quality

import (
	"errors"
	"fmt"

	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
)

var (
	// ErrMissingBand is raster.ErrMissingBand so either can be matched.
	ErrMissingBand   = raster.ErrMissingBand
	ErrUnknownSource = errors.New("quality: unknown source")
	ErrBadPredicate  = errors.New("quality: bad predicate")
)

// Mask returns a copy of layer where every band other than qualityBand has
// its samples set to no-data wherever keep rejects the indicator. The
// quality band itself is carried over unchanged so masking is idempotent.
func Mask(layer *raster.Layer, qualityBand string, keep Predicate) (*raster.Layer, error) {
	indicator, err := layer.Band(qualityBand)
	if err != nil {
		return nil, fmt.Errorf("quality band of source %s: %w", layer.Source, err)
	}

	masked := &raster.Layer{
		ID:     layer.ID,
		Source: layer.Source,
		Time:   layer.Time,
		Grid:   layer.Grid,
		Bands:  make(map[string][]float64, len(layer.Bands)),
	}
	for name, values := range layer.Bands {
		out := make([]float64, len(values))
		copy(out, values)
		if name != qualityBand {
			for i, q := range indicator.Values {
				if !keep.Keep(q) {
					out[i] = raster.NoData
				}
			}
		}
		masked.Bands[name] = out
	}
	return masked, nil
}

// MaskBand masks a single value band of layer.
func MaskBand(layer *raster.Layer, valueBand, qualityBand string, keep Predicate) (*raster.Raster, error) {
	if _, err := layer.Band(valueBand); err != nil {
		return nil, fmt.Errorf("value band of source %s: %w", layer.Source, err)
	}
	masked, err := Mask(layer, qualityBand, keep)
	if err != nil {
		return nil, err
	}
	return masked.Band(valueBand)
}

// Coverage is the share of pixels inside area that hold valid samples. It
// returns 0 when no pixel centre falls inside area.
func Coverage(r *raster.Raster, area region.Area) float64 {
	inside, valid := 0, 0
	for y := 0; y < r.Grid.Height; y++ {
		for x := 0; x < r.Grid.Width; x++ {
			if !area.Contains(r.Grid.PixelCenter(x, y)) {
				continue
			}
			inside++
			if !raster.IsNoData(r.At(x, y)) {
				valid++
			}
		}
	}
	if inside == 0 {
		return 0
	}
	return float64(valid) / float64(inside)
}
