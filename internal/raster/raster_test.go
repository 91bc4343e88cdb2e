package raster

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridPixelCenter(t *testing.T) {
	grid := NewGrid(4, 2, 10, 50, 0.5)

	p := grid.PixelCenter(0, 0)
	assert.InDelta(t, 10.25, p.Lon(), 1e-12)
	assert.InDelta(t, 49.75, p.Lat(), 1e-12)

	p = grid.PixelCenter(3, 1)
	assert.InDelta(t, 11.75, p.Lon(), 1e-12)
	assert.InDelta(t, 49.25, p.Lat(), 1e-12)
}

func TestGridBound(t *testing.T) {
	b := NewGrid(4, 2, 10, 50, 0.5).Bound()
	assert.Equal(t, 10.0, b.Min.Lon())
	assert.Equal(t, 49.0, b.Min.Lat())
	assert.Equal(t, 12.0, b.Max.Lon())
	assert.Equal(t, 50.0, b.Max.Lat())
}

func TestNoDataIsNotZero(t *testing.T) {
	r := New(NewGrid(2, 1, 0, 0, 1), time.Time{})
	assert.True(t, IsNoData(r.At(0, 0)))

	r.Set(1, 0, 0)
	assert.False(t, IsNoData(r.At(1, 0)))
	assert.Equal(t, 1, r.ValidCount())
}

func TestLayerBand(t *testing.T) {
	grid := NewGrid(2, 2, 0, 0, 1)
	layer := &Layer{ID: "l1", Grid: grid, Bands: map[string][]float64{
		"NDVI":  {1, 2, 3, 4},
		"short": {1},
	}}

	r, err := layer.Band("NDVI")
	require.NoError(t, err)
	assert.Equal(t, 4.0, r.At(1, 1))

	_, err = layer.Band("QC_Day")
	assert.ErrorIs(t, err, ErrMissingBand)

	_, err = layer.Band("short")
	assert.ErrorIs(t, err, ErrGridMismatch)
}

func TestGeoTIFFRoundTrip(t *testing.T) {
	grid := NewGrid(3, 2, 35.1, 34.6, 0.01)
	value := Filled(grid, time.Time{}, 0.5)
	value.Set(1, 1, NoData)
	quality := Filled(grid, time.Time{}, 1)

	path := filepath.Join(t.TempDir(), "layer.tif")
	require.NoError(t, WriteGeoTIFF(path, []string{"NDVI", "SummaryQA"}, value, quality))

	readGrid, bands, err := ReadGeoTIFF(path, "NDVI")
	require.NoError(t, err)
	assert.True(t, readGrid.Equal(grid))
	require.Contains(t, bands, "NDVI")
	assert.NotContains(t, bands, "SummaryQA")
	assert.Equal(t, 0.5, bands["NDVI"][0])
	assert.True(t, IsNoData(bands["NDVI"][4]))

	_, _, err = ReadGeoTIFF(path, "QC_Day")
	assert.ErrorIs(t, err, ErrMissingBand)
}
