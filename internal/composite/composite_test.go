package composite

import (
	"testing"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var grid = raster.NewGrid(3, 1, 0, 1, 1)

func layer(day int, values ...float64) *raster.Raster {
	return &raster.Raster{
		Grid:   grid,
		Time:   time.Date(2022, 1, day, 0, 0, 0, 0, time.UTC),
		Values: values,
	}
}

func TestReduceEmptySeries(t *testing.T) {
	_, err := Reduce(nil, Mean)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Reduce([]*raster.Raster{}, Median)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestReduceSingleLayerIsIdentity(t *testing.T) {
	in := layer(1, 0.25, raster.NoData, -3)

	for _, reducer := range []Reducer{Mean, Median} {
		out, err := Reduce([]*raster.Raster{in}, reducer)
		require.NoError(t, err)
		assert.Equal(t, 0.25, out.Values[0])
		assert.True(t, raster.IsNoData(out.Values[1]))
		assert.Equal(t, -3.0, out.Values[2])
	}
}

func TestReduceMean(t *testing.T) {
	out, err := Reduce([]*raster.Raster{
		layer(1, 1, raster.NoData, 0),
		layer(2, 3, raster.NoData, 0),
		layer(3, raster.NoData, raster.NoData, 6),
	}, Mean)
	require.NoError(t, err)

	assert.Equal(t, 2.0, out.Values[0], "no-data samples do not count")
	assert.True(t, raster.IsNoData(out.Values[1]), "pixel without samples stays no-data")
	assert.Equal(t, 2.0, out.Values[2])
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), out.Time)
}

func TestReduceMedian(t *testing.T) {
	out, err := Reduce([]*raster.Raster{
		layer(1, 5, 1, raster.NoData),
		layer(2, 1, 2, raster.NoData),
		layer(3, 100, 3, 7),
		layer(4, raster.NoData, 10, raster.NoData),
	}, Median)
	require.NoError(t, err)

	assert.Equal(t, 5.0, out.Values[0])
	assert.Equal(t, 2.5, out.Values[1])
	assert.Equal(t, 7.0, out.Values[2])
}

func TestReduceRecoversValidity(t *testing.T) {
	out, err := Reduce([]*raster.Raster{
		layer(1, 50, 50, 50),
		layer(2, raster.NoData, raster.NoData, raster.NoData),
	}, Mean)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 50, 50}, out.Values)
}

func TestReduceGridMismatch(t *testing.T) {
	other := &raster.Raster{Grid: raster.NewGrid(3, 1, 5, 1, 1), Values: []float64{1, 2, 3}}

	_, err := Reduce([]*raster.Raster{layer(1, 1, 2, 3), other}, Mean)
	assert.ErrorIs(t, err, ErrGridMismatch)
}

func TestParseReducer(t *testing.T) {
	r, err := ParseReducer(" Median ")
	require.NoError(t, err)
	assert.Equal(t, Median, r)

	_, err = Reduce([]*raster.Raster{layer(1, 1, 2, 3)}, Reducer("max"))
	assert.ErrorIs(t, err, ErrUnknownReducer)

	_, err = ParseReducer("mode")
	assert.ErrorIs(t, err, ErrUnknownReducer)
}
