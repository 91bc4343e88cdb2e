package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(month time.Month, d int) time.Time {
	return time.Date(2023, month, d, 0, 0, 0, 0, time.UTC)
}

func testRegion(t *testing.T) region.Region {
	t.Helper()
	r, err := region.NewRegion("Squareland", orb.Polygon{{{10, 40}, {11, 40}, {11, 41}, {10, 41}, {10, 40}}})
	require.NoError(t, err)
	return r
}

func testLayer(id, source string, t time.Time, lon, lat float64) *raster.Layer {
	grid := raster.NewGrid(2, 2, lon, lat, 0.5)
	return &raster.Layer{ID: id, Source: source, Time: t, Grid: grid, Bands: map[string][]float64{
		"NDVI":      {1, 2, 3, 4},
		"SummaryQA": {0, 0, 1, 2},
	}}
}

func testBackend() *Memory {
	return NewMemory(
		testLayer("feb", "MOD13A1", day(time.February, 1), 10, 41),
		testLayer("jan", "MOD13A1", day(time.January, 1).Add(13*time.Hour), 10, 41),
		testLayer("far", "MOD13A1", day(time.January, 17), 50, 10),
		testLayer("mar", "MOD13A1", day(time.March, 2), 10, 41),
		testLayer("lst", "MOD11A1", day(time.January, 5), 10, 41),
	)
}

func TestFilterSelectsByTimeAndFootprint(t *testing.T) {
	f := NewFilter(testBackend())

	series, err := f.Filter(context.Background(), "MOD13A1", testRegion(t), day(time.January, 1), day(time.February, 1), "NDVI")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "jan", series[0].ID)
	assert.Equal(t, "feb", series[1].ID)
	for _, l := range series {
		assert.Contains(t, l.Bands, "NDVI")
		assert.NotContains(t, l.Bands, "SummaryQA")
	}
}

func TestHandlesMatchFilter(t *testing.T) {
	f := NewFilter(testBackend())

	handles, err := f.Handles(context.Background(), "MOD13A1", testRegion(t), day(time.January, 1), day(time.March, 31))
	require.NoError(t, err)
	ids := make([]string, len(handles))
	for i, h := range handles {
		ids[i] = h.ID
	}
	assert.Equal(t, []string{"jan", "feb", "mar"}, ids)

	_, err = f.Handles(context.Background(), "MOD13A1", testRegion(t), day(time.March, 1), day(time.January, 1))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestFilterEndDateCoversWholeDay(t *testing.T) {
	backend := NewMemory(testLayer("late", "MOD13A1", day(time.January, 31).Add(23*time.Hour), 10, 41))
	f := NewFilter(backend)

	series, err := f.Filter(context.Background(), "MOD13A1", testRegion(t), day(time.January, 1), day(time.January, 31))
	require.NoError(t, err)
	assert.Len(t, series, 1)
}

func TestFilterEmptyResult(t *testing.T) {
	f := NewFilter(testBackend())

	series, err := f.Filter(context.Background(), "MOD13A1", testRegion(t), day(time.June, 1), day(time.June, 30))
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestFilterInvalidDateRange(t *testing.T) {
	f := NewFilter(testBackend())

	_, err := f.Filter(context.Background(), "MOD13A1", testRegion(t), day(time.February, 1), day(time.January, 1))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestFilterSameDayRange(t *testing.T) {
	f := NewFilter(testBackend())

	series, err := f.Filter(context.Background(), "MOD11A1", testRegion(t), day(time.January, 5), day(time.January, 5))
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "lst", series[0].ID)
}

func TestMemoryReadCopiesBands(t *testing.T) {
	m := testBackend()
	handles, err := m.Query(context.Background(), Query{
		Source: "MOD11A1",
		Bound:  orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{90, 90}},
		Start:  day(time.January, 1),
		End:    day(time.December, 31),
	})
	require.NoError(t, err)
	require.Len(t, handles, 1)

	layer, err := m.Read(context.Background(), handles[0])
	require.NoError(t, err)
	layer.Bands["NDVI"][0] = 99

	again, err := m.Read(context.Background(), handles[0], "NDVI")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Bands["NDVI"][0])
}
