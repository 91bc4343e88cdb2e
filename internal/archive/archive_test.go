package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/catalog"
	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLayer(t *testing.T, b *Backend, source string, date time.Time, lon, lat float64) {
	t.Helper()
	grid := raster.NewGrid(2, 2, lon, lat, 0.5)
	_, err := b.Write(&raster.Layer{Source: source, Time: date, Grid: grid, Bands: map[string][]float64{
		"NDVI":      {1000, 2000, 3000, raster.NoData},
		"SummaryQA": {0, 1, 2, 3},
	}})
	require.NoError(t, err)
}

func TestArchiveFilter(t *testing.T) {
	root := t.TempDir()
	b := New(root, WithWorkers(2))

	jan := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	writeLayer(t, b, "MOD13A1", feb, 10, 41)
	writeLayer(t, b, "MOD13A1", jan, 10, 41)
	writeLayer(t, b, "MOD13A1", jan.AddDate(0, 0, 16), 50, 10)
	require.NoError(t, os.WriteFile(filepath.Join(root, "MOD13A1", "notes.tif"), []byte("x"), 0o644))

	square, err := region.NewRegion("Squareland", orb.Polygon{{{10, 40}, {11, 40}, {11, 41}, {10, 41}, {10, 40}}})
	require.NoError(t, err)

	series, err := catalog.NewFilter(b).Filter(context.Background(), "MOD13A1", square, jan, feb, "NDVI", "QC_Day")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.True(t, series[0].Time.Equal(jan))
	assert.True(t, series[1].Time.Equal(feb))

	ndvi, err := series[0].Band("NDVI")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, ndvi.At(1, 0))
	assert.True(t, raster.IsNoData(ndvi.At(1, 1)))
	assert.NotContains(t, series[0].Bands, "SummaryQA")
	assert.NotContains(t, series[0].Bands, "QC_Day")
}

func TestArchiveMissingSource(t *testing.T) {
	b := New(t.TempDir())

	handles, err := b.Query(context.Background(), catalog.Query{Source: "MOD11A1", End: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, handles)
}

func TestArchiveWriteInvalidatesIndex(t *testing.T) {
	b := New(t.TempDir())
	jan := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	writeLayer(t, b, "MOD11A1", jan, 10, 41)
	handles, err := b.Index(context.Background(), "MOD11A1")
	require.NoError(t, err)
	assert.Len(t, handles, 1)

	writeLayer(t, b, "MOD11A1", jan.AddDate(0, 0, 1), 10, 41)
	handles, err = b.Query(context.Background(), catalog.Query{
		Source: "MOD11A1",
		Bound:  orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{90, 90}},
		Start:  jan,
		End:    jan.AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	assert.Len(t, handles, 2)
	assert.Equal(t, filepath.Join(b.Root(), "MOD11A1", "2023-01-02.tif"), handles[1].Path)
}
