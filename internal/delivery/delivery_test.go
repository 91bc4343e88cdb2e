package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/catalog"
	"github.com/ges-coastal/coastal-monitor/internal/composite"
	"github.com/ges-coastal/coastal-monitor/internal/history"
	"github.com/ges-coastal/coastal-monitor/internal/normalize"
	"github.com/ges-coastal/coastal-monitor/internal/notification"
	"github.com/ges-coastal/coastal-monitor/internal/pipeline"
	"github.com/ges-coastal/coastal-monitor/internal/quality"
	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"github.com/ges-coastal/coastal-monitor/internal/timeseries"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const countries = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"country_na": "Squareland"},
     "geometry": {"type": "Polygon", "coordinates": [[[10,40],[11,40],[11,41],[10,41],[10,40]]]}}
  ]
}`

var (
	jan = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	feb = time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
)

func layer(id, source string, t time.Time, value, indicator float64) *raster.Layer {
	return &raster.Layer{
		ID:     id,
		Source: source,
		Time:   t,
		Grid:   raster.NewGrid(2, 2, 10, 41, 0.5),
		Bands: map[string][]float64{
			"v": {value, value, value, value},
			"q": {indicator, indicator, indicator, indicator},
		},
	}
}

type fixture struct {
	service   *Service
	history   *history.DB
	notified  *atomic.Int32
	outputDir string
}

func newFixture(t *testing.T, layers ...*raster.Layer) fixture {
	t.Helper()
	resolver, err := region.NewResolver([]byte(countries), "")
	require.NoError(t, err)
	sources, err := quality.NewRegistry(
		quality.Source{ID: "VEG", ValueBand: "v", QualityBand: "q", Predicate: quality.PredicateSpec{Kind: "ordinal", Max: 0}, Scale: 1},
		quality.Source{ID: "TMP", ValueBand: "v", QualityBand: "q", Predicate: quality.PredicateSpec{Kind: "ordinal", Max: 0}, Scale: 1},
	)
	require.NoError(t, err)

	db, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	notified := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		notified.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	outputDir := t.TempDir()
	service := New(resolver, sources, catalog.NewMemory(layers...), Options{
		History:   db,
		Notifier:  &notification.Discord{ErrorURL: server.URL, Client: server.Client()},
		OutputDir: outputDir,
	})
	return fixture{service: service, history: db, notified: notified, outputDir: outputDir}
}

func testParams() pipeline.Params {
	p := pipeline.DefaultParams()
	p.Country = "Squareland"
	p.Start = jan
	p.End = feb.AddDate(0, 1, -1)
	p.BufferKm = 0
	fixed := &pipeline.Extrema{Min: 0, Max: 100}
	p.Vegetation = pipeline.Index{Source: "VEG", Reducer: composite.Mean, Extrema: fixed}
	p.Temperature = pipeline.Index{Source: "TMP", Reducer: composite.Mean, Extrema: fixed}
	return p
}

func TestAnalyzeWritesOutputsAndRecordsRun(t *testing.T) {
	f := newFixture(t,
		layer("veg-jan", "VEG", jan, 50, 0),
		layer("tmp-jan", "TMP", jan, 30, 0),
	)

	report, err := f.service.Analyze(context.Background(), AnalyzeRequest{Params: testParams()})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.Equal(t, filepath.Join(f.outputDir, "Squareland_2023-01-01_2023-02-28_0km_VEG_TMP"), report.OutputDir)
	assert.Contains(t, report.Files, filepath.Join(report.OutputDir, "summary.json"))
	assert.FileExists(t, filepath.Join(report.OutputDir, "classes.tif"))
	assert.Equal(t, 2.0, report.Result.Classes.At(0, 0))

	run, err := f.history.Get(context.Background(), report.RunID)
	require.NoError(t, err)
	assert.Equal(t, history.StatusSucceeded, run.Status)
	assert.Equal(t, report.Files, run.Outputs)
	assert.Zero(t, f.notified.Load())
}

func TestAnalyzeUnknownCountryIsNotNotified(t *testing.T) {
	f := newFixture(t)
	p := testParams()
	p.Country = "Atlantis"

	_, err := f.service.Analyze(context.Background(), AnalyzeRequest{Params: p})
	require.Error(t, err)
	assert.Equal(t, pipeline.InputError, pipeline.KindOf(err))
	assert.Zero(t, f.notified.Load())

	runs, err := f.service.History(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusFailed, runs[0].Status)
	assert.Equal(t, "input", runs[0].ErrorKind)
}

func TestAnalyzeMissingDataIsNotified(t *testing.T) {
	f := newFixture(t, layer("tmp-jan", "TMP", jan, 30, 0))

	_, err := f.service.Analyze(context.Background(), AnalyzeRequest{Params: testParams()})
	require.Error(t, err)
	assert.Equal(t, pipeline.DataAvailabilityError, pipeline.KindOf(err))
	assert.Equal(t, int32(1), f.notified.Load())
}

func TestAnalyzeUploadNeedsExporter(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Analyze(context.Background(), AnalyzeRequest{Params: testParams(), Upload: true})
	assert.ErrorIs(t, err, ErrNoExporter)

	runs, err := f.service.History(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestTimeSeriesWritesCSV(t *testing.T) {
	f := newFixture(t,
		layer("veg-feb", "VEG", feb, 80, 0),
		layer("veg-jan", "VEG", jan, 50, 0),
		layer("veg-jan-cloudy", "VEG", jan.AddDate(0, 0, 16), 70, 2),
	)

	points, path, err := f.service.TimeSeries(context.Background(), TimeSeriesRequest{
		Country: "Squareland",
		Source:  "VEG",
		Start:   jan,
		End:     feb,
	})
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2023-01-01", points[0].Date)
	assert.Equal(t, 50.0, points[0].Value)
	assert.Equal(t, 80.0, points[1].Value)

	read, err := timeseries.ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, points, read)
}

func TestTimeSeriesRejectsReversedDates(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.service.TimeSeries(context.Background(), TimeSeriesRequest{
		Country: "Squareland",
		Source:  "VEG",
		Start:   feb,
		End:     jan,
	})
	assert.ErrorIs(t, err, catalog.ErrInvalidDateRange)
}

func TestFetchWithoutCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Fetch(context.Background(), "S2L2A", "Squareland", jan, feb)
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestCountriesAndSources(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{"Squareland"}, f.service.Countries())
	assert.Contains(t, f.service.Sources(), "VEG")
	assert.Contains(t, f.service.Products(), "S2L2A")
	assert.False(t, f.service.HasExporter())
}

func TestConfiguredParams(t *testing.T) {
	p, err := ConfiguredParams()
	require.NoError(t, err)

	assert.Equal(t, "MOD13A1", p.Vegetation.Source)
	assert.Equal(t, "MOD11A1", p.Temperature.Source)
	assert.Equal(t, composite.Median, p.Vegetation.Reducer)
	assert.Equal(t, []float64{20, 40, 60, 80}, p.Thresholds)
	assert.Equal(t, 10.0, p.BufferKm)
	assert.Equal(t, normalize.DefaultScale, p.Scale)
}

func TestResultDirSeparatesRuns(t *testing.T) {
	f := newFixture(t)
	base := testParams()

	wider := base
	wider.BufferKm = 2.5
	other := base
	other.Vegetation.Source = "S2L2A"

	dirs := map[string]bool{}
	for _, p := range []pipeline.Params{base, wider, other} {
		dirs[f.service.resultDir(p)] = true
	}
	assert.Len(t, dirs, 3)
	assert.Equal(t, filepath.Join(f.outputDir, "Squareland_2023-01-01_2023-02-28_2.5km_VEG_TMP"), f.service.resultDir(wider))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "Cote_d_Ivoire", Slug("Cote d'Ivoire"))
	assert.Equal(t, "Timor-Leste", Slug(" Timor-Leste "))
}
