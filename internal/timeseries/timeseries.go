// Package timeseries extracts the per-acquisition mean of an index over the
// coastal band.
package timeseries

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/ges-coastal/coastal-monitor/internal/cache"
	"github.com/ges-coastal/coastal-monitor/internal/catalog"
	"github.com/ges-coastal/coastal-monitor/internal/normalize"
	"github.com/ges-coastal/coastal-monitor/internal/quality"
	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/gocarina/gocsv"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Point is the band mean of one acquisition. Coverage is the valid share of
// the band.
type Point struct {
	Date     string  `csv:"date" json:"date"`
	Value    float64 `csv:"value" json:"value"`
	Coverage float64 `csv:"coverage" json:"coverage"`
	Pixels   int     `csv:"pixels" json:"pixels"`
}

func (p Point) Time() time.Time {
	t, _ := time.Parse(time.DateOnly, p.Date)
	return t
}

type Extractor struct {
	filter       *catalog.Filter
	sources      *quality.Registry
	cache        cache.CacheService[[]Point]
	workers      int
	showProgress bool
}

type Option func(*Extractor)

func WithCache(c cache.CacheService[[]Point]) Option {
	return func(e *Extractor) { e.cache = c }
}

func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

func WithProgress(show bool) Option {
	return func(e *Extractor) { e.showProgress = show }
}

func NewExtractor(backend catalog.Backend, sources *quality.Registry, opts ...Option) *Extractor {
	e := &Extractor{filter: catalog.NewFilter(backend), sources: sources, workers: 8}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns one point per acquisition of source between start and end
// that has at least one valid sample in band, oldest first. Values are
// masked and scaled with the source rules.
func (e *Extractor) Extract(ctx context.Context, sourceID string, band region.CoastalBand, start, end time.Time) ([]Point, error) {
	source, err := e.sources.Source(sourceID)
	if err != nil {
		return nil, err
	}

	var key string
	if e.cache != nil {
		handles, err := e.filter.Handles(ctx, source.ID, band.Base, start, end)
		if err != nil {
			return nil, err
		}
		key = e.cache.GenerateKey(sourceKey(source), band.Base.Name, band.Width, start.Format(time.DateOnly), end.Format(time.DateOnly), handlesKey(handles))
		if points, ok := e.cache.Get(key); ok {
			utils.Log.WithField("source", source.ID).Debug("time series cache hit")
			return points, nil
		}
	}

	series, err := e.filter.Filter(ctx, source.ID, band.Base, start, end, source.ValueBand, source.QualityBand)
	if errors.Is(err, catalog.ErrEmptyResult) {
		return []Point{}, nil
	}
	if err != nil {
		return nil, err
	}

	points, err := e.extract(ctx, source, band, series)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(key, points); err != nil {
			utils.Log.WithError(err).Warn("failed to cache time series")
		}
	}
	return points, nil
}

// sourceKey covers every rule that changes the extracted values, so editing
// a source definition misses the cache.
func sourceKey(s quality.Source) string {
	return fmt.Sprintf("%s|%s|%s|%s|%g|%g", s.ID, s.ValueBand, s.QualityBand, s.Keep(), s.Scale, s.Offset)
}

// handlesKey changes whenever a layer is added to or removed from the range.
func handlesKey(handles []catalog.Handle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", len(handles))
	for _, h := range handles {
		fmt.Fprintf(&b, "|%s@%s", h.ID, h.Time.Format(time.RFC3339))
	}
	return b.String()
}

func (e *Extractor) extract(ctx context.Context, source quality.Source, band region.CoastalBand, series raster.Series) ([]Point, error) {
	var progressBar *progressbar.ProgressBar
	if e.showProgress {
		progressBar = progressbar.Default(int64(len(series)), "Extracting "+source.ID)
	} else {
		progressBar = progressbar.DefaultSilent(int64(len(series)))
	}

	var (
		mu       sync.Mutex
		points   []Point
		firstErr error
	)
	wp := workerpool.New(e.workers)
	for _, layer := range series {
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			prepared, err := source.Prepare(layer)
			var stats normalize.Stats
			var coverage float64
			if err == nil {
				stats = normalize.RegionStats(prepared, band)
				coverage = quality.Coverage(prepared, band)
			}

			mu.Lock()
			defer mu.Unlock()
			progressBar.Add(1)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("layer %s: %w", layer.ID, err)
				}
				return
			}
			if stats.Count == 0 {
				return
			}
			points = append(points, Point{
				Date:     layer.Time.Format(time.DateOnly),
				Value:    stats.Mean,
				Coverage: coverage,
				Pixels:   stats.Count,
			})
		})
	}
	wp.StopWait()
	progressBar.Finish()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}

	utils.SortByTime(points, Point.Time)
	utils.Log.WithFields(logrus.Fields{"source": source.ID, "layers": len(series), "points": len(points)}).Info("extracted time series")
	if points == nil {
		points = []Point{}
	}
	return points, nil
}

func WriteCSV(path string, points []Point) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&points, file); err != nil {
		return fmt.Errorf("failed to write time series: %w", err)
	}
	return nil
}

func ReadCSV(path string) ([]Point, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var points []Point
	if err := gocsv.UnmarshalFile(file, &points); err != nil {
		return nil, fmt.Errorf("failed to read time series: %w", err)
	}
	return points, nil
}
