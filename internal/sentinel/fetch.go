package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/ges-coastal/coastal-monitor/internal/archive"
	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

const emptyDatesFile = "empty_dates.json"

// Report lists what happened to every acquisition day of a fetch.
type Report struct {
	Downloaded []time.Time
	Existing   []time.Time
	Empty      []time.Time
}

// Fetcher fills the archive with the acquisitions of a product. Files that
// already exist are kept and days that came back without valid samples are
// remembered so they are not requested again.
type Fetcher struct {
	client       *Client
	archive      *archive.Backend
	workers      int
	showProgress bool
	locks        utils.KeyedMutex
}

func NewFetcher(client *Client, backend *archive.Backend, workers int, showProgress bool) *Fetcher {
	if workers <= 0 {
		workers = 4
	}
	return &Fetcher{client: client, archive: backend, workers: workers, showProgress: showProgress}
}

func (f *Fetcher) Fetch(ctx context.Context, product Product, area region.Region, start, end time.Time) (Report, error) {
	dates, err := f.client.SearchDates(ctx, product, area.Bound(), start, end.Add(24*time.Hour-time.Second))
	if err != nil {
		return Report{}, err
	}

	emptyPath := filepath.Join(f.archive.Root(), product.Source, emptyDatesFile)
	empty, err := loadEmptyDates(emptyPath)
	if err != nil {
		return Report{}, err
	}

	var progressBar *progressbar.ProgressBar
	if f.showProgress {
		progressBar = progressbar.Default(int64(len(dates)), "Downloading "+product.Source)
	} else {
		progressBar = progressbar.DefaultSilent(int64(len(dates)))
	}

	var (
		mu       sync.Mutex
		report   Report
		firstErr error
	)
	wp := workerpool.New(f.workers)
	for _, date := range dates {
		day := date.Format(time.DateOnly)
		path := f.archive.Path(product.Source, date)

		mu.Lock()
		known := slices.Contains(empty, day)
		if known {
			report.Empty = append(report.Empty, date)
			progressBar.Add(1)
		}
		mu.Unlock()
		if known {
			continue
		}

		wp.Submit(func() {
			f.locks.ExecuteWithMutex(path, func() {
				if ctx.Err() != nil {
					return
				}
				outcome, err := f.fetchDay(ctx, product, area, date, path)

				mu.Lock()
				defer mu.Unlock()
				progressBar.Add(1)
				switch {
				case err != nil:
					if firstErr == nil {
						firstErr = err
					}
				case outcome == outcomeExisting:
					report.Existing = append(report.Existing, date)
				case outcome == outcomeEmpty:
					report.Empty = append(report.Empty, date)
					empty = append(empty, day)
					if err := saveEmptyDates(emptyPath, empty); err != nil {
						utils.Log.WithError(err).Warn("failed to save empty dates")
					}
				default:
					report.Downloaded = append(report.Downloaded, date)
				}
			})
		})
	}
	wp.StopWait()
	progressBar.Finish()

	for _, dates := range [][]time.Time{report.Downloaded, report.Existing, report.Empty} {
		utils.SortDates(dates, true)
	}
	utils.Log.WithFields(logrus.Fields{
		"source":     product.Source,
		"region":     area.Name,
		"downloaded": len(report.Downloaded),
		"existing":   len(report.Existing),
		"empty":      len(report.Empty),
	}).Info("fetched acquisitions")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, firstErr
}

type outcome int

const (
	outcomeDownloaded outcome = iota
	outcomeExisting
	outcomeEmpty
)

func (f *Fetcher) fetchDay(ctx context.Context, product Product, area region.Region, date time.Time, path string) (outcome, error) {
	if _, err := os.Stat(path); err == nil {
		return outcomeExisting, nil
	}

	content, err := f.client.RequestImage(ctx, product, area.Bound(), date)
	if err != nil {
		return 0, err
	}

	tmp := path + ".download"
	if err := os.MkdirAll(filepath.Dir(tmp), os.ModePerm); err != nil {
		return 0, fmt.Errorf("failed to create archive folder: %w", err)
	}
	if err := os.WriteFile(tmp, content, 0644); err != nil {
		return 0, fmt.Errorf("failed to save image to %s: %w", tmp, err)
	}
	defer os.Remove(tmp)

	grid, data, err := raster.ReadBands(tmp)
	if err != nil {
		return 0, err
	}
	if len(data) < len(product.Bands) {
		return 0, fmt.Errorf("%s image for %s has %d bands, expected %d", product.Source, date.Format(time.DateOnly), len(data), len(product.Bands))
	}

	layer := &raster.Layer{Source: product.Source, Time: date, Grid: grid, Bands: make(map[string][]float64)}
	for i, name := range product.Bands {
		layer.Bands[name] = data[i]
	}
	value, err := layer.Band(product.Bands[0])
	if err != nil {
		return 0, err
	}
	if value.ValidCount() == 0 {
		return outcomeEmpty, nil
	}

	if _, err := f.archive.Write(layer); err != nil {
		return 0, fmt.Errorf("failed to archive %s: %w", path, err)
	}
	return outcomeDownloaded, nil
}

func loadEmptyDates(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var dates []string
	if err := json.Unmarshal(data, &dates); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return dates, nil
}

func saveEmptyDates(path string, dates []string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	data, err := json.Marshal(dates)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
