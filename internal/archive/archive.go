// Package archive serves layers from an on-disk GeoTIFF archive laid out as
// <root>/<source>/<YYYY-MM-DD>.tif.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/ges-coastal/coastal-monitor/internal/catalog"
	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

const Ext = ".tif"

type Backend struct {
	root         string
	workers      int
	showProgress bool

	mu    sync.RWMutex
	index map[string][]catalog.Handle
}

type Option func(*Backend)

func WithWorkers(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithProgress draws a progress bar on stdout while a source is indexed.
func WithProgress(show bool) Option {
	return func(b *Backend) { b.showProgress = show }
}

func New(root string, opts ...Option) *Backend {
	b := &Backend{root: root, workers: 8, index: make(map[string][]catalog.Handle)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Root() string {
	return b.root
}

// Path is where the layer of source acquired on date lives.
func (b *Backend) Path(source string, date time.Time) string {
	return filepath.Join(b.root, source, date.Format(time.DateOnly)+Ext)
}

// Invalidate drops the index of source so the next query rescans it.
func (b *Backend) Invalidate(source string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.index, source)
}

// Index scans the folder of source and reads the footprint of every file.
func (b *Backend) Index(ctx context.Context, source string) ([]catalog.Handle, error) {
	dir := filepath.Join(b.root, source)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		b.store(source, nil)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	type file struct {
		path string
		date time.Time
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		date, err := time.Parse(time.DateOnly, strings.TrimSuffix(e.Name(), Ext))
		if err != nil {
			utils.Log.WithField("file", e.Name()).Debug("skipping file without a date name")
			continue
		}
		files = append(files, file{path: filepath.Join(dir, e.Name()), date: date})
	}

	var progressBar *progressbar.ProgressBar
	if b.showProgress {
		progressBar = progressbar.Default(int64(len(files)), "Indexing "+source)
	} else {
		progressBar = progressbar.DefaultSilent(int64(len(files)))
	}

	var (
		mu       sync.Mutex
		handles  []catalog.Handle
		firstErr error
	)
	wp := workerpool.New(b.workers)
	for _, f := range files {
		wp.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			grid, err := raster.ReadGrid(f.path)

			mu.Lock()
			defer mu.Unlock()
			progressBar.Add(1)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			handles = append(handles, catalog.Handle{
				ID:        source + "/" + f.date.Format(time.DateOnly),
				Source:    source,
				Time:      f.date,
				Footprint: grid.Bound(),
				Path:      f.path,
			})
		})
	}
	wp.StopWait()
	progressBar.Finish()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, fmt.Errorf("failed to index %s: %w", source, firstErr)
	}

	utils.SortByTime(handles, func(h catalog.Handle) time.Time { return h.Time })
	b.store(source, handles)
	utils.Log.WithFields(logrus.Fields{"source": source, "layers": len(handles)}).Info("indexed archive")
	return handles, nil
}

func (b *Backend) store(source string, handles []catalog.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index[source] = handles
}

func (b *Backend) handles(ctx context.Context, source string) ([]catalog.Handle, error) {
	b.mu.RLock()
	handles, ok := b.index[source]
	b.mu.RUnlock()
	if ok {
		return handles, nil
	}
	return b.Index(ctx, source)
}

func (b *Backend) Query(ctx context.Context, q catalog.Query) ([]catalog.Handle, error) {
	handles, err := b.handles(ctx, q.Source)
	if err != nil {
		return nil, err
	}
	var out []catalog.Handle
	for _, h := range handles {
		if h.Time.Before(q.Start) || !h.Time.Before(q.End) || !h.Footprint.Intersects(q.Bound) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (b *Backend) Read(ctx context.Context, h catalog.Handle, bands ...string) (*raster.Layer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	grid, all, err := raster.ReadGeoTIFF(h.Path)
	if err != nil {
		return nil, err
	}

	layer := &raster.Layer{ID: h.ID, Source: h.Source, Time: h.Time, Grid: grid, Bands: all}
	if len(bands) == 0 {
		return layer, nil
	}
	layer.Bands = make(map[string][]float64, len(bands))
	for _, name := range bands {
		if values, ok := all[name]; ok {
			layer.Bands[name] = values
		}
	}
	return layer, nil
}

// Write stores the bands of layer in the archive, replacing any file of the
// same date, and invalidates the source index.
func (b *Backend) Write(layer *raster.Layer) (string, error) {
	names := layer.BandNames()
	rasters := make([]*raster.Raster, 0, len(names))
	for _, name := range names {
		r, err := layer.Band(name)
		if err != nil {
			return "", err
		}
		rasters = append(rasters, r)
	}

	path := b.Path(layer.Source, layer.Time)
	if err := raster.WriteGeoTIFF(path, names, rasters...); err != nil {
		return "", err
	}
	b.Invalidate(layer.Source)
	return path, nil
}
