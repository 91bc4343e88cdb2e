// Package pipeline runs the coastal status analysis for one country: it
// resolves the coastal band, builds the vegetation and temperature composites
// and classifies their weighted combination.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/catalog"
	"github.com/ges-coastal/coastal-monitor/internal/classify"
	"github.com/ges-coastal/coastal-monitor/internal/composite"
	"github.com/ges-coastal/coastal-monitor/internal/normalize"
	"github.com/ges-coastal/coastal-monitor/internal/quality"
	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type RegionResolver interface {
	Resolve(country string, bufferKm float64) (region.Region, region.CoastalBand, error)
}

// Runner holds the read-only collaborators of a run. It is safe for
// concurrent use.
type Runner struct {
	resolver RegionResolver
	filter   *catalog.Filter
	sources  *quality.Registry
}

func NewRunner(resolver RegionResolver, backend catalog.Backend, sources *quality.Registry) *Runner {
	if sources == nil {
		sources = quality.DefaultRegistry()
	}
	return &Runner{resolver: resolver, filter: catalog.NewFilter(backend), sources: sources}
}

// IndexResult is the outcome of one index branch.
type IndexResult struct {
	Source quality.Source
	// Layers holds the masked and scaled rasters that passed the coverage
	// filter, oldest first.
	Layers     []*raster.Raster
	Skipped    int
	Reduced    *raster.Raster
	Stats      normalize.Stats
	Normalized *normalize.Normalized
}

type Result struct {
	Params      Params
	Region      region.Region
	Band        region.CoastalBand
	Vegetation  *IndexResult
	Temperature *IndexResult
	Composite   *raster.Raster
	// Classes holds classes 1..5 inside the band and no-data elsewhere.
	Classes   *raster.Raster
	Histogram []classify.Bucket
	Duration  time.Duration
}

func (r *Runner) Run(ctx context.Context, p Params) (*Result, error) {
	started := time.Now()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	base, band, err := r.resolver.Resolve(p.Country, p.BufferKm)
	if err != nil {
		return nil, stageError("region", "", err)
	}
	log := utils.Log.WithFields(logrus.Fields{
		"country": p.Country,
		"start":   p.Start.Format(time.DateOnly),
		"end":     p.End.Format(time.DateOnly),
		"buffer":  p.BufferKm,
	})
	log.Info("resolved coastal band")

	result := &Result{Params: p, Region: base, Band: band}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.runIndex(gctx, p, base, band, p.Vegetation)
		result.Vegetation = res
		return err
	})
	g.Go(func() error {
		res, err := r.runIndex(gctx, p, base, band, p.Temperature)
		result.Temperature = res
		return err
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Warn("index branch failed")
		return nil, err
	}

	result.Composite, err = classify.Composite(result.Vegetation.Normalized.Raster, result.Temperature.Normalized.Raster, p.Weights)
	if err != nil {
		return nil, stageError("classify", "", err)
	}
	result.Classes, err = classify.ClassifyComposite(result.Composite, p.Thresholds)
	if err != nil {
		return nil, stageError("classify", "", err)
	}
	result.Histogram = classify.Histogram(result.Classes)
	result.Duration = time.Since(started)

	log.WithField("duration", result.Duration).Info("classified coastal band")
	return result, nil
}

func (r *Runner) runIndex(ctx context.Context, p Params, base region.Region, band region.CoastalBand, idx Index) (*IndexResult, error) {
	source, err := r.sources.Source(idx.Source)
	if err != nil {
		return nil, stageError("sources", idx.Source, err)
	}
	log := utils.Log.WithField("source", source.ID)

	series, err := r.filter.Filter(ctx, source.ID, base, p.Start, p.End, source.ValueBand, source.QualityBand)
	if err != nil && !errors.Is(err, catalog.ErrEmptyResult) {
		return nil, stageError("filter", source.ID, err)
	}
	if errors.Is(err, catalog.ErrEmptyResult) {
		log.Warn("no layers in range")
	}

	res := &IndexResult{Source: source}
	for _, layer := range series {
		prepared, err := source.Prepare(layer)
		if err != nil {
			return nil, stageError("mask", source.ID, err)
		}
		if p.MinCoverage > 0 && quality.Coverage(prepared, band) < p.MinCoverage {
			res.Skipped++
			continue
		}
		res.Layers = append(res.Layers, prepared)
	}
	log.WithFields(logrus.Fields{"layers": len(res.Layers), "skipped": res.Skipped}).Debug("masked layers")

	reduced, err := composite.Reduce(res.Layers, idx.Reducer)
	if err != nil {
		return nil, stageError("reduce", source.ID, err)
	}
	res.Reduced = normalize.Clip(reduced, band)
	res.Stats = normalize.RegionStats(res.Reduced, band)

	if idx.Extrema != nil {
		res.Normalized, err = normalize.NormalizeWith(res.Reduced, idx.Extrema.Min, idx.Extrema.Max, p.Scale)
	} else {
		res.Normalized, err = normalize.Normalize(res.Reduced, band, p.Scale)
	}
	if err != nil {
		return nil, stageError("normalize", source.ID, err)
	}
	return res, nil
}
