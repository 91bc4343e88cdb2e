// Package catalog selects the raster layers of a source that cover a region
// during a date range, pulling them from a raster storage backend.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyResult      = errors.New("catalog: no layers match the query")
	ErrInvalidDateRange = errors.New("catalog: end date is before start date")
)

// Query is a spatial and temporal range query. Start is inclusive and End
// is exclusive.
type Query struct {
	Source string
	Bound  orb.Bound
	Start  time.Time
	End    time.Time
}

// Handle identifies one layer in a backend without loading its samples.
type Handle struct {
	ID        string
	Source    string
	Time      time.Time
	Footprint orb.Bound
	Path      string
}

// Backend is the pull contract to the raster storage.
type Backend interface {
	Query(ctx context.Context, q Query) ([]Handle, error)
	// Read loads the requested bands of a layer; bands the layer does not
	// carry are left out rather than reported.
	Read(ctx context.Context, h Handle, bands ...string) (*raster.Layer, error)
}

type Filter struct {
	backend Backend
}

func NewFilter(backend Backend) *Filter {
	return &Filter{backend: backend}
}

// DayRange turns calendar dates into the half-open query window covering
// every instant of both days.
func DayRange(start, end time.Time) (time.Time, time.Time, error) {
	from := truncateDay(start)
	to := truncateDay(end)
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return from, to.AddDate(0, 0, 1), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Handles returns the handles of the layers Filter would read, without
// loading them, ordered by time then ID.
func (f *Filter) Handles(ctx context.Context, source string, area region.Region, start, end time.Time) ([]Handle, error) {
	from, to, err := DayRange(start, end)
	if err != nil {
		return nil, err
	}
	handles, err := f.backend.Query(ctx, Query{Source: source, Bound: area.Bound(), Start: from, End: to})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", source, err)
	}

	matched := make([]Handle, 0, len(handles))
	for _, h := range handles {
		if h.Time.Before(from) || !h.Time.Before(to) || !area.IntersectsBound(h.Footprint) {
			continue
		}
		matched = append(matched, h)
	}
	slices.SortFunc(matched, func(a, b Handle) int {
		if c := a.Time.Compare(b.Time); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return matched, nil
}

// Filter returns the layers of source whose footprint intersects area and
// whose acquisition day is within [start, end], oldest first. When nothing
// matches it returns an empty series together with ErrEmptyResult.
func (f *Filter) Filter(ctx context.Context, source string, area region.Region, start, end time.Time, bands ...string) (raster.Series, error) {
	from, _, err := DayRange(start, end)
	if err != nil {
		return nil, err
	}
	handles, err := f.Handles(ctx, source, area, start, end)
	if err != nil {
		return nil, err
	}

	series := raster.Series{}
	for _, h := range handles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layer, err := f.backend.Read(ctx, h, bands...)
		if err != nil {
			return nil, fmt.Errorf("failed to read layer %s: %w", h.ID, err)
		}
		series = append(series, layer)
	}
	utils.SortByTime(series, func(l *raster.Layer) time.Time { return l.Time })

	utils.Log.WithFields(logrus.Fields{
		"source":  source,
		"region":  area.Name,
		"start":   from.Format(time.DateOnly),
		"end":     end.Format(time.DateOnly),
		"handles": len(handles),
		"layers":  len(series),
	}).Debug("filtered collection")

	if len(series) == 0 {
		return series, fmt.Errorf("%w: %s over %s between %s and %s", ErrEmptyResult, source, area.Name, from.Format(time.DateOnly), truncateDay(end).Format(time.DateOnly))
	}
	return series, nil
}
