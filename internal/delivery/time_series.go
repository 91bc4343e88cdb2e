package delivery

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/catalog"
	"github.com/ges-coastal/coastal-monitor/internal/timeseries"
)

type TimeSeriesRequest struct {
	Country  string
	Source   string
	BufferKm float64
	Start    time.Time
	End      time.Time
}

// TimeSeries extracts the band mean of every acquisition of a source and
// writes it as CSV. It returns the points and the CSV path.
func (s *Service) TimeSeries(ctx context.Context, req TimeSeriesRequest) ([]timeseries.Point, string, error) {
	if _, _, err := catalog.DayRange(req.Start, req.End); err != nil {
		return nil, "", err
	}
	_, band, err := s.resolver.Resolve(req.Country, req.BufferKm)
	if err != nil {
		return nil, "", err
	}

	points, err := s.extractor.Extract(ctx, req.Source, band, req.Start, req.End)
	if err != nil {
		return nil, "", err
	}

	path := filepath.Join(s.outputDir, "timeseries", fmt.Sprintf("%s_%s_%gkm_%s_%s.csv",
		Slug(req.Country), req.Source, req.BufferKm, req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly)))
	if err := timeseries.WriteCSV(path, points); err != nil {
		return points, "", err
	}
	return points, path, nil
}
