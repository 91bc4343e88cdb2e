package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/catalog"
	"github.com/ges-coastal/coastal-monitor/internal/history"
	"github.com/ges-coastal/coastal-monitor/internal/quality"
	"github.com/ges-coastal/coastal-monitor/internal/sentinel"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Fetch downloads the acquisitions of a Sentinel Hub product over a country
// into the local archive.
func (s *Service) Fetch(ctx context.Context, productID, country string, start, end time.Time) (sentinel.Report, error) {
	if s.fetcher == nil {
		return sentinel.Report{}, ErrNoFetcher
	}
	product, ok := sentinel.Products[productID]
	if !ok {
		return sentinel.Report{}, fmt.Errorf("%w: %q", quality.ErrUnknownSource, productID)
	}
	if _, _, err := catalog.DayRange(start, end); err != nil {
		return sentinel.Report{}, err
	}
	area, err := s.resolver.Region(country)
	if err != nil {
		return sentinel.Report{}, err
	}

	report, err := s.fetcher.Fetch(ctx, product, area, start, end)
	if err != nil {
		return report, err
	}
	utils.Log.WithFields(logrus.Fields{
		"product":    product.Source,
		"country":    area.Name,
		"downloaded": len(report.Downloaded),
		"existing":   len(report.Existing),
		"empty":      len(report.Empty),
	}).Info("fetch finished")
	return report, nil
}

// History returns the most recent runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Run, error) {
	if s.history == nil {
		return nil, ErrNoHistory
	}
	return s.history.Recent(ctx, limit)
}

func (s *Service) Run(ctx context.Context, id uuid.UUID) (history.Run, error) {
	if s.history == nil {
		return history.Run{}, ErrNoHistory
	}
	return s.history.Get(ctx, id)
}
