package delivery

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/archive"
	"github.com/ges-coastal/coastal-monitor/internal/cache"
	"github.com/ges-coastal/coastal-monitor/internal/catalog"
	"github.com/ges-coastal/coastal-monitor/internal/classify"
	"github.com/ges-coastal/coastal-monitor/internal/composite"
	"github.com/ges-coastal/coastal-monitor/internal/export"
	"github.com/ges-coastal/coastal-monitor/internal/history"
	"github.com/ges-coastal/coastal-monitor/internal/notification"
	"github.com/ges-coastal/coastal-monitor/internal/pipeline"
	"github.com/ges-coastal/coastal-monitor/internal/properties"
	"github.com/ges-coastal/coastal-monitor/internal/quality"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"github.com/ges-coastal/coastal-monitor/internal/sentinel"
	"github.com/ges-coastal/coastal-monitor/internal/timeseries"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
)

var (
	ErrNoExporter = errors.New("delivery: object storage is not configured")
	ErrNoFetcher  = errors.New("delivery: sentinel hub credentials are not configured")
	ErrNoHistory  = errors.New("delivery: run history is not available")
)

// Options carries the optional collaborators of a Service. Nil members turn
// the matching feature off.
type Options struct {
	History   *history.DB
	Exporter  *export.Exporter
	Fetcher   *sentinel.Fetcher
	Notifier  *notification.Discord
	Cache     cache.CacheService[[]timeseries.Point]
	OutputDir string
	Progress  bool
}

// Service runs the user facing operations shared by the command line and the
// interactive menu.
type Service struct {
	resolver  *region.Resolver
	sources   *quality.Registry
	runner    *pipeline.Runner
	extractor *timeseries.Extractor
	history   *history.DB
	exporter  *export.Exporter
	fetcher   *sentinel.Fetcher
	notifier  *notification.Discord
	outputDir string
}

func New(resolver *region.Resolver, sources *quality.Registry, backend catalog.Backend, opts Options) *Service {
	if sources == nil {
		sources = quality.DefaultRegistry()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = &notification.Discord{}
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = properties.OutputPath()
	}
	extractorOpts := []timeseries.Option{timeseries.WithProgress(opts.Progress)}
	if opts.Cache != nil {
		extractorOpts = append(extractorOpts, timeseries.WithCache(opts.Cache))
	}
	return &Service{
		resolver:  resolver,
		sources:   sources,
		runner:    pipeline.NewRunner(resolver, backend, sources),
		extractor: timeseries.NewExtractor(backend, sources, extractorOpts...),
		history:   opts.History,
		exporter:  opts.Exporter,
		fetcher:   opts.Fetcher,
		notifier:  notifier,
		outputDir: outputDir,
	}
}

// NewService wires a Service from the configuration. Missing object storage
// or Sentinel Hub credentials only disable the features that need them.
func NewService(ctx context.Context) (*Service, error) {
	resolver, err := region.LoadResolver(properties.CountriesPath(), region.DefaultNameProperty)
	if err != nil {
		return nil, err
	}
	if dup := resolver.Duplicates(); len(dup) > 0 {
		utils.Log.WithField("countries", strings.Join(dup, ", ")).Warn("ambiguous country names in boundary dataset")
	}

	sources := quality.DefaultRegistry()
	if path := properties.SourcesPath(); path != "" {
		if sources, err = quality.LoadRegistry(path); err != nil {
			return nil, err
		}
	}

	backend := archive.New(properties.ArchivePath(), archive.WithProgress(true))

	hist, err := history.Open(properties.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}

	opts := Options{
		History:  hist,
		Notifier: notification.NewDiscord(),
		Cache:    cache.NewFileCache[[]timeseries.Point]("timeseries", 24*time.Hour),
		Progress: true,
	}

	if cfg := properties.MinioConfig(); cfg.Endpoint != "" {
		exporter, err := export.NewMinioExporter(ctx, cfg)
		if err != nil {
			utils.Log.WithError(err).Warn("object storage unavailable, uploads disabled")
		} else {
			opts.Exporter = exporter
		}
	}

	client, err := sentinel.NewClient(sentinel.Config{
		Credentials: sentinelCredentials(),
		TokenURL:    properties.SentinelTokenURL(),
		ProcessURL:  properties.SentinelProcessURL(),
		CatalogURL:  properties.SentinelCatalogURL(),
	})
	switch {
	case errors.Is(err, sentinel.ErrNoCredentials):
		utils.Log.Debug("no sentinel hub credentials, fetch disabled")
	case err != nil:
		hist.Close()
		return nil, err
	default:
		opts.Fetcher = sentinel.NewFetcher(client, backend, 4, true)
	}

	return New(resolver, sources, backend, opts), nil
}

func sentinelCredentials() []sentinel.Credential {
	var creds []sentinel.Credential
	for _, c := range properties.SentinelCredentials() {
		creds = append(creds, sentinel.Credential{ClientID: c.ClientID, ClientSecret: c.ClientSecret})
	}
	return creds
}

func (s *Service) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

func (s *Service) Countries() []string {
	return s.resolver.Countries()
}

func (s *Service) Sources() []string {
	return s.sources.IDs()
}

func (s *Service) Products() []string {
	return slices.Sorted(maps.Keys(sentinel.Products))
}

func (s *Service) HasExporter() bool {
	return s.exporter != nil
}

// ConfiguredParams returns the analysis defaults from the configuration.
func ConfiguredParams() (pipeline.Params, error) {
	p := pipeline.DefaultParams()
	p.BufferKm = properties.BufferKm()
	p.Vegetation.Source = properties.VegetationSource()
	p.Temperature.Source = properties.TemperatureSource()

	var err error
	if p.Vegetation.Reducer, err = composite.ParseReducer(properties.VegetationReducer()); err != nil {
		return p, err
	}
	if p.Temperature.Reducer, err = composite.ParseReducer(properties.TemperatureReducer()); err != nil {
		return p, err
	}
	a, b := properties.Weights()
	p.Weights = classify.Weights{A: a, B: b}
	if p.Thresholds, err = properties.Thresholds(); err != nil {
		return p, fmt.Errorf("%w: %v", pipeline.ErrInvalidParams, err)
	}
	p.MinCoverage = properties.MinCoverage()
	p.Scale.Min, p.Scale.Max = properties.Scale()
	return p, nil
}
