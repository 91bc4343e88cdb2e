package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ges-coastal/coastal-monitor/internal/classify"
	"github.com/ges-coastal/coastal-monitor/internal/normalize"
	"github.com/ges-coastal/coastal-monitor/internal/pipeline"
	"github.com/ges-coastal/coastal-monitor/internal/raster"
	"github.com/ges-coastal/coastal-monitor/internal/utils"
	"github.com/gocarina/gocsv"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Options struct {
	// Video writes an AVI of the masked layers of each index.
	Video bool
	FPS   int32
}

// Summary is the dashboard view of a run.
type Summary struct {
	Params        pipeline.Params   `json:"params"`
	RegionAreaKm2 float64           `json:"region_area_km2"`
	Vegetation    IndexSummary      `json:"vegetation"`
	Temperature   IndexSummary      `json:"temperature"`
	Histogram     []classify.Bucket `json:"histogram"`
	DurationMs    int64             `json:"duration_ms"`
}

type IndexSummary struct {
	Source  string          `json:"source"`
	Unit    string          `json:"unit"`
	Layers  int             `json:"layers"`
	Skipped int             `json:"skipped"`
	Stats   normalize.Stats `json:"stats"`
	Min     float64         `json:"normalization_min"`
	Max     float64         `json:"normalization_max"`
}

func summarizeIndex(idx *pipeline.IndexResult) IndexSummary {
	stats := idx.Stats
	if stats.Count == 0 {
		stats = normalize.Stats{}
	}
	return IndexSummary{
		Source:  idx.Source.ID,
		Unit:    idx.Source.Unit,
		Layers:  len(idx.Layers),
		Skipped: idx.Skipped,
		Stats:   stats,
		Min:     idx.Normalized.Min,
		Max:     idx.Normalized.Max,
	}
}

func NewSummary(result *pipeline.Result) Summary {
	return Summary{
		Params:        result.Params,
		RegionAreaKm2: result.Region.Area() / 1e6,
		Vegetation:    summarizeIndex(result.Vegetation),
		Temperature:   summarizeIndex(result.Temperature),
		Histogram:     result.Histogram,
		DurationMs:    result.Duration.Milliseconds(),
	}
}

// PaletteFor picks the display palette of a source unit.
func PaletteFor(unit string) Palette {
	switch unit {
	case "NDVI":
		return NDVIPalette
	case "°C":
		return LSTPalette
	default:
		return IndexPalette
	}
}

// BandOutline materialises the coastal band polygon, falling back to the
// country outline when GEOS is unavailable.
func BandOutline(result *pipeline.Result) (orb.MultiPolygon, bool) {
	mp, err := result.Band.Polygon()
	if err != nil {
		utils.Log.WithError(err).Warn("failed to build band polygon, using country outline")
		return result.Region.Polygons(), false
	}
	return mp, true
}

// WriteResult writes every output of a run into dir and returns the paths.
func WriteResult(result *pipeline.Result, dir string, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create result folder: %w", err)
	}
	outline, materialized := BandOutline(result)

	var files []string
	add := func(name string, write func(path string) error) error {
		path := filepath.Join(dir, name)
		if err := write(path); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		files = append(files, path)
		return nil
	}

	shares := make([]float64, len(result.Histogram))
	for i, b := range result.Histogram {
		shares[i] = b.Percent
	}
	steps := []struct {
		name  string
		write func(path string) error
	}{
		{"classes.tif", func(p string) error {
			return raster.WriteGeoTIFF(p, []string{"class", "composite"}, result.Classes, result.Composite)
		}},
		{"vegetation.tif", indexGeoTIFF(result.Vegetation)},
		{"temperature.tif", indexGeoTIFF(result.Temperature)},
		{"classes.png", func(p string) error { return CreateClassImage(result.Classes, shares, outline, p) }},
		{"vegetation.png", indexImage(result.Vegetation, outline)},
		{"temperature.png", indexImage(result.Temperature, outline)},
		{"vegetation_normalized.png", func(p string) error {
			return CreateIndexImage(result.Vegetation.Normalized.Raster, IndexPalette, outline, p)
		}},
		{"temperature_normalized.png", func(p string) error {
			return CreateIndexImage(result.Temperature.Normalized.Raster, IndexPalette, outline, p)
		}},
		{"band.geojson", func(p string) error { return CreateBandGeoJSON(result, outline, materialized, p) }},
		{"histogram.csv", func(p string) error { return WriteHistogramCSV(p, result.Histogram) }},
		{"summary.json", func(p string) error { return WriteJSON(p, NewSummary(result)) }},
	}
	for _, step := range steps {
		if err := add(step.name, step.write); err != nil {
			return files, err
		}
	}

	if opts.Video {
		fps := opts.FPS
		if fps <= 0 {
			fps = 2
		}
		for name, idx := range map[string]*pipeline.IndexResult{"vegetation": result.Vegetation, "temperature": result.Temperature} {
			if len(idx.Layers) == 0 {
				continue
			}
			path, err := CreateVideo(idx.Layers, PaletteFor(idx.Source.Unit), outline, filepath.Join(dir, name+".avi"), fps)
			if err != nil {
				return files, fmt.Errorf("failed to write %s video: %w", name, err)
			}
			files = append(files, path)
		}
	}

	utils.Log.WithField("files", len(files)).Infof("result files created in %s", dir)
	return files, nil
}

func indexGeoTIFF(idx *pipeline.IndexResult) func(string) error {
	return func(p string) error {
		return raster.WriteGeoTIFF(p, []string{idx.Source.ValueBand, "normalized"}, idx.Reduced, idx.Normalized.Raster)
	}
}

func indexImage(idx *pipeline.IndexResult, outline orb.MultiPolygon) func(string) error {
	return func(p string) error {
		return CreateIndexImage(idx.Reduced, PaletteFor(idx.Source.Unit), outline, p)
	}
}

// CreateBandGeoJSON writes the band polygon with the run summary as
// feature properties.
func CreateBandGeoJSON(result *pipeline.Result, outline orb.MultiPolygon, materialized bool, outputPath string) error {
	feature := geojson.NewFeature(outline)
	feature.Properties["country"] = result.Region.Name
	feature.Properties["buffer_km"] = result.Params.BufferKm
	feature.Properties["band_materialized"] = materialized
	feature.Properties["start"] = result.Params.Start.Format("2006-01-02")
	feature.Properties["end"] = result.Params.End.Format("2006-01-02")
	for _, b := range result.Histogram {
		feature.Properties[fmt.Sprintf("class_%d_percent", b.Class)] = b.Percent
	}

	fc := geojson.NewFeatureCollection()
	fc.Append(feature)
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding GeoJSON: %w", err)
	}
	return os.WriteFile(outputPath, data, 0644)
}

func WriteHistogramCSV(outputPath string, buckets []classify.Bucket) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()
	return gocsv.MarshalFile(&buckets, file)
}

func WriteJSON(outputPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0644)
}
