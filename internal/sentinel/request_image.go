package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/tidwall/gjson"
)

const maxPixels = 2500

// Product is a Sentinel Hub collection and the evalscript that renders the
// value and quality bands of one archive source.
type Product struct {
	Source     string
	Collection string
	Bands      []string
	Evalscript string
	// Resolution is the pixel size in metres.
	Resolution float64
}

var Products = map[string]Product{
	"S2L2A": {
		Source:     "S2L2A",
		Collection: "sentinel-2-l2a",
		Bands:      []string{"NDVI", "SCL"},
		Resolution: 20,
		Evalscript: `
    //VERSION=3
    function setup() {
      return {
        input: ["B04", "B08", "SCL", "dataMask"],
        output: { id: "default", bands: 2, sampleType: SampleType.FLOAT32 },
      }
    }

    function evaluatePixel(sample) {
      if (sample.dataMask == 0) {
        return [NaN, 0];
      }
      return [(sample.B08 - sample.B04) / (sample.B08 + sample.B04), sample.SCL];
    }
  `,
	},
}

func calculatePixels(degrees, resolution float64) int {
	pixels := degrees * (111_000.0 / resolution)
	return int(math.Max(1, math.Min(maxPixels, pixels)))
}

// SearchDates lists the distinct acquisition days of product over bound
// between start and end, oldest first.
func (c *Client) SearchDates(ctx context.Context, product Product, bound orb.Bound, start, end time.Time) ([]time.Time, error) {
	seen := make(map[string]bool)
	next := 0
	for {
		payload := map[string]any{
			"bbox":        []float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()},
			"datetime":    start.Format(time.RFC3339) + "/" + end.Format(time.RFC3339),
			"collections": []string{product.Collection},
			"limit":       100,
			"fields":      map[string]any{"include": []string{"properties.datetime"}},
		}
		if next > 0 {
			payload["next"] = next
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog search: %w", err)
		}

		content, err := c.Post(ctx, c.cfg.CatalogURL, body, "application/geo+json")
		if err != nil {
			return nil, fmt.Errorf("catalog search failed: %w", err)
		}
		for _, dt := range gjson.GetBytes(content, "features.#.properties.datetime").Array() {
			t, err := time.Parse(time.RFC3339, dt.String())
			if err != nil {
				continue
			}
			seen[t.UTC().Format(time.DateOnly)] = true
		}

		n := gjson.GetBytes(content, "context.next")
		if !n.Exists() || int(n.Int()) <= next {
			break
		}
		next = int(n.Int())
	}

	days := make([]string, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Strings(days)
	dates := make([]time.Time, len(days))
	for i, d := range days {
		dates[i], _ = time.Parse(time.DateOnly, d)
	}
	return dates, nil
}

// RequestImage renders product over bound for the whole UTC day of date and
// returns the GeoTIFF bytes.
func (c *Client) RequestImage(ctx context.Context, product Product, bound orb.Bound, date time.Time) ([]byte, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Second)

	requestPayload := map[string]any{
		"input": map[string]any{
			"bounds": map[string]any{
				"bbox":       []float64{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()},
				"properties": map[string]string{"crs": "http://www.opengis.net/def/crs/EPSG/0/4326"},
			},
			"data": []map[string]any{
				{
					"dataFilter": map[string]any{
						"timeRange": map[string]string{
							"from": from.Format(time.RFC3339),
							"to":   to.Format(time.RFC3339),
						},
					},
					"type": product.Collection,
				},
			},
		},
		"output": map[string]any{
			"width":  calculatePixels(bound.Max.Lon()-bound.Min.Lon(), product.Resolution),
			"height": calculatePixels(bound.Max.Lat()-bound.Min.Lat(), product.Resolution),
			"responses": []map[string]any{
				{
					"identifier": "default",
					"format":     map[string]string{"type": "image/tiff"},
				},
			},
		},
		"evalscript": product.Evalscript,
	}

	body, err := json.Marshal(requestPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	content, err := c.Post(ctx, c.cfg.ProcessURL, body, "image/tiff")
	if err != nil {
		return nil, fmt.Errorf("failed to request %s image for %s: %w", product.Source, from.Format(time.DateOnly), err)
	}
	return content, nil
}
