package ui

import (
	"context"
	"fmt"

	"github.com/ges-coastal/coastal-monitor/internal/delivery"
	"github.com/ges-coastal/coastal-monitor/internal/properties"
	"github.com/ges-coastal/coastal-monitor/internal/region"
	"github.com/ges-coastal/coastal-monitor/internal/timeseries"
)

// ExtractTimeSeries handles the UI for the per-acquisition band mean of a source
func ExtractTimeSeries(ctx context.Context, svc *delivery.Service) {
	country, err := ReadCountry(svc.Countries())
	if err != nil {
		PrintError(err.Error())
		return
	}
	source, err := SelectOption("Sources", svc.Sources(), properties.VegetationSource())
	if err != nil {
		PrintError(err.Error())
		return
	}
	start, end, err := ReadDateRange()
	if err != nil {
		PrintError(err.Error())
		return
	}
	bufferKm, err := ReadFloat("Enter the coastal buffer in km (0 = whole country): ", properties.BufferKm(), 0, region.MaxBufferKm)
	if err != nil {
		PrintError(err.Error())
		return
	}

	points, path, err := svc.TimeSeries(ctx, delivery.TimeSeriesRequest{
		Country:  country,
		Source:   source,
		BufferKm: bufferKm,
		Start:    start,
		End:      end,
	})
	if err != nil {
		PrintError(fmt.Sprintf("Error extracting time series: %s", err.Error()))
		return
	}
	PrintTimeSeries(points)
	PrintSuccess(fmt.Sprintf("Time series with %d points written to: %s", len(points), path))
}

// PrintTimeSeries prints one line per point.
func PrintTimeSeries(points []timeseries.Point) {
	if len(points) == 0 {
		PrintWarning("No acquisition had valid pixels in the coastal band.")
		return
	}
	fmt.Fprintf(output, "\n%s%-12s %12s %9s%s\n", ColorGreen, "date", "value", "coverage", ColorReset)
	for _, p := range points {
		fmt.Fprintf(output, "%s%-12s %12.4f %8.1f%%%s\n", ColorGreen, p.Date, p.Value, p.Coverage*100, ColorReset)
	}
}
