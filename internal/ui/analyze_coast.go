package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/delivery"
	"github.com/ges-coastal/coastal-monitor/internal/pipeline"
	"github.com/ges-coastal/coastal-monitor/internal/region"
)

// AnalyzeCoast handles the UI for classifying the coastal band of a country
func AnalyzeCoast(ctx context.Context, svc *delivery.Service) {
	PrintWarning("- The country boundaries are read from the configured countries GeoJSON.\n- Acquisitions must be present in data/archive/<source>/YYYY-MM-DD.tif.")

	params, err := delivery.ConfiguredParams()
	if err != nil {
		PrintError(err.Error())
		return
	}

	if params.Country, err = ReadCountry(svc.Countries()); err != nil {
		PrintError(err.Error())
		return
	}
	if params.Start, params.End, err = ReadDateRange(); err != nil {
		PrintError(err.Error())
		return
	}
	if params.BufferKm, err = ReadFloat("Enter the coastal buffer in km (0 = whole country): ", params.BufferKm, 0, region.MaxBufferKm); err != nil {
		PrintError(err.Error())
		return
	}
	if params.Vegetation.Source, err = SelectOption("Vegetation sources", svc.Sources(), params.Vegetation.Source); err != nil {
		PrintError(err.Error())
		return
	}
	if params.Temperature.Source, err = SelectOption("Temperature sources", svc.Sources(), params.Temperature.Source); err != nil {
		PrintError(err.Error())
		return
	}

	req := delivery.AnalyzeRequest{
		Params: params,
		Video:  ReadYesNo("Create a video of the acquisitions? "),
	}
	if svc.HasExporter() {
		req.Upload = ReadYesNo("Upload the results to object storage? ")
	}

	report, err := svc.Analyze(ctx, req)
	if err != nil {
		PrintError(fmt.Sprintf("Error analyzing %s (%s): %s", params.Country, pipeline.KindOf(err), err.Error()))
		return
	}
	PrintAnalyzeReport(report)
}

// PrintAnalyzeReport prints the class shares and the result location of a run.
func PrintAnalyzeReport(report *delivery.AnalyzeReport) {
	result := report.Result
	fmt.Fprintf(output, "\n%sCoastal status of %s, %s to %s (%g km band)%s\n", ColorGreen,
		result.Region.Name, result.Params.Start.Format(time.DateOnly), result.Params.End.Format(time.DateOnly), result.Params.BufferKm, ColorReset)
	for _, b := range result.Histogram {
		fmt.Fprintf(output, "%s  class %d: %6.2f%% (%d pixels)%s\n", ColorGreen, b.Class, b.Percent, b.Pixels, ColorReset)
	}
	for _, idx := range []*pipeline.IndexResult{result.Vegetation, result.Temperature} {
		fmt.Fprintf(output, "%s  %s: %d layers, %d skipped, band mean %.3f %s%s\n", ColorGreen,
			idx.Source.ID, len(idx.Layers), idx.Skipped, idx.Stats.Mean, idx.Source.Unit, ColorReset)
	}
	PrintSuccess(fmt.Sprintf("Successful analysis!\n Run: %s\n Results located at: %s", report.RunID, report.OutputDir))
	for _, o := range report.Objects {
		fmt.Fprintf(output, "%s Uploaded %s%s\n", ColorGreen, o, ColorReset)
	}
}
