package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ges-coastal/coastal-monitor/internal/classify"
	"github.com/ges-coastal/coastal-monitor/internal/composite"
	"github.com/ges-coastal/coastal-monitor/internal/delivery"
	"github.com/ges-coastal/coastal-monitor/internal/normalize"
	"github.com/ges-coastal/coastal-monitor/internal/pipeline"
	"github.com/ges-coastal/coastal-monitor/internal/ui"
	"github.com/ges-coastal/coastal-monitor/output"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify the coastal status of a country over a date range",
	Example: `  coastal-monitor analyze --country Cyprus --start 2023-01-01 --end 2023-12-31
  coastal-monitor analyze --country Cyprus --start 2023-06-01 --end 2023-08-31 --buffer 5 --video --upload`,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := analyzeParams(cmd)
		if err != nil {
			return err
		}
		video, _ := cmd.Flags().GetBool("video")
		upload, _ := cmd.Flags().GetBool("upload")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withService(cmd.Context(), func(svc *delivery.Service) error {
			report, err := svc.Analyze(cmd.Context(), delivery.AnalyzeRequest{Params: params, Video: video, Upload: upload})
			if err != nil {
				return fmt.Errorf("%s error: %w", pipeline.KindOf(err), err)
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(output.NewSummary(report.Result))
			}
			ui.PrintAnalyzeReport(report)
			return nil
		})
	},
}

func init() {
	addAnalyzeFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func addAnalyzeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("country", "", "Country name as it appears in the boundary dataset")
	flags.String("start", "", "First day of the period (YYYY-MM-DD)")
	flags.String("end", "", "Last day of the period, inclusive (YYYY-MM-DD)")
	flags.Float64("buffer", 0, "Coastal band width in km, 0 for the whole country (default from config)")
	flags.String("vegetation", "", "Vegetation source id (default from config)")
	flags.String("temperature", "", "Temperature source id (default from config)")
	flags.String("vegetation-reducer", "", "Vegetation reducer: mean or median (default from config)")
	flags.String("temperature-reducer", "", "Temperature reducer: mean or median (default from config)")
	flags.Float64("vegetation-weight", 0, "Weight of the normalised vegetation index (default from config)")
	flags.Float64("temperature-weight", 0, "Weight of the normalised temperature index (default from config)")
	flags.String("thresholds", "", "Four ascending class thresholds, comma separated (default from config)")
	flags.Float64("min-coverage", 0, "Drop acquisitions whose valid share of the band is below this fraction")
	flags.String("vegetation-range", "", "Fixed vegetation normalisation range min,max instead of the band extrema")
	flags.String("temperature-range", "", "Fixed temperature normalisation range min,max instead of the band extrema")
	flags.String("scale", "", "Output range min,max of the normalised indices (default from config)")
	flags.Bool("video", false, "Also write an AVI of the masked acquisitions of each index")
	flags.Bool("upload", false, "Upload the result files to object storage")
	flags.Bool("json", false, "Print the run summary as JSON")
	cmd.MarkFlagRequired("country")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
}

// analyzeParams starts from the configured defaults and applies the flags
// that were set.
func analyzeParams(cmd *cobra.Command) (pipeline.Params, error) {
	params, err := delivery.ConfiguredParams()
	if err != nil {
		return params, err
	}
	flags := cmd.Flags()

	params.Country, _ = flags.GetString("country")
	if params.Start, params.End, err = dateRange(cmd); err != nil {
		return params, err
	}
	if flags.Changed("buffer") {
		params.BufferKm, _ = flags.GetFloat64("buffer")
	}
	if flags.Changed("vegetation") {
		params.Vegetation.Source, _ = flags.GetString("vegetation")
	}
	if flags.Changed("temperature") {
		params.Temperature.Source, _ = flags.GetString("temperature")
	}
	for name, idx := range map[string]*pipeline.Index{"vegetation": &params.Vegetation, "temperature": &params.Temperature} {
		if flags.Changed(name + "-reducer") {
			value, _ := flags.GetString(name + "-reducer")
			if idx.Reducer, err = composite.ParseReducer(value); err != nil {
				return params, err
			}
		}
		if flags.Changed(name + "-range") {
			value, _ := flags.GetString(name + "-range")
			bounds, err := parseFloats(value)
			if err != nil || len(bounds) != 2 {
				return params, fmt.Errorf("%w: --%s-range wants min,max, got %q", pipeline.ErrInvalidParams, name, value)
			}
			idx.Extrema = &pipeline.Extrema{Min: bounds[0], Max: bounds[1]}
		}
	}
	if flags.Changed("vegetation-weight") {
		params.Weights.A, _ = flags.GetFloat64("vegetation-weight")
	}
	if flags.Changed("temperature-weight") {
		params.Weights.B, _ = flags.GetFloat64("temperature-weight")
	}
	if flags.Changed("thresholds") {
		value, _ := flags.GetString("thresholds")
		if params.Thresholds, err = parseFloats(value); err != nil {
			return params, fmt.Errorf("%w: %v", classify.ErrBadThresholds, err)
		}
	}
	if flags.Changed("scale") {
		value, _ := flags.GetString("scale")
		bounds, err := parseFloats(value)
		if err != nil || len(bounds) != 2 {
			return params, fmt.Errorf("%w: --scale wants min,max, got %q", pipeline.ErrInvalidParams, value)
		}
		params.Scale = normalize.Scale{Min: bounds[0], Max: bounds[1]}
	}
	if flags.Changed("min-coverage") {
		params.MinCoverage, _ = flags.GetFloat64("min-coverage")
	}
	return params, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", part)
		}
		out = append(out, f)
	}
	return out, nil
}
