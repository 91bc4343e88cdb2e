package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/delivery"
	"github.com/ges-coastal/coastal-monitor/internal/pipeline"
	"github.com/ges-coastal/coastal-monitor/internal/properties"
	"github.com/ges-coastal/coastal-monitor/internal/ui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var timeSeriesCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "Write the band mean of every acquisition of a source as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := dateRange(cmd)
		if err != nil {
			return err
		}
		req := delivery.TimeSeriesRequest{Start: start, End: end, BufferKm: properties.BufferKm(), Source: properties.VegetationSource()}
		req.Country, _ = cmd.Flags().GetString("country")
		if cmd.Flags().Changed("source") {
			req.Source, _ = cmd.Flags().GetString("source")
		}
		if cmd.Flags().Changed("buffer") {
			req.BufferKm, _ = cmd.Flags().GetFloat64("buffer")
		}

		return withService(cmd.Context(), func(svc *delivery.Service) error {
			points, path, err := svc.TimeSeries(cmd.Context(), req)
			if err != nil {
				return err
			}
			ui.PrintTimeSeries(points)
			ui.PrintSuccess(fmt.Sprintf("Time series with %d points written to: %s", len(points), path))
			return nil
		})
	},
}

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "List the countries of the boundary dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *delivery.Service) error {
			for _, c := range svc.Countries() {
				fmt.Println(c)
			}
			return nil
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download Sentinel Hub acquisitions over a country into the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := dateRange(cmd)
		if err != nil {
			return err
		}
		country, _ := cmd.Flags().GetString("country")
		product, _ := cmd.Flags().GetString("product")

		return withService(cmd.Context(), func(svc *delivery.Service) error {
			report, err := svc.Fetch(cmd.Context(), product, country, start, end)
			if err != nil {
				return err
			}
			ui.PrintSuccess(fmt.Sprintf("Fetch finished: %d downloaded, %d already present, %d without data",
				len(report.Downloaded), len(report.Existing), len(report.Empty)))
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent analysis runs, or show one run as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withService(cmd.Context(), func(svc *delivery.Service) error {
			if len(args) == 0 {
				runs, err := svc.History(cmd.Context(), limit)
				if err != nil {
					return err
				}
				ui.PrintRuns(runs)
				return nil
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("bad run id %q: %w", args[0], err)
			}
			run, err := svc.Run(cmd.Context(), id)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		})
	},
}

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Open the interactive menu",
	RunE:  runMenu,
}

func runMenu(cmd *cobra.Command, args []string) error {
	printBanner()
	return withService(cmd.Context(), func(svc *delivery.Service) error {
		ui.ShowMenu(cmd.Context(), svc)
		return nil
	})
}

func init() {
	timeSeriesCmd.Flags().String("country", "", "Country name as it appears in the boundary dataset")
	timeSeriesCmd.Flags().String("source", "", "Source id (default: configured vegetation source)")
	timeSeriesCmd.Flags().Float64("buffer", 0, "Coastal band width in km, 0 for the whole country (default from config)")
	addDateFlags(timeSeriesCmd)
	timeSeriesCmd.MarkFlagRequired("country")

	fetchCmd.Flags().String("country", "", "Country name as it appears in the boundary dataset")
	fetchCmd.Flags().String("product", "S2L2A", "Sentinel Hub product")
	addDateFlags(fetchCmd)
	fetchCmd.MarkFlagRequired("country")

	historyCmd.Flags().Int("limit", 20, "Number of runs to list")

	rootCmd.AddCommand(timeSeriesCmd, countriesCmd, fetchCmd, historyCmd, menuCmd)
}

func addDateFlags(cmd *cobra.Command) {
	cmd.Flags().String("start", "", "First day of the period (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "Last day of the period, inclusive (YYYY-MM-DD)")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
}

func dateRange(cmd *cobra.Command) (time.Time, time.Time, error) {
	startFlag, _ := cmd.Flags().GetString("start")
	endFlag, _ := cmd.Flags().GetString("end")
	start, err := pipeline.ParseDate(startFlag)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := pipeline.ParseDate(endFlag)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
