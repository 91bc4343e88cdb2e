package ui

import (
	"context"
	"fmt"

	"github.com/ges-coastal/coastal-monitor/internal/delivery"
)

// FetchImages handles the UI for downloading acquisitions over a country
func FetchImages(ctx context.Context, svc *delivery.Service) {
	PrintWarning("- Sentinel Hub client ids and secrets must be set in the environment.\n- Days already in the archive are not downloaded again.")

	product, err := SelectOption("Products", svc.Products(), "")
	if err != nil {
		PrintError(err.Error())
		return
	}
	country, err := ReadCountry(svc.Countries())
	if err != nil {
		PrintError(err.Error())
		return
	}
	start, end, err := ReadDateRange()
	if err != nil {
		PrintError(err.Error())
		return
	}

	report, err := svc.Fetch(ctx, product, country, start, end)
	if err != nil {
		PrintError(fmt.Sprintf("Error fetching %s: %s", product, err.Error()))
		return
	}
	PrintSuccess(fmt.Sprintf("Fetch finished: %d downloaded, %d already present, %d without data",
		len(report.Downloaded), len(report.Existing), len(report.Empty)))
}
