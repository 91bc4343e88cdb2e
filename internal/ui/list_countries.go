package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/delivery"
	"github.com/ges-coastal/coastal-monitor/internal/history"
)

// ListCountries handles the UI for viewing the list of available countries
func ListCountries(svc *delivery.Service) {
	PrintWarning("To add a country, add a feature with a 'country_na' property to the countries GeoJSON.")
	PrintList("Available countries:", svc.Countries())
}

// ListRuns handles the UI for viewing the latest analysis runs
func ListRuns(ctx context.Context, svc *delivery.Service) {
	runs, err := svc.History(ctx, 20)
	if err != nil {
		PrintError(err.Error())
		return
	}
	PrintRuns(runs)
}

// PrintRuns prints runs newest first, one per line.
func PrintRuns(runs []history.Run) {
	if len(runs) == 0 {
		PrintWarning("No analysis has been run yet.")
		return
	}
	fmt.Fprintf(output, "\n%sRecent runs:%s\n", ColorGreen, ColorReset)
	for _, r := range runs {
		color := ColorGreen
		status := string(r.Status)
		switch r.Status {
		case history.StatusFailed:
			color = ColorRed
			status = fmt.Sprintf("%s (%s): %s", r.Status, r.ErrorKind, firstLine(r.Error))
		case history.StatusRunning:
			color = ColorYellow
		}
		fmt.Fprintf(output, "%s- %s  %s  %s %s..%s  %s%s\n", color,
			r.CreatedAt.Local().Format(time.DateTime), r.ID.String()[:8], r.Country, r.Start, r.End, status, ColorReset)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
