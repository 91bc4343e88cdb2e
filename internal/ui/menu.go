package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/ges-coastal/coastal-monitor/internal/delivery"
)

type menuOption struct {
	title   string
	handler func()
}

// ShowMenu displays the main menu and handles user input until the user
// exits or stdin is closed.
func ShowMenu(ctx context.Context, svc *delivery.Service) {
	exit := false
	menuOptions := []menuOption{
		{"Analyze the coastal status of a country", func() { AnalyzeCoast(ctx, svc) }},
		{"Extract an index time series over a coastal band", func() { ExtractTimeSeries(ctx, svc) }},
		{"Fetch Sentinel-2 acquisitions into the archive", func() { FetchImages(ctx, svc) }},
		{"View the list of available countries", func() { ListCountries(svc) }},
		{"View recent analysis runs", func() { ListRuns(ctx, svc) }},
		{"Exit the application", func() { fmt.Fprintln(output, "Exiting..."); exit = true }},
	}

	for !exit && ctx.Err() == nil {
		fmt.Fprintln(output, "\033[34m===================\033[0m")
		for i, opt := range menuOptions {
			fmt.Fprintf(output, "\033[34m%d. %s\033[0m\n", i+1, opt.title)
		}

		choice, err := ReadInt("Please enter your choice: ", 1, len(menuOptions))
		if errors.Is(err, ErrInputClosed) {
			return
		}
		if err != nil {
			PrintError(err.Error())
			continue
		}

		menuOptions[choice-1].handler()
	}
}
