package main

import (
	"testing"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/classify"
	"github.com/ges-coastal/coastal-monitor/internal/composite"
	"github.com/ges-coastal/coastal-monitor/internal/normalize"
	"github.com/ges-coastal/coastal-monitor/internal/pipeline"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsedAnalyzeCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "analyze"}
	addAnalyzeFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestAnalyzeParamsDefaults(t *testing.T) {
	cmd := parsedAnalyzeCmd(t, "--country", "Cyprus", "--start", "2023-01-01", "--end", "2023-12-31")

	p, err := analyzeParams(cmd)
	require.NoError(t, err)
	assert.Equal(t, "Cyprus", p.Country)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), p.End)
	assert.Equal(t, 10.0, p.BufferKm)
	assert.Equal(t, "MOD13A1", p.Vegetation.Source)
	assert.Nil(t, p.Vegetation.Extrema)
	assert.Equal(t, normalize.DefaultScale, p.Scale)
	assert.NoError(t, p.Validate())
}

func TestAnalyzeParamsOverrides(t *testing.T) {
	cmd := parsedAnalyzeCmd(t,
		"--country", "Cyprus", "--start", "2023-01-01", "--end", "2023-12-31",
		"--buffer", "0",
		"--vegetation-reducer", "mean",
		"--temperature-range", "10,45",
		"--vegetation-weight", "0.7", "--temperature-weight", "0.3",
		"--thresholds", "10,30,50,70",
		"--min-coverage", "0.2",
		"--scale", "0,1",
	)

	p, err := analyzeParams(cmd)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.BufferKm)
	assert.Equal(t, composite.Mean, p.Vegetation.Reducer)
	assert.Equal(t, composite.Median, p.Temperature.Reducer)
	assert.Equal(t, &pipeline.Extrema{Min: 10, Max: 45}, p.Temperature.Extrema)
	assert.Equal(t, classify.Weights{A: 0.7, B: 0.3}, p.Weights)
	assert.Equal(t, []float64{10, 30, 50, 70}, p.Thresholds)
	assert.Equal(t, 0.2, p.MinCoverage)
	assert.Equal(t, normalize.Scale{Min: 0, Max: 1}, p.Scale)
	assert.NoError(t, p.Validate())
}

func TestAnalyzeParamsBadInput(t *testing.T) {
	cases := map[string][]string{
		"date":       {"--start", "01/01/2023", "--end", "2023-12-31"},
		"reducer":    {"--start", "2023-01-01", "--end", "2023-12-31", "--vegetation-reducer", "max"},
		"range":      {"--start", "2023-01-01", "--end", "2023-12-31", "--vegetation-range", "0"},
		"thresholds": {"--start", "2023-01-01", "--end", "2023-12-31", "--thresholds", "a,b"},
		"scale":      {"--start", "2023-01-01", "--end", "2023-12-31", "--scale", "100"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			cmd := parsedAnalyzeCmd(t, append([]string{"--country", "Cyprus"}, args...)...)
			_, err := analyzeParams(cmd)
			assert.Error(t, err)
		})
	}
}
