package ui

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ges-coastal/coastal-monitor/internal/history"
	"github.com/ges-coastal/coastal-monitor/internal/timeseries"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withInput(t *testing.T, lines ...string) *bytes.Buffer {
	t.Helper()
	oldInput, oldOutput := input, output
	t.Cleanup(func() { input, output = oldInput, oldOutput })

	input = bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	out := &bytes.Buffer{}
	output = out
	return out
}

func TestReadDateRange(t *testing.T) {
	withInput(t, "2023-01-01", "2023-12-31")

	start, end, err := ReadDateRange()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestReadDateRangeReversed(t *testing.T) {
	withInput(t, "2023-12-31", "2023-01-01")

	_, _, err := ReadDateRange()
	assert.ErrorContains(t, err, "before start date")
}

func TestReadDateInvalid(t *testing.T) {
	withInput(t, "31/12/2023")

	_, err := ReadDate("date: ")
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestReadFloat(t *testing.T) {
	withInput(t, "", "25.5", "150")

	v, err := ReadFloat("buffer: ", 10, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)

	v, err = ReadFloat("buffer: ", 10, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 25.5, v)

	_, err = ReadFloat("buffer: ", 10, 0, 100)
	assert.Error(t, err)
}

func TestReadIntClosedInput(t *testing.T) {
	withInput(t)
	input = bufio.NewReader(strings.NewReader(""))

	_, err := ReadInt("choice: ", 1, 3)
	assert.ErrorIs(t, err, ErrInputClosed)
}

func TestSelectOption(t *testing.T) {
	out := withInput(t, "", "2", "7")
	options := []string{"MOD13A1", "MOD11A1", "S2L2A"}

	got, err := SelectOption("Sources", options, "MOD11A1")
	require.NoError(t, err)
	assert.Equal(t, "MOD11A1", got)
	assert.Contains(t, out.String(), "[2]")

	got, err = SelectOption("Sources", options, "")
	require.NoError(t, err)
	assert.Equal(t, "MOD11A1", got)

	_, err = SelectOption("Sources", options, "")
	assert.ErrorContains(t, err, "invalid choice")
}

func TestReadYesNo(t *testing.T) {
	withInput(t, "y", "", "nope")

	assert.True(t, ReadYesNo("video? "))
	assert.False(t, ReadYesNo("video? "))
	assert.False(t, ReadYesNo("video? "))
}

func TestPrintTimeSeries(t *testing.T) {
	out := withInput(t)

	PrintTimeSeries([]timeseries.Point{{Date: "2023-01-01", Value: 0.4512, Coverage: 0.5, Pixels: 10}})
	assert.Contains(t, out.String(), "2023-01-01")
	assert.Contains(t, out.String(), "0.4512")
	assert.Contains(t, out.String(), "50.0%")
}

func TestPrintRuns(t *testing.T) {
	out := withInput(t)

	PrintRuns([]history.Run{{
		ID:        uuid.MustParse("0b1c2d3e-0000-4000-8000-000000000000"),
		Country:   "Cyprus",
		Start:     "2023-01-01",
		End:       "2023-12-31",
		Status:    history.StatusFailed,
		ErrorKind: "data_availability",
		Error:     "reduce MOD13A1: empty input\nmore",
		CreatedAt: time.Now(),
	}})
	assert.Contains(t, out.String(), "0b1c2d3e")
	assert.Contains(t, out.String(), "failed (data_availability): reduce MOD13A1: empty input")
	assert.NotContains(t, out.String(), "more")
}
