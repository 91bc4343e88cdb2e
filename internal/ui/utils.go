package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Colors for consistent UI
const (
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorReset  = "\033[0m"
)

var (
	input  = bufio.NewReader(os.Stdin)
	output = io.Writer(os.Stdout)
)

// ErrInputClosed is returned once stdin has no more lines.
var ErrInputClosed = errors.New("ui: input closed")

// PrintWarning displays a warning message with consistent formatting
func PrintWarning(message string) {
	fmt.Fprintf(output, "%s\nWarning:%s\n", ColorYellow, ColorReset)
	fmt.Fprintf(output, "%s%s%s\n", ColorYellow, message, ColorReset)
}

// PrintError displays an error message with consistent formatting
func PrintError(message string) {
	fmt.Fprintf(output, "\n%sError: %s%s\n", ColorRed, message, ColorReset)
}

// PrintSuccess displays a success message with consistent formatting
func PrintSuccess(message string) {
	fmt.Fprintf(output, "\n%s%s%s\n", ColorGreen, message, ColorReset)
}

// PrintInfo displays an info message with consistent formatting
func PrintInfo(message string) {
	fmt.Fprintf(output, "%s%s%s", ColorBlue, message, ColorReset)
}

// PrintList prints items as a green bullet list under title.
func PrintList(title string, items []string) {
	fmt.Fprintf(output, "\n%s%s%s\n", ColorGreen, title, ColorReset)
	for _, item := range items {
		fmt.Fprintf(output, "%s- %s%s\n", ColorGreen, item, ColorReset)
	}
}

func readLine() (string, error) {
	line, err := input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", ErrInputClosed
	}
	return strings.TrimSpace(line), nil
}

// ReadString reads a string from stdin with trimming
func ReadString(prompt string) string {
	PrintInfo(prompt)
	line, _ := readLine()
	return line
}

// ReadDefault reads a string and falls back to def on an empty line.
func ReadDefault(prompt, def string) string {
	if def != "" {
		prompt = fmt.Sprintf("%s[%s] ", prompt, def)
	}
	if value := ReadString(prompt); value != "" {
		return value
	}
	return def
}

// ReadInt reads an integer from stdin with validation
func ReadInt(prompt string, min, max int) (int, error) {
	PrintInfo(prompt)
	line, err := readLine()
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(line)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", line)
	}

	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %d and %d", min, max)
	}

	return value, nil
}

// ReadFloat reads a number in [min, max]; an empty line returns def.
func ReadFloat(prompt string, def, min, max float64) (float64, error) {
	line := ReadDefault(prompt, strconv.FormatFloat(def, 'f', -1, 64))
	value, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", line)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("value must be between %g and %g", min, max)
	}
	return value, nil
}

// ReadDate reads a date from stdin with validation
func ReadDate(prompt string) (time.Time, error) {
	line := ReadString(prompt)
	if line == "today" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	date, err := time.Parse(time.DateOnly, line)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s. Please use YYYY-MM-DD", line)
	}
	return date, nil
}

// ReadDateRange reads a start and an end date, end not before start.
func ReadDateRange() (time.Time, time.Time, error) {
	startDate, err := ReadDate("Enter the start date (YYYY-MM-DD): ")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	endDate, err := ReadDate("Enter the end date (YYYY-MM-DD | today): ")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s", endDate.Format(time.DateOnly), startDate.Format(time.DateOnly))
	}
	return startDate, endDate, nil
}

// ReadYesNo reads a y/n answer; anything else counts as no.
func ReadYesNo(prompt string) bool {
	answer := strings.ToLower(ReadString(prompt + "(y/N) "))
	return answer == "y" || answer == "yes"
}

// SelectOption lists options and returns the chosen one. An empty line
// picks def when it is one of the options.
func SelectOption(title string, options []string, def string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("no %s available", strings.ToLower(title))
	}

	fmt.Fprintf(output, "%s\nAvailable %s:%s\n", ColorGreen, strings.ToLower(title), ColorReset)
	defIndex := 0
	for i, opt := range options {
		fmt.Fprintf(output, "%s%d. %s%s\n", ColorGreen, i+1, opt, ColorReset)
		if opt == def {
			defIndex = i + 1
		}
	}

	prompt := "Enter your choice: "
	if defIndex > 0 {
		prompt = fmt.Sprintf("%s[%d] ", prompt, defIndex)
	}
	PrintInfo(prompt)
	line, err := readLine()
	if err != nil {
		return "", err
	}
	if line == "" && defIndex > 0 {
		return def, nil
	}
	choice, err := strconv.Atoi(line)
	if err != nil || choice < 1 || choice > len(options) {
		return "", fmt.Errorf("invalid choice: %s", line)
	}
	return options[choice-1], nil
}

// ReadCountry asks for a country, by number when the list is short enough
// to print or by name otherwise.
func ReadCountry(countries []string) (string, error) {
	if len(countries) <= 30 {
		return SelectOption("Countries", countries, "")
	}
	country := ReadString("Enter the country name (see 'View the list of available countries'): ")
	if country == "" {
		return "", errors.New("country name cannot be empty")
	}
	return country, nil
}
