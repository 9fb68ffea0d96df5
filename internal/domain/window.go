package domain

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the calendar date format of the input series.
	DateLayout = "2006-01-02"

	// LocalTimeLayout renders a window timestamp without a zone, the form
	// historical weather providers read as local time at the coordinates.
	LocalTimeLayout = "2006-01-02T15:04:05"

	// MonthLayout parses a window month such as "2020-02".
	MonthLayout = "2006-01"
)

// MonthlyWindow returns one timestamp per day of month at hour:00:00, in
// calendar order. Only the year and month of month are used.
func MonthlyWindow(month time.Time, hour int) ([]time.Time, error) {
	if hour < 0 || hour > 23 {
		return nil, fmt.Errorf("window hour %d out of range", hour)
	}
	first := time.Date(month.Year(), month.Month(), 1, hour, 0, 0, 0, time.UTC)
	var window []time.Time
	for t := first; t.Month() == first.Month(); t = t.AddDate(0, 0, 1) {
		window = append(window, t)
	}
	return window, nil
}

// ParseMonth parses a "2006-01" month.
func ParseMonth(s string) (time.Time, error) {
	return time.Parse(MonthLayout, s)
}
