// Package dateutils provides the date handling shared by the ledger stores,
// the pattern miner and the aggregate queries.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutEuropean  = "02.01.2006"
	DateLayoutUS        = "01/02/2006"
	DateLayoutFull      = "2006-01-02 15:04:05"
	DateLayoutWithMonth = "2-Jan-2006"
	DateLayoutRFC3339   = time.RFC3339
)

// CommonFormats is a list of standard formats to try when parsing dates.
// Dutch bookkeeping exports use DD-MM-YYYY, so it is tried before the
// slash-separated variants.
var CommonFormats = []string{
	DateLayoutISO,
	DateLayoutEuropean,
	DateLayoutUS,
	DateLayoutFull,
	DateLayoutRFC3339,
	DateLayoutWithMonth,
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

var whitespacePattern = regexp.MustCompile(`\s+`)

// ParseDate attempts to parse a date string using multiple common formats.
// Returns the parsed time and the detected format.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)

	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, format, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// ParseDay parses a date string and truncates it to midnight UTC.
func ParseDay(dateStr string) (time.Time, error) {
	t, _, err := ParseDate(dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return TruncateDay(t), nil
}

// FormatDate formats a time.Time value according to the specified layout.
// If no layout is provided, DateLayoutISO is used.
func FormatDate(date time.Time, layout string) string {
	if layout == "" {
		layout = DateLayoutISO
	}
	return date.Format(layout)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return date.Format(DateLayoutISO)
}

// CleanDateString trims the string and collapses inner whitespace.
func CleanDateString(dateStr string) string {
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// TruncateDay drops the time of day, keeping the calendar date in UTC.
func TruncateDay(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

// WindowStart returns the first day of a trailing window of days ending on now.
func WindowStart(now time.Time, days int) time.Time {
	return TruncateDay(now).AddDate(0, 0, -days)
}

// YearBounds returns the first and last day of a calendar year.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return start, end
}

// InRange reports whether date falls on or between from and to, comparing
// calendar days only. A zero bound is open.
func InRange(date, from, to time.Time) bool {
	if !from.IsZero() && CompareDates(date, from) < 0 {
		return false
	}
	if !to.IsZero() && CompareDates(date, to) > 0 {
		return false
	}
	return true
}

// CompareDates compares two dates and returns:
//
//	-1 if date1 is before date2
//	 0 if date1 is equal to date2
//	 1 if date1 is after date2
func CompareDates(date1, date2 time.Time) int {
	date1 = TruncateDay(date1)
	date2 = TruncateDay(date2)

	if date1.Before(date2) {
		return -1
	} else if date1.After(date2) {
		return 1
	}
	return 0
}
