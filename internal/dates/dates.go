// Package dates handles the day-first date format used throughout the
// policy dashboard extracts.
//
// Extract cells arrive as "DD/MM/YYYY" or "D/M/YYYY", sometimes with a
// trailing time component ("01/03/2024 00:00") which carries no meaning
// and is discarded. All parsing is total: a cell that cannot be read as a
// valid calendar date yields ok=false, never a panic or error.
package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DMYLayout is the rendering layout for dashboard dates.
const DMYLayout = "02/01/2006"

// Year bounds are a sanity window against spreadsheet corruption, not a
// business rule.
const (
	MinYear = 1900
	MaxYear = 2100
)

// ParseDMY parses a day-first date string, ignoring any trailing time
// portion after the first space. It returns the date at UTC midnight and
// ok=false for anything that is not a valid calendar date: wrong part
// count, non-numeric parts, out-of-window years, and impossible
// combinations like 31/02 that a naive constructor would roll over.
func ParseDMY(value string) (time.Time, bool) {
	datePart := strings.TrimSpace(value)
	if datePart == "" {
		return time.Time{}, false
	}

	if idx := strings.IndexByte(datePart, ' '); idx >= 0 {
		datePart = datePart[:idx]
	}

	parts := strings.Split(datePart, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}

	if day < 1 || day > 31 || month < 1 || month > 12 || year < MinYear || year > MaxYear {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)

	// time.Date normalizes impossible dates (31/02 becomes 02/03 or 03/03);
	// re-verifying the components rejects those silently-rolled values.
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}

	return t, true
}

// FormatDMY renders a date as DD/MM/YYYY.
func FormatDMY(t time.Time) string {
	return t.Format(DMYLayout)
}

// StripTime returns the date portion of a raw cell value: everything
// before the first space, trimmed. The input is not validated.
func StripTime(value string) string {
	trimmed := strings.TrimSpace(value)
	if idx := strings.IndexByte(trimmed, ' '); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

// AddMonths advances a date by whole calendar months, keeping the same
// day-of-month where it exists. Overflowing days normalize forward
// (31 Jan + 1 month lands in early March), matching setMonth-style
// arithmetic. Used for the expected recovery due date, which assumes
// strictly monthly billing.
func AddMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}

// AddDays advances a date by a fixed number of days. Used for the 30-day
// potential-cancellation window and the 5-day clearing grace window;
// deliberately not calendar-month-aware.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// Truncate drops any time-of-day component, returning UTC midnight of the
// same calendar date. Reference "current dates" pass through this before
// any comparison.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MustParseDMY is a test and fixture helper that panics on invalid input.
func MustParseDMY(value string) time.Time {
	t, ok := ParseDMY(value)
	if !ok {
		panic(fmt.Sprintf("dates: invalid DMY date %q", value))
	}
	return t
}
