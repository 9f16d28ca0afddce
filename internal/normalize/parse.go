package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// DisplayDateLayout is the day/month/year layout used when writing dates back
// to the sheet.
const DisplayDateLayout = "02/01/2006"

var (
	dayMonthYearPattern = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})$`)
	leadingIntPattern   = regexp.MustCompile(`^[+-]?\d+`)

	// Layouts tried when the value is not day/month/year.
	fallbackLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
		"Jan 2, 2006",
		"2 Jan 2006",
		"January 2, 2006",
	}
)

// ParseDate parses a sheet date. Day/month/year with '/', '-' or '.' is tried
// first (two-digit years mean 20xx), then ISO 8601 and a few common layouts.
// The result is the calendar date at UTC midnight; nil means unparseable.
func ParseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if m := dayMonthYearPattern.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if t, ok := calendarDate(year, month, day); ok {
			return &t
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := domain.DateOf(t)
			return &d
		}
	}

	return nil
}

// calendarDate rejects out-of-range components instead of letting time.Date
// roll 31/02 into March.
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

// ParseInt strips thousands-separator commas and reads the leading integer,
// the way a lenient spreadsheet reader would ("1,250.7 units" -> 1250).
func ParseInt(raw string) (int, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, false
	}
	digits := leadingIntPattern.FindString(s)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseQuantity is ParseInt clamped at zero; unparseable values are 0.
func ParseQuantity(raw string) int {
	n, ok := ParseInt(raw)
	if !ok || n < 0 {
		return 0
	}
	return n
}

// DayMonthLabel is the chart label for a date.
func DayMonthLabel(t time.Time) string {
	return t.Format("02/01")
}

// FormatDate renders t as day/month/year.
func FormatDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}
