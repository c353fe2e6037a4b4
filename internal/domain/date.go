package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of an attendance day.
const DateLayout = "2006-01-02"

// Layouts without a zone are read in the reference location.
var localLayouts = []string{
	DateLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseDay parses an ISO-8601 date or timestamp and returns the start of its
// calendar day in loc. A time-of-day component never changes the result
// for instants that fall on the same day in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return StartOfDay(t, loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return StartOfDay(t, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// StartOfDay truncates t to midnight of its calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// NextDay returns the start of the following calendar day. Days are not
// always 24h long in zones with DST.
func NextDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, day.Location())
}
