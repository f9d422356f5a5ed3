// Package dates normalizes loosely formatted date values into canonical
// calendar dates.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/tallyhq/tally/internal/common"
)

// ErrEmptyDate is returned for blank input, distinct from an unparseable one.
var ErrEmptyDate = errors.New("empty date")

// layouts are tried in order; the first successful parse wins. Order matters
// for ambiguous input: "01/02/2023" is valid under both the US and European
// layouts, and listing US first makes it January 2nd.
var layouts = []string{
	"2006-01-02", // ISO
	"2006/01/02",
	"01/02/2006", // US
	"01-02-2006",
	"01/02/06",
	"02/01/2006", // European
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2 2006",
	"Jan 2006", // month-year only: first of the month
	"January 2006",
	"01/2006",
	"2006-01",
}

// Normalize parses a loosely formatted value into a calendar date at
// midnight UTC. Structured date/time values pass through without reparsing.
func Normalize(value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return DateOf(v), nil
	case *time.Time:
		if v == nil {
			return time.Time{}, ErrEmptyDate
		}
		return DateOf(*v), nil
	case string:
		return NormalizeString(v)
	case fmt.Stringer:
		return NormalizeString(v.String())
	default:
		return NormalizeString(fmt.Sprint(value))
	}
}

// NormalizeString parses a date string against the fixed layout list, then a
// flexible parser as a last resort. Failures carry every format attempted.
func NormalizeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}

	if t, err := dateparse.ParseAny(s); err == nil {
		return DateOf(t), nil
	}

	attempted := make([]string, 0, len(layouts)+1)
	attempted = append(attempted, layouts...)
	attempted = append(attempted, "flexible")
	return time.Time{}, common.NewParseError(s, attempted)
}

// DateOf truncates a timestamp to its date component at midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
