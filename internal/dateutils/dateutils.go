// Package dateutils provides common date operations used throughout the
// application. Statement dates are calendar dates: everything here normalizes
// to UTC midnight.
package dateutils

import (
	"fmt"
	"strings"
	"time"
)

// Common date format constants used throughout the application.
const (
	DateLayoutISO      = "2006-01-02"
	DateLayoutEuropean = "02/01/2006"
	DateLayoutDashed   = "02-01-2006"
)

// StatementFormats is the ordered list of formats tried when parsing a
// statement date. The first format that yields a structurally valid calendar
// date wins, so the unambiguous ISO layout goes first and two-digit-year
// variants go last.
var StatementFormats = []string{
	DateLayoutISO,      // YYYY-MM-DD
	DateLayoutEuropean, // DD/MM/YYYY
	DateLayoutDashed,   // DD-MM-YYYY
	"2006/01/02",       // YYYY/MM/DD
	"02 Jan 2006",      // DD Mon YYYY
	"2 Jan 2006",       // D Mon YYYY
	"02 January 2006",  // DD Month YYYY
	"2006-01-02 15:04:05",
	"02/01/06", // DD/MM/YY
	"02-01-06", // DD-MM-YY
	"2-Jan-06", // D-Mon-YY
}

// ParseDate attempts to parse a statement date using the ordered format list.
// The result is truncated to a civil date at UTC midnight. An unparseable
// date is an error, never a zero/default date.
func ParseDate(dateStr string) (time.Time, error) {
	cleaned := CleanDateString(dateStr)
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, format := range StatementFormats {
		if t, err := time.Parse(format, cleaned); err == nil {
			return CivilDate(t), nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// CivilDate strips the time component, keeping year/month/day at UTC midnight.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CleanDateString trims and collapses whitespace in a date string.
func CleanDateString(dateStr string) string {
	return strings.Join(strings.Fields(dateStr), " ")
}

// SameDay reports whether two timestamps fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return CivilDate(a).Equal(CivilDate(b))
}

// CompareDates compares two dates at day granularity and returns:
//
//	-1 if a is before b
//	 0 if a equals b
//	 1 if a is after b
func CompareDates(a, b time.Time) int {
	a, b = CivilDate(a), CivilDate(b)
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// ToISODate formats a time.Time as an ISO date (YYYY-MM-DD).
func ToISODate(date time.Time) string {
	if date.IsZero() {
		return ""
	}
	return date.Format(DateLayoutISO)
}
