// Package dates parses and formats the two calendar notations used by the
// research document (DD/MM/YYYY and YYYY-MM-DD). Every function is total:
// parsers report failure through ok, never a panic. The zero time is a valid
// date (01/01/0001); callers track "missing" with their own flags.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const layoutBR = "02/01/2006"

var (
	brPattern  = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	isoPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// ParseBR parses a strict DD/MM/YYYY date at UTC midnight.
// ok is false for a bad shape, out-of-range fields, or a day that does not
// exist in that month (31/02/2024).
func ParseBR(s string) (time.Time, bool) {
	m := brPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	return build(m[3], m[2], m[1])
}

// ParseISO parses a strict YYYY-MM-DD date at UTC midnight.
func ParseISO(s string) (time.Time, bool) {
	m := isoPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	return build(m[1], m[2], m[3])
}

// Parse tries BR first, then ISO.
func Parse(s string) (time.Time, bool) {
	if t, ok := ParseBR(s); ok {
		return t, true
	}
	return ParseISO(s)
}

func build(ys, ms, ds string) (time.Time, bool) {
	year, _ := strconv.Atoi(ys)
	month, _ := strconv.Atoi(ms)
	day, _ := strconv.Atoi(ds)
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (31/02 -> 02/03); reject anything that moved.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// FormatBR renders t as DD/MM/YYYY.
func FormatBR(t time.Time) string {
	return t.UTC().Format(layoutBR)
}

// FormatISO renders t as YYYY-MM-DD.
func FormatISO(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// AddDays shifts t by n calendar days in UTC.
func AddDays(t time.Time, n int) time.Time {
	return t.UTC().AddDate(0, 0, n)
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the whole number of days from a to b (b-a). It works
// on Unix seconds, so spans longer than time.Duration's ~292 years stay exact.
func DaysBetween(a, b time.Time) int {
	return int((b.UTC().Unix() - a.UTC().Unix()) / secondsPerDay)
}

// ISOToBR converts an ISO date string straight to BR notation; "" on failure.
func ISOToBR(s string) string {
	t, ok := ParseISO(s)
	if !ok {
		return ""
	}
	return FormatBR(t)
}

// MustParse is for tests and literals.
func MustParse(s string) time.Time {
	t, ok := Parse(s)
	if !ok {
		panic(fmt.Sprintf("dates: invalid date %q", s))
	}
	return t
}
