// Package dates provides local-calendar-day helpers for menu freshness.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DayKey returns the local calendar day of t as "YYYY-MM-DD".
// Freshness is always evaluated against this key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekdayToken returns the lowercase English weekday name used by the
// scrape provider's day query parameter.
func WeekdayToken(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}

// TruncateISO cuts an ISO date-time string at 'T', yielding a day key.
// Returns "" for an empty input.
func TruncateISO(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

// dayMonthRe matches "D.M", "D.M.", "D.M.YY" and "D.M.YYYY" with
// '.', '-' or '/' separators.
var dayMonthRe = regexp.MustCompile(`^(\d{1,2})[.\-/](\d{1,2})(?:[.\-/](\d{2,4}))?[.\-/]?$`)

// ParseDayMonth parses a day-first date string against a reference date.
// When the year is omitted, the candidate year (previous, current or next
// relative to ref) whose resulting date is closest to ref is chosen; this
// keeps year-less dates stable across year boundaries. 2-digit years are
// normalized to the 2000s.
//
// Returns the zero time and false if the text is not a date, if day or
// month are out of range, or if the day does not exist in that month.
func ParseDayMonth(text string, ref time.Time) (time.Time, bool) {
	m := dayMonthRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return time.Time{}, false
	}

	if m[3] != "" {
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		return makeDate(year, month, day)
	}

	// No year: pick the candidate closest in absolute time to ref.
	var best time.Time
	found := false
	for _, year := range []int{ref.Year() - 1, ref.Year(), ref.Year() + 1} {
		d, ok := makeDate(year, month, day)
		if !ok {
			continue
		}
		if !found || absDuration(d.Sub(ref)) < absDuration(best.Sub(ref)) {
			best = d
			found = true
		}
	}
	return best, found
}

// makeDate builds a local date and rejects values that do not round-trip,
// such as day 31 in a 30-day month (time.Date would silently roll over).
func makeDate(year, month, day int) (time.Time, bool) {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// FormatDisplay renders an ISO day key for display: "D.M.YYYY" for
// Finnish, "M/D/YYYY" otherwise. Malformed input is returned unchanged.
func FormatDisplay(dayKey, language string) string {
	parts := strings.Split(strings.TrimSpace(dayKey), "-")
	if len(parts) != 3 {
		return dayKey
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return dayKey
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return dayKey
	}
	if language == "fi" {
		return fmt.Sprintf("%d.%d.%s", day, month, parts[0])
	}
	return fmt.Sprintf("%d/%d/%s", month, day, parts[0])
}
