// Package clock formats the UTC ISO-8601 timestamps used throughout the
// core, grounded on the original now_ts() helper.
package clock

import "time"

// NowISO returns the current time as a UTC ISO-8601 string with millisecond
// resolution and a trailing "Z", per spec.md §6.
func NowISO() string {
	return FormatISO(time.Now())
}

// FormatISO renders t as a UTC ISO-8601 string with a trailing "Z".
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ParseISO parses a timestamp produced by FormatISO/NowISO.
func ParseISO(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000Z", s)
}
