package utils

import "time"

// NowUTC returns the current time in UTC truncated to microseconds, the
// precision every link store can round-trip.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// FormatSortableTime formats t so that lexical order equals chronological order
func FormatSortableTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}

// ParseSortableTime parses a value produced by FormatSortableTime
func ParseSortableTime(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05.000000Z", s)
}
