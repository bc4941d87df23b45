package criteria

import (
	"sort"
	"time"
)

const (
	isoDateLayout   = "2006-01-02"
	shortDateLayout = "Jan 2"
	day             = 24 * time.Hour
)

// parseDay parses a calendar date as midnight UTC.
func parseDay(dateISO string) (time.Time, bool) {
	t, err := time.ParseInLocation(isoDateLayout, dateISO, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func shortDate(dateISO string) string {
	t, ok := parseDay(dateISO)
	if !ok {
		return dateISO
	}
	return t.Format(shortDateLayout)
}

// daysBetween returns the whole days from start to end.
func daysBetween(start, end time.Time) int {
	return int(end.Sub(start) / day)
}

// inWindow reports whether dateISO lies in [end-(days-1), end].
func inWindow(dateISO string, end time.Time, days int) bool {
	t, ok := parseDay(dateISO)
	if !ok {
		return false
	}
	cutoff := end.AddDate(0, 0, -days+1)
	return !t.Before(cutoff) && !t.After(end)
}

func sortedByDate[T any](items []T, date func(T) string) []T {
	out := make([]T, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return date(out[i]) < date(out[j])
	})
	return out
}
