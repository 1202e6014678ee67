// Package dates provides helpers for the ISO YYYY-MM-DD date strings used
// throughout the scheduling engine. All range math is inclusive of both
// endpoints, and lexicographic comparison of ISO strings is chronological.
package dates

import "time"

// Layout is the wire format for all dates in the system
const Layout = "2006-01-02"

// Parse parses an ISO date string
func Parse(s string) (time.Time, error) {
	return time.Parse(Layout, s)
}

// Valid reports whether s is a well-formed ISO date
func Valid(s string) bool {
	_, err := time.Parse(Layout, s)
	return err == nil
}

// AddDays returns the date n days after s. s must be valid.
func AddDays(s string, n int) string {
	t, _ := time.Parse(Layout, s)
	return t.AddDate(0, 0, n).Format(Layout)
}

// DaysBetween returns the signed number of days from a to b. Both must be valid.
func DaysBetween(a, b string) int {
	ta, _ := time.Parse(Layout, a)
	tb, _ := time.Parse(Layout, b)
	return int(tb.Sub(ta).Hours() / 24)
}

// SpanDays returns the inclusive length in days of the range [start, end]
func SpanDays(start, end string) int {
	return DaysBetween(start, end) + 1
}

// Range returns every day in [start, end] inclusive, in order.
// Returns nil when end precedes start.
func Range(start, end string) []string {
	if end < start {
		return nil
	}
	var days []string
	for d := start; d <= end; d = AddDays(d, 1) {
		days = append(days, d)
	}
	return days
}

// OverlapDays returns the inclusive overlap in days of [aStart,aEnd] and
// [bStart,bEnd], or 0 when they are disjoint.
func OverlapDays(aStart, aEnd, bStart, bEnd string) int {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end < start {
		return 0
	}
	return SpanDays(start, end)
}

// Clip constrains [start, end] to [boundStart, boundEnd]. The returned ok is
// false when the clipped range is empty.
func Clip(start, end, boundStart, boundEnd string) (string, string, bool) {
	if start < boundStart {
		start = boundStart
	}
	if end > boundEnd {
		end = boundEnd
	}
	return start, end, start <= end
}
