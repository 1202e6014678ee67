package windows

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wayfare/wayfare/pkg/wayfare/dates"
)

var isoRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// monthRangeRe matches forms like "Jan 2-5, 2026", "january 2 to february 5 2026".
var monthRangeRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+(\d{1,2})(?:\s*(?:-|–|to|through)\s*(?:(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+)?(\d{1,2}))?\s*,?\s+(\d{4})`)

var monthNumbers = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseText extracts a date range from free text. Two ISO dates make a
// range, one ISO date a single-day window; otherwise month-name forms are
// tried. A reversed range is normalized. ok is false when nothing parses,
// in which case the window is stored as unstructured and concretized later.
func ParseText(text string) (start, end string, ok bool) {
	var iso []string
	for _, m := range isoRe.FindAllString(text, -1) {
		if dates.Valid(m) {
			iso = append(iso, m)
		}
	}
	switch {
	case len(iso) >= 2:
		start, end = iso[0], iso[1]
		if end < start {
			start, end = end, start
		}
		return start, end, true
	case len(iso) == 1:
		return iso[0], iso[0], true
	}

	m := monthRangeRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}

	year, _ := strconv.Atoi(m[5])
	startDay, _ := strconv.Atoi(m[2])
	start, ok = buildDate(year, m[1], startDay)
	if !ok {
		return "", "", false
	}

	if m[4] == "" {
		return start, start, true
	}
	endMonth := m[3]
	if endMonth == "" {
		endMonth = m[1]
	}
	endDay, _ := strconv.Atoi(m[4])
	end, ok = buildDate(year, endMonth, endDay)
	if !ok {
		return "", "", false
	}
	if end < start {
		start, end = end, start
	}
	return start, end, true
}

func buildDate(year int, monthName string, day int) (string, bool) {
	month, ok := monthNumbers[strings.ToLower(monthName)[:3]]
	if !ok {
		return "", false
	}
	s := fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
	// reject overflowed days like Feb 30
	if !dates.Valid(s) {
		return "", false
	}
	return s, true
}
