// Package consensus scores candidate date windows against normalized
// availability. Scoring is a pure function of its inputs: no randomness, no
// wall clock, and a full tie-break order, so identical inputs always produce
// bit-identical results.
package consensus

import (
	"sort"

	"github.com/wayfare/wayfare/pkg/wayfare/availability"
	"github.com/wayfare/wayfare/pkg/wayfare/dates"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
)

// TopN is how many candidate windows a consensus computation returns
const TopN = 3

// Window is one scored candidate date range
type Window struct {
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	Score      float64 `json:"score"`       // normalized to [0,1]
	TotalScore float64 `json:"total_score"` // raw contribution sum
	Coverage   float64 `json:"coverage"`    // days with >=1 response / duration
}

// Key returns the window's option key, "start_end"
func (w Window) Key() string {
	return w.StartDate + "_" + w.EndDate
}

// contribution weights per availability status
func contribution(s models.AvailabilityStatus) float64 {
	switch s {
	case models.AvailabilityAvailable:
		return 1
	case models.AvailabilityMaybe:
		return 0.5
	default:
		return 0
	}
}

// TopWindows enumerates every duration-day window inside [startBound,
// endBound] (step one day, range inclusive), scores each against the
// normalized entries, and returns the top candidates ordered by score
// descending with ties broken by start date ascending. Returns nil when no
// user has submitted anything.
func TopWindows(entries []availability.DayEntry, startBound, endBound string, duration int) []Window {
	if len(entries) == 0 || duration <= 0 || startBound == "" || endBound == "" {
		return nil
	}

	users := make(map[uint]bool)
	byDay := make(map[string][]availability.DayEntry)
	for _, e := range entries {
		users[e.UserID] = true
		byDay[e.Day] = append(byDay[e.Day], e)
	}
	totalUsers := len(users)
	if totalUsers == 0 {
		return nil
	}

	var windows []Window
	for start := startBound; dates.AddDays(start, duration-1) <= endBound; start = dates.AddDays(start, 1) {
		end := dates.AddDays(start, duration-1)

		total := 0.0
		daysWithResponse := 0
		for _, day := range dates.Range(start, end) {
			dayEntries := byDay[day]
			if len(dayEntries) > 0 {
				daysWithResponse++
			}
			for _, e := range dayEntries {
				total += contribution(e.Status)
			}
		}

		windows = append(windows, Window{
			StartDate:  start,
			EndDate:    end,
			Score:      total / float64(duration*totalUsers),
			TotalScore: total,
			Coverage:   float64(daysWithResponse) / float64(duration),
		})
	}

	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].Score != windows[j].Score {
			return windows[i].Score > windows[j].Score
		}
		return windows[i].StartDate < windows[j].StartDate
	})

	if len(windows) > TopN {
		windows = windows[:TopN]
	}
	return windows
}
