// Package availability normalizes heterogeneous availability submissions
// into one canonical per-day view and exposes the submit/read endpoints.
package availability

import (
	"sort"

	"github.com/wayfare/wayfare/pkg/wayfare/dates"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
)

// DayEntry is one user's normalized status for one day
type DayEntry struct {
	Day    string                    `json:"day"`
	UserID uint                      `json:"user_id"`
	Status models.AvailabilityStatus `json:"status"`
}

// NormalizeUser converts one user's availability rows into a per-day view
// covering every day in [startBound, endBound] that has any signal.
//
// Precedence, lowest to highest: broad default < weekly block < per-day row.
// If multiple broad rows exist the first one in row order wins (a documented
// quirk of the submission format, kept as-is). Weekly blocks apply in row
// order, later blocks winning where they overlap; each block is clipped to
// the trip bounds. Rows are expected in primary-key order.
func NormalizeUser(rows []models.Availability, startBound, endBound string) []DayEntry {
	if len(rows) == 0 || startBound == "" || endBound == "" || endBound < startBound {
		return nil
	}

	dayStatus := make(map[string]models.AvailabilityStatus)
	var userID uint

	// broad: first row wins
	for _, r := range rows {
		userID = r.UserID
		if r.Kind != models.AvailabilityKindBroad {
			continue
		}
		for _, d := range dates.Range(startBound, endBound) {
			dayStatus[d] = r.Status
		}
		break
	}

	// weekly blocks in row order, clipped to bounds
	for _, r := range rows {
		if r.Kind != models.AvailabilityKindWeekly {
			continue
		}
		start, end, ok := dates.Clip(r.StartDate, r.EndDate, startBound, endBound)
		if !ok {
			continue
		}
		for _, d := range dates.Range(start, end) {
			dayStatus[d] = r.Status
		}
	}

	// per-day rows override everything
	for _, r := range rows {
		if r.Kind != models.AvailabilityKindDay {
			continue
		}
		if r.Day < startBound || r.Day > endBound {
			continue
		}
		dayStatus[r.Day] = r.Status
	}

	entries := make([]DayEntry, 0, len(dayStatus))
	for d, s := range dayStatus {
		entries = append(entries, DayEntry{Day: d, UserID: userID, Status: s})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Day < entries[j].Day })
	return entries
}

// NormalizeAll normalizes every user's rows, restricted to the given user
// set so departed travelers' stale rows do not pollute results. Output is
// ordered by (user, day) for determinism.
func NormalizeAll(rows []models.Availability, startBound, endBound string, userIDs []uint) []DayEntry {
	include := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		include[id] = true
	}

	byUser := make(map[uint][]models.Availability)
	for _, r := range rows {
		if !include[r.UserID] {
			continue
		}
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	ordered := make([]uint, 0, len(byUser))
	for id := range byUser {
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	var entries []DayEntry
	for _, id := range ordered {
		entries = append(entries, NormalizeUser(byUser[id], startBound, endBound)...)
	}
	return entries
}
