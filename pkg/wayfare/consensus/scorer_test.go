package consensus

import (
	"testing"

	"github.com/wayfare/wayfare/pkg/wayfare/availability"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
)

func entry(user uint, day string, status models.AvailabilityStatus) availability.DayEntry {
	return availability.DayEntry{UserID: user, Day: day, Status: status}
}

func availableRange(user uint, days ...string) []availability.DayEntry {
	var entries []availability.DayEntry
	for _, d := range days {
		entries = append(entries, entry(user, d, models.AvailabilityAvailable))
	}
	return entries
}

func TestTopWindowsOverlap(t *testing.T) {
	// Two travelers overlapping on June 4-6; the 3-day window capturing the
	// most shared availability must win.
	var entries []availability.DayEntry
	entries = append(entries, availableRange(1, "2026-06-03", "2026-06-04", "2026-06-05", "2026-06-06")...)
	entries = append(entries, availableRange(2, "2026-06-04", "2026-06-05", "2026-06-06")...)

	windows := TopWindows(entries, "2026-06-01", "2026-06-10", 3)

	if len(windows) != TopN {
		t.Fatalf("Expected %d windows, got %d", TopN, len(windows))
	}
	best := windows[0]
	if best.StartDate != "2026-06-04" || best.EndDate != "2026-06-06" {
		t.Errorf("Expected best window 2026-06-04..2026-06-06, got %s..%s", best.StartDate, best.EndDate)
	}
	// both users available all 3 days
	if best.TotalScore != 6 {
		t.Errorf("Expected total score 6, got %f", best.TotalScore)
	}
	if best.Score != 1.0 {
		t.Errorf("Expected normalized score 1.0, got %f", best.Score)
	}
}

func TestTopWindowsMirrorTieBreaksToEarlierStart(t *testing.T) {
	// A available 06-03..06-05, B available 06-04..06-06: the two best
	// windows mirror each other at 5.0 and the earlier start wins.
	var entries []availability.DayEntry
	entries = append(entries, availableRange(1, "2026-06-03", "2026-06-04", "2026-06-05")...)
	entries = append(entries, availableRange(2, "2026-06-04", "2026-06-05", "2026-06-06")...)

	windows := TopWindows(entries, "2026-06-01", "2026-06-10", 3)

	if len(windows) != TopN {
		t.Fatalf("Expected %d windows, got %d", TopN, len(windows))
	}
	if windows[0].TotalScore != 5 || windows[1].TotalScore != 5 {
		t.Fatalf("Expected the top two windows to tie at 5, got %f and %f",
			windows[0].TotalScore, windows[1].TotalScore)
	}
	if windows[0].StartDate != "2026-06-03" || windows[1].StartDate != "2026-06-04" {
		t.Errorf("Expected tied windows ordered by start ascending, got %s then %s",
			windows[0].StartDate, windows[1].StartDate)
	}
}

func TestTopWindowsMaybeWeighting(t *testing.T) {
	entries := []availability.DayEntry{
		entry(1, "2026-06-01", models.AvailabilityAvailable),
		entry(1, "2026-06-02", models.AvailabilityMaybe),
		entry(1, "2026-06-03", models.AvailabilityUnavailable),
	}
	windows := TopWindows(entries, "2026-06-01", "2026-06-03", 3)

	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	if windows[0].TotalScore != 1.5 {
		t.Errorf("Expected total score 1.5 (1 + 0.5 + 0), got %f", windows[0].TotalScore)
	}
	if windows[0].Score != 0.5 {
		t.Errorf("Expected normalized score 0.5, got %f", windows[0].Score)
	}
}

func TestTopWindowsTieBreaksByStartDate(t *testing.T) {
	// Uniform availability makes every window tie; earliest start must win.
	entries := availableRange(1, "2026-06-01", "2026-06-02", "2026-06-03", "2026-06-04", "2026-06-05")
	windows := TopWindows(entries, "2026-06-01", "2026-06-05", 2)

	if windows[0].StartDate != "2026-06-01" {
		t.Errorf("Expected tie to break to earliest start, got %s", windows[0].StartDate)
	}
	for i := 1; i < len(windows); i++ {
		if windows[i].StartDate < windows[i-1].StartDate {
			t.Errorf("Expected ascending start order among ties, got %s before %s",
				windows[i-1].StartDate, windows[i].StartDate)
		}
	}
}

func TestTopWindowsInputOrderInvariant(t *testing.T) {
	forward := []availability.DayEntry{
		entry(1, "2026-06-02", models.AvailabilityAvailable),
		entry(2, "2026-06-03", models.AvailabilityMaybe),
		entry(1, "2026-06-04", models.AvailabilityAvailable),
	}
	reversed := []availability.DayEntry{forward[2], forward[1], forward[0]}

	a := TopWindows(forward, "2026-06-01", "2026-06-07", 2)
	b := TopWindows(reversed, "2026-06-01", "2026-06-07", 2)

	if len(a) != len(b) {
		t.Fatalf("Expected identical window counts, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Window %d differs across input orders: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestTopWindowsCoverage(t *testing.T) {
	entries := availableRange(1, "2026-06-01", "2026-06-02")
	windows := TopWindows(entries, "2026-06-01", "2026-06-03", 3)

	if len(windows) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(windows))
	}
	if windows[0].Coverage != 2.0/3.0 {
		t.Errorf("Expected coverage 2/3, got %f", windows[0].Coverage)
	}
}

func TestTopWindowsEmptyInputs(t *testing.T) {
	if w := TopWindows(nil, "2026-06-01", "2026-06-10", 3); w != nil {
		t.Errorf("Expected nil for no entries, got %v", w)
	}
	entries := availableRange(1, "2026-06-01")
	if w := TopWindows(entries, "2026-06-01", "2026-06-10", 0); w != nil {
		t.Errorf("Expected nil for zero duration, got %v", w)
	}
}

func TestTopWindowsDurationLongerThanBounds(t *testing.T) {
	entries := availableRange(1, "2026-06-01")
	if w := TopWindows(entries, "2026-06-01", "2026-06-03", 7); w != nil {
		t.Errorf("Expected no windows when duration exceeds bounds, got %v", w)
	}
}

func TestWindowKey(t *testing.T) {
	w := Window{StartDate: "2026-06-04", EndDate: "2026-06-06"}
	if w.Key() != "2026-06-04_2026-06-06" {
		t.Errorf("Expected key 2026-06-04_2026-06-06, got %s", w.Key())
	}
}
