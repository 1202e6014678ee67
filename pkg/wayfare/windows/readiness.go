package windows

// Readiness gates whether a leader may elevate a window to a binding
// proposal without an override.
type Readiness struct {
	SupportCount int     `json:"support_count"` // supporters who are active travelers
	ActiveCount  int     `json:"active_count"`
	Ratio        float64 `json:"ratio"`
	Threshold    float64 `json:"threshold"`
	Ready        bool    `json:"ready"`
}

// ComputeReadiness counts supporters among the current active travelers,
// so support from departed members does not count toward the threshold.
func ComputeReadiness(supporterIDs, activeIDs []uint, threshold float64) Readiness {
	active := make(map[uint]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}

	count := 0
	for _, id := range supporterIDs {
		if active[id] {
			count++
		}
	}

	r := Readiness{
		SupportCount: count,
		ActiveCount:  len(activeIDs),
		Threshold:    threshold,
	}
	if r.ActiveCount > 0 {
		r.Ratio = float64(count) / float64(r.ActiveCount)
	}
	r.Ready = r.ActiveCount > 0 && r.Ratio >= threshold
	return r
}
