package windows

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/wayfare/wayfare/pkg/wayfare/dates"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
)

// Similarity scores how alike two windows are on a [0,1] scale. When both
// windows carry exact dates the score is the Jaccard overlap of their day
// sets; source-text similarity (normalized edit distance) is used alongside,
// and the larger of the two wins. Unstructured windows compare by text only.
func Similarity(a, b models.DateWindow) float64 {
	var dateScore float64
	if hasDates(a) && hasDates(b) {
		overlap := dates.OverlapDays(a.StartDate, a.EndDate, b.StartDate, b.EndDate)
		union := dates.SpanDays(a.StartDate, a.EndDate) + dates.SpanDays(b.StartDate, b.EndDate) - overlap
		if union > 0 {
			dateScore = float64(overlap) / float64(union)
		}
	}
	textScore := textSimilarity(a.SourceText, b.SourceText)
	return max(dateScore, textScore)
}

// MostSimilar returns the trip window most similar to the candidate, with
// its score; nil when there are no windows to compare.
func MostSimilar(existing []models.DateWindow, candidate models.DateWindow) (*models.DateWindow, float64) {
	var best *models.DateWindow
	bestScore := -1.0
	for i := range existing {
		score := Similarity(existing[i], candidate)
		if score > bestScore {
			best = &existing[i]
			bestScore = score
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestScore
}

func hasDates(w models.DateWindow) bool {
	return w.StartDate != "" && w.EndDate != ""
}

func textSimilarity(a, b string) float64 {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	longest := max(len(a), len(b))
	return 1 - float64(dist)/float64(longest)
}
