package deviation

import (
	"sort"

	"audit-remediation/internal/models"
)

// Rank returns a copy of deviations in descending priority order:
// severity level, score loss, business weight, critical first, then lower
// numeric mark (missing counts as 0). Item id breaks any remaining tie so the
// order is total.
func Rank(deviations []models.Deviation) []models.Deviation {
	ranked := make([]models.Deviation, len(deviations))
	copy(ranked, deviations)
	sort.SliceStable(ranked, func(i, j int) bool {
		return less(&ranked[i], &ranked[j])
	})
	return ranked
}

// Select returns the first n ranked deviations.
func Select(ranked []models.Deviation, n int) []models.Deviation {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

// less reports whether a ranks ahead of b.
func less(a, b *models.Deviation) bool {
	if a.SeverityLevel != b.SeverityLevel {
		return a.SeverityLevel > b.SeverityLevel
	}
	if a.ScoreLoss != b.ScoreLoss {
		return a.ScoreLoss > b.ScoreLoss
	}
	if a.BusinessPriorityWeight != b.BusinessPriorityWeight {
		return a.BusinessPriorityWeight > b.BusinessPriorityWeight
	}
	if a.IsCritical != b.IsCritical {
		return a.IsCritical
	}
	am, bm := markOrZero(a.NumericMark), markOrZero(b.NumericMark)
	if am != bm {
		return am < bm
	}
	if a.ItemID != b.ItemID {
		return a.ItemID < b.ItemID
	}
	return a.ResponseID < b.ResponseID
}

func markOrZero(m *float64) float64 {
	if m == nil {
		return 0
	}
	return *m
}
