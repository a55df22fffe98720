package stage1

import (
	"github.com/jsj9346/screener/internal/domain"
)

// checkHistory enforces the minimum-bars and maximum-gap preconditions
// before a ticker is even eligible for the filter chain. bars must be
// sorted oldest-to-newest. A calendar gap between consecutive bars wider
// than MaxGapDays fails the ticker outright, regardless of how much
// history surrounds it, since it cannot be distinguished from a halted
// or delisted ticker.
func checkHistory(bars []domain.OHLCVBar, rules Rules) (ok bool, reason string) {
	if len(bars) < rules.MinHistoryBars {
		return false, "insufficient OHLCV history"
	}

	prev := bars[0].Date
	for i := 1; i < len(bars); i++ {
		gapDays := int(bars[i].Date.Sub(prev).Hours() / 24)
		if gapDays > rules.MaxGapDays {
			return false, "gap exceeds maximum tolerated days"
		}
		prev = bars[i].Date
	}
	return true, ""
}
