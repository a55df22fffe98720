package ohlcv

import (
	"sort"

	"github.com/jsj9346/screener/internal/domain"
)

// mergeDedup combines existing stored bars with a freshly fetched tail,
// keyed by date; fresh wins on overlap since it reflects the latest
// upstream correction. The result is sorted ascending, the order
// computeIndicators expects.
func mergeDedup(existing, fresh []domain.OHLCVBar) []domain.OHLCVBar {
	byDate := make(map[string]domain.OHLCVBar, len(existing)+len(fresh))
	for _, b := range existing {
		byDate[b.Date.Format("2006-01-02")] = b
	}
	for _, b := range fresh {
		byDate[b.Date.Format("2006-01-02")] = b
	}
	out := make([]domain.OHLCVBar, 0, len(byDate))
	for _, b := range byDate {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
