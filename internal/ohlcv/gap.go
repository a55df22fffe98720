package ohlcv

import "time"

// strategy is the gap-classification outcome for one ticker (spec §4.5's
// table).
type strategy int

const (
	strategySkip strategy = iota
	strategyOneDay
	strategyIncremental
	strategyFull
)

const (
	fullCollectionDays = 250
	incrementalBuffer  = 50
	incrementalCapDays = 250
)

// classifyGap maps (hasPrior data, last stored bar date, most recent
// trading day) to a fetch strategy and the number of trailing days to
// request from the brokerage client. Both the one-day and incremental
// strategies use the same gap+50-buffer formula, capped at 250 (ported
// from kis_data_collector.py's `count = min(gap_days + 50, 250)`, which
// applies uniformly regardless of which of the two non-skip strategies
// the gap fell into).
func classifyGap(hasPrior bool, lastBarDate, mostRecentTradingDay time.Time) (strategy, int) {
	if !hasPrior {
		return strategyFull, fullCollectionDays
	}
	gapDays := int(mostRecentTradingDay.Sub(lastBarDate).Hours() / 24)
	days := gapDays + incrementalBuffer
	if days > incrementalCapDays {
		days = incrementalCapDays
	}
	switch {
	case gapDays <= 0:
		return strategySkip, 0
	case gapDays == 1:
		return strategyOneDay, days
	default:
		return strategyIncremental, days
	}
}
