// Package stage1 implements C8: the technical filter chain that narrows
// Stage-0 passers to a technically-sound candidate set.
package stage1

import (
	"fmt"

	"github.com/jsj9346/screener/internal/domain"
)

// Rules holds the tunable thresholds for the filter chain (spec §4.6).
type Rules struct {
	RSIMin         float64
	RSIMax         float64
	VolumeRatioMin float64
	MinHistoryBars int
	MaxGapDays     int
}

// DefaultRules match the spec's stated defaults.
func DefaultRules() Rules {
	return Rules{
		RSIMin: 30, RSIMax: 70, VolumeRatioMin: 1.5,
		MinHistoryBars: 250, MaxGapDays: 60,
	}
}

// filterOutcome is the result of running the chain on one ticker's most
// recent bar.
type filterOutcome struct {
	passed bool
	reason string
	score  float64
}

// evaluateChain runs the five-filter chain on bar, the most recent entry
// in a history that has already passed the minimum-bars/max-gap
// preconditions. Any failure short-circuits with that filter's reason.
func evaluateChain(bar domain.OHLCVBar, rules Rules) filterOutcome {
	if bar.MA5 == nil || bar.MA20 == nil || bar.MA60 == nil {
		return filterOutcome{passed: false, reason: "insufficient moving-average history"}
	}

	maScore, maPass, maReason := maAlignment(bar)
	if !maPass {
		return filterOutcome{passed: false, reason: maReason}
	}

	if bar.RSI14 == nil {
		return filterOutcome{passed: false, reason: "missing RSI-14"}
	}
	rsi := *bar.RSI14
	if rsi < rules.RSIMin {
		return filterOutcome{passed: false, reason: fmt.Sprintf("RSI 과매도 oversold (%.1f)", rsi)}
	}
	if rsi > rules.RSIMax {
		return filterOutcome{passed: false, reason: fmt.Sprintf("RSI 과매수 overbought (%.1f)", rsi)}
	}
	rsiScore := 100 - 2*abs(rsi-50)

	if bar.MACD == nil || bar.MACDSignal == nil || bar.MACDHist == nil {
		return filterOutcome{passed: false, reason: "missing MACD"}
	}
	if !(*bar.MACD > *bar.MACDSignal && *bar.MACDHist > 0) {
		return filterOutcome{passed: false, reason: "MACD not in bullish posture"}
	}

	if bar.VolumeMA20 == nil || *bar.VolumeMA20 == 0 {
		return filterOutcome{passed: false, reason: "missing volume_ma20"}
	}
	spike := float64(bar.Volume) >= *bar.VolumeMA20*rules.VolumeRatioMin
	if !spike {
		return filterOutcome{passed: false, reason: fmt.Sprintf("volume %d below %vx of MA20 %.0f", bar.Volume, rules.VolumeRatioMin, *bar.VolumeMA20)}
	}

	if !(bar.Close > *bar.MA20) {
		return filterOutcome{passed: false, reason: "close not above MA20"}
	}

	composite := maScore*0.30 + rsiScore*0.25 + 100*0.20 + 100*0.15 + 100*0.10
	return filterOutcome{passed: true, reason: "", score: composite}
}

// maAlignment scores the moving-average stack: full alignment scores 100,
// the relaxed 3-MA alignment scores 75, anything else fails the chain.
func maAlignment(bar domain.OHLCVBar) (score float64, passed bool, reason string) {
	ma5, ma20, ma60 := *bar.MA5, *bar.MA20, *bar.MA60
	if bar.MA120 != nil && bar.MA200 != nil {
		ma120, ma200 := *bar.MA120, *bar.MA200
		if ma5 > ma20 && ma20 > ma60 && ma60 > ma120 && ma120 > ma200 {
			return 100, true, ""
		}
	}
	if ma5 > ma20 && ma20 > ma60 {
		return 75, true, ""
	}
	return 0, false, "moving averages not aligned (need ma5>ma20>ma60 at minimum)"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
