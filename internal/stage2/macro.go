package stage2

import (
	"fmt"

	"github.com/jsj9346/screener/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// marketRegimeModule classifies the trend regime from the z-score of the
// latest close against the mean and standard deviation of the trailing 60
// closes: full points above +0.5, half points above -0.5, none below.
type marketRegimeModule struct{ weight int }

func (m marketRegimeModule) Name() string    { return "market_regime" }
func (m marketRegimeModule) MaxPoints() int  { return m.weight }
func (m marketRegimeModule) Score(bars []domain.OHLCVBar) (int, string) {
	closes := closeSeries(bars, 60)
	if len(closes) < 20 {
		return 0, "insufficient history for regime read"
	}
	mean, std := stat.MeanStdDev(closes, nil)
	if std == 0 {
		return 0, "flat price history"
	}
	z := (closes[len(closes)-1] - mean) / std
	switch {
	case z > 0.5:
		return m.weight, fmt.Sprintf("uptrend regime (z=%.2f)", z)
	case z > -0.5:
		return m.weight / 2, fmt.Sprintf("neutral regime (z=%.2f)", z)
	default:
		return 0, fmt.Sprintf("downtrend regime (z=%.2f)", z)
	}
}

// classifyMarketRegime returns the persisted market_regime label, reusing
// the same z-score marketRegimeModule scores against.
func classifyMarketRegime(bars []domain.OHLCVBar) string {
	closes := closeSeries(bars, 60)
	if len(closes) < 20 {
		return "UNKNOWN"
	}
	mean, std := stat.MeanStdDev(closes, nil)
	if std == 0 {
		return "FLAT"
	}
	z := (closes[len(closes)-1] - mean) / std
	switch {
	case z > 0.5:
		return "UPTREND"
	case z > -0.5:
		return "NEUTRAL"
	default:
		return "DOWNTREND"
	}
}

// classifyVolatilityRegime buckets trailing ATR relative to price into
// LOW/NORMAL/HIGH bands.
func classifyVolatilityRegime(bars []domain.OHLCVBar) string {
	if len(bars) == 0 {
		return "UNKNOWN"
	}
	last := bars[len(bars)-1]
	if last.ATR14 == nil || last.Close == 0 {
		return "UNKNOWN"
	}
	ratio := *last.ATR14 / last.Close
	switch {
	case ratio < 0.015:
		return "LOW"
	case ratio < 0.035:
		return "NORMAL"
	default:
		return "HIGH"
	}
}

// volumeProfileModule rewards a rising volume trend over the lookback
// window, a signature of accumulation.
type volumeProfileModule struct{ weight int }

func (m volumeProfileModule) Name() string   { return "volume_profile" }
func (m volumeProfileModule) MaxPoints() int { return m.weight }
func (m volumeProfileModule) Score(bars []domain.OHLCVBar) (int, string) {
	if len(bars) < 20 {
		return 0, "insufficient history for volume profile"
	}
	window := bars[len(bars)-20:]
	first := avgVolume(window[:10])
	second := avgVolume(window[10:])
	if first == 0 {
		return 0, "no volume in early window"
	}
	growth := (second - first) / first
	switch {
	case growth > 0.2:
		return m.weight, fmt.Sprintf("volume accelerating (+%.0f%%)", growth*100)
	case growth > 0:
		return m.weight / 2, fmt.Sprintf("volume mildly rising (+%.0f%%)", growth*100)
	default:
		return 0, fmt.Sprintf("volume declining (%.0f%%)", growth*100)
	}
}

// priceActionModule scores recent candle structure: higher lows over the
// last five sessions reads as constructive.
type priceActionModule struct{ weight int }

func (m priceActionModule) Name() string   { return "price_action" }
func (m priceActionModule) MaxPoints() int { return m.weight }
func (m priceActionModule) Score(bars []domain.OHLCVBar) (int, string) {
	if len(bars) < 6 {
		return 0, "insufficient history for price action"
	}
	window := bars[len(bars)-5:]
	higherLows := 0
	for i := 1; i < len(window); i++ {
		if window[i].Low >= window[i-1].Low {
			higherLows++
		}
	}
	switch {
	case higherLows == 4:
		return m.weight, "consistent higher lows over last 5 sessions"
	case higherLows >= 2:
		return m.weight / 2, fmt.Sprintf("%d of 4 sessions held higher lows", higherLows)
	default:
		return 0, "lower lows dominate recent sessions"
	}
}

func closeSeries(bars []domain.OHLCVBar, n int) []float64 {
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func avgVolume(bars []domain.OHLCVBar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var sum int64
	for _, b := range bars {
		sum += b.Volume
	}
	return float64(sum) / float64(len(bars))
}
