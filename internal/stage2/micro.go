package stage2

import (
	"fmt"

	"github.com/jsj9346/screener/internal/domain"
)

// patternRecognitionModule scores the confidence of the dominant detected
// pattern, reusing the same detector the persisted DetectedPattern field
// is computed from.
type patternRecognitionModule struct{ weight int }

func (m patternRecognitionModule) Name() string   { return "pattern_recognition" }
func (m patternRecognitionModule) MaxPoints() int { return m.weight }
func (m patternRecognitionModule) Score(bars []domain.OHLCVBar) (int, string) {
	name, confidence := detectPattern(bars)
	if name == PatternNone {
		return 0, "no dominant chart pattern detected"
	}
	points := int(confidence * float64(m.weight))
	return points, fmt.Sprintf("%s pattern at %.0f%% confidence", name, confidence*100)
}

// volumeSpikeModule rewards the most recent session's volume ratio
// against its 20-bar average, independent of stage1's pass/fail spike
// gate which only checks the threshold is crossed.
type volumeSpikeModule struct{ weight int }

func (m volumeSpikeModule) Name() string   { return "volume_spike" }
func (m volumeSpikeModule) MaxPoints() int { return m.weight }
func (m volumeSpikeModule) Score(bars []domain.OHLCVBar) (int, string) {
	if len(bars) == 0 {
		return 0, "no bars"
	}
	last := bars[len(bars)-1]
	if last.VolumeMA20 == nil || *last.VolumeMA20 == 0 {
		return 0, "missing volume_ma20"
	}
	ratio := float64(last.Volume) / *last.VolumeMA20
	switch {
	case ratio >= 2:
		return m.weight, fmt.Sprintf("volume %.1fx 20-day average", ratio)
	case ratio >= 1.5:
		return m.weight * 2 / 3, fmt.Sprintf("volume %.1fx 20-day average", ratio)
	case ratio >= 1:
		return m.weight / 3, fmt.Sprintf("volume %.1fx 20-day average", ratio)
	default:
		return 0, fmt.Sprintf("volume %.1fx 20-day average, below baseline", ratio)
	}
}

// momentumModule scores the RSI-14 reading against a constructive band,
// penalizing both exhaustion (overbought) and weakness (oversold).
type momentumModule struct{ weight int }

func (m momentumModule) Name() string   { return "momentum" }
func (m momentumModule) MaxPoints() int { return m.weight }
func (m momentumModule) Score(bars []domain.OHLCVBar) (int, string) {
	if len(bars) == 0 {
		return 0, "no bars"
	}
	last := bars[len(bars)-1]
	if last.RSI14 == nil {
		return 0, "missing RSI-14"
	}
	rsi := *last.RSI14
	switch {
	case rsi >= 55 && rsi <= 70:
		return m.weight, fmt.Sprintf("RSI %.1f in constructive momentum band", rsi)
	case rsi > 70:
		return m.weight / 3, fmt.Sprintf("RSI %.1f overbought", rsi)
	case rsi >= 45:
		return m.weight * 2 / 3, fmt.Sprintf("RSI %.1f neutral", rsi)
	default:
		return 0, fmt.Sprintf("RSI %.1f weak", rsi)
	}
}
