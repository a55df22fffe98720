package stage2

import (
	"fmt"

	"github.com/jsj9346/screener/internal/domain"
)

// stageAnalysisModule approximates Weinstein stage analysis: stage 2
// (advancing) requires price above a rising MA60.
type stageAnalysisModule struct{ weight int }

func (m stageAnalysisModule) Name() string   { return "stage_analysis" }
func (m stageAnalysisModule) MaxPoints() int { return m.weight }
func (m stageAnalysisModule) Score(bars []domain.OHLCVBar) (int, string) {
	if len(bars) < 21 {
		return 0, "insufficient history for stage analysis"
	}
	last := bars[len(bars)-1]
	prior := bars[len(bars)-21]
	if last.MA60 == nil || prior.MA60 == nil {
		return 0, "missing MA60"
	}
	rising := *last.MA60 > *prior.MA60
	above := last.Close > *last.MA60
	switch {
	case rising && above:
		return m.weight, "stage 2 advance: price above rising MA60"
	case above:
		return m.weight / 2, "price above MA60 but MA60 flat or falling"
	default:
		return 0, "price below MA60, not in an advancing stage"
	}
}

// movingAverageModule scores the tightness and direction of the MA stack
// beyond the pass/fail alignment already enforced in stage1.
type movingAverageModule struct{ weight int }

func (m movingAverageModule) Name() string   { return "moving_average" }
func (m movingAverageModule) MaxPoints() int { return m.weight }
func (m movingAverageModule) Score(bars []domain.OHLCVBar) (int, string) {
	if len(bars) == 0 {
		return 0, "no bars"
	}
	last := bars[len(bars)-1]
	if last.MA5 == nil || last.MA20 == nil || last.MA60 == nil {
		return 0, "missing moving averages"
	}
	spread := (*last.MA5 - *last.MA60) / *last.MA60
	switch {
	case last.MA120 != nil && last.MA200 != nil && *last.MA5 > *last.MA20 && *last.MA20 > *last.MA60 && *last.MA60 > *last.MA120 && *last.MA120 > *last.MA200:
		return m.weight, "full moving-average stack aligned bullish"
	case spread > 0:
		return m.weight * 2 / 3, fmt.Sprintf("short-term averages above MA60 (spread %.1f%%)", spread*100)
	default:
		return 0, "short-term averages not leading MA60"
	}
}

// relativeStrengthModule scores the ticker's own 63-bar (about 3-month)
// return against fixed thresholds, a proxy for relative strength absent a
// benchmark series in the pipeline.
type relativeStrengthModule struct{ weight int }

func (m relativeStrengthModule) Name() string   { return "relative_strength" }
func (m relativeStrengthModule) MaxPoints() int { return m.weight }
func (m relativeStrengthModule) Score(bars []domain.OHLCVBar) (int, string) {
	if len(bars) < 63 {
		return 0, "insufficient history for relative strength"
	}
	last := bars[len(bars)-1].Close
	quarter := bars[len(bars)-63].Close
	if quarter == 0 {
		return 0, "invalid baseline price"
	}
	ret := (last - quarter) / quarter
	switch {
	case ret > 0.25:
		return m.weight, fmt.Sprintf("strong 3-month return (+%.0f%%)", ret*100)
	case ret > 0.05:
		return m.weight * 2 / 3, fmt.Sprintf("positive 3-month return (+%.0f%%)", ret*100)
	case ret > 0:
		return m.weight / 3, fmt.Sprintf("marginal 3-month return (+%.1f%%)", ret*100)
	default:
		return 0, fmt.Sprintf("negative 3-month return (%.0f%%)", ret*100)
	}
}
