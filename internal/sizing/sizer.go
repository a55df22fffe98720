// Package sizing implements C10: the fractional-Kelly position sizer that
// turns a Stage-2 score into a recommended position size.
package sizing

import (
	"fmt"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/stage2"
)

// RiskProfile scales how much of the full Kelly fraction a sizing request
// is allowed to take.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "CONSERVATIVE"
	ProfileModerate     RiskProfile = "MODERATE"
	ProfileAggressive   RiskProfile = "AGGRESSIVE"
)

// fractionalKellyScalar returns f in f*kelly_fraction per spec's glossary
// entry for Fractional Kelly (f ∈ {0.25, 0.5, 1.0}).
func fractionalKellyScalar(profile RiskProfile) float64 {
	switch profile {
	case ProfileConservative:
		return 0.25
	case ProfileAggressive:
		return 1.0
	default:
		return 0.5
	}
}

// patternStats holds the historical win-rate and win/loss ratio backing a
// named chart pattern's Kelly computation. These are editorial constants,
// not fitted online, since the pipeline has no trade-outcome history of
// its own to calibrate against yet.
type patternStats struct {
	winRate    float64
	winLossRatio float64
}

var defaultPatternStats = map[string]patternStats{
	stage2.PatternVCP:         {winRate: 0.62, winLossRatio: 2.2},
	stage2.PatternCupHandle:   {winRate: 0.58, winLossRatio: 2.0},
	stage2.PatternStage2Break: {winRate: 0.55, winLossRatio: 1.8},
}

// fallbackStats backs any pattern (including PatternNone) without a named
// entry above, using the values from spec scenario 5 (mid-quality BUY).
var fallbackStats = patternStats{winRate: 0.60, winLossRatio: 2.0}

const fallbackPositionPct = 5.0

// Result is the sizer's output contract.
type Result struct {
	RecommendedPositionPct float64
	PatternType            string
	Reasoning              string
}

// Sizer computes fractional-Kelly position sizes clipped by a portfolio
// template's max_single_position_percent.
type Sizer struct{}

func NewSizer() *Sizer { return &Sizer{} }

// Size computes a recommended position percentage for entry under
// profile, clipped to maxSinglePositionPct. Any failure in the Kelly
// computation itself (not in the clip) falls back to a conservative 5%.
func (s *Sizer) Size(entry domain.Stage2Entry, profile RiskProfile, maxSinglePositionPct float64) Result {
	kelly, err := kellyFraction(entry.DetectedPattern)
	if err != nil {
		return Result{RecommendedPositionPct: fallbackPositionPct, PatternType: entry.DetectedPattern, Reasoning: "fallback"}
	}

	quality := qualityMultiplier(entry)
	fractional := fractionalKellyScalar(profile)
	pct := kelly * quality * fractional * 100

	if pct < 0 {
		return Result{RecommendedPositionPct: fallbackPositionPct, PatternType: entry.DetectedPattern, Reasoning: "fallback"}
	}

	reasoning := fmt.Sprintf("kelly=%.4f quality=%.2f fractional=%.2f profile=%s", kelly, quality, fractional, profile)
	if pct > maxSinglePositionPct {
		reasoning = fmt.Sprintf("%s, clipped from %.2f%% to max_single_position_percent", reasoning, pct)
		pct = maxSinglePositionPct
	}

	return Result{RecommendedPositionPct: pct, PatternType: entry.DetectedPattern, Reasoning: reasoning}
}

// kellyFraction computes the full Kelly fraction f = (p*b - q) / b for the
// pattern's historical win-rate p and win/loss ratio b, where q = 1 - p.
func kellyFraction(pattern string) (float64, error) {
	stats, ok := defaultPatternStats[pattern]
	if !ok {
		stats = fallbackStats
	}
	if stats.winLossRatio <= 0 {
		return 0, fmt.Errorf("sizing: non-positive win/loss ratio for pattern %q", pattern)
	}
	p := stats.winRate
	q := 1 - p
	f := (p*stats.winLossRatio - q) / stats.winLossRatio
	if f != f { // NaN guard
		return 0, fmt.Errorf("sizing: kelly computation produced NaN for pattern %q", pattern)
	}
	return f, nil
}

// qualityMultiplier derives a 0.5-1.5 scalar, 0.5 plus the ratio of
// earned to possible points summed over every Stage-2 module score (1.0
// when there are no module scores).
func qualityMultiplier(entry domain.Stage2Entry) float64 {
	if len(entry.ModuleScores) == 0 {
		return 1.0
	}
	var earned, possible int
	for _, m := range entry.ModuleScores {
		earned += m.Points
		possible += m.MaxPoints
	}
	if possible == 0 {
		return 1.0
	}
	ratio := float64(earned) / float64(possible)
	return 0.5 + ratio
}
