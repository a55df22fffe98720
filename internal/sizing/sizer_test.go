package sizing

import (
	"testing"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/stage2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSize_MidQualityBUYMatchesWorkedExample reproduces spec scenario 5:
// win-rate 60%, win/loss 2.0, quality multiplier 1.0, fractional-Kelly
// 0.5, cap 15% -> clipped to 15%.
func TestSize_MidQualityBUYMatchesWorkedExample(t *testing.T) {
	entry := domain.Stage2Entry{
		DetectedPattern: "UNKNOWN_PATTERN",
		ModuleScores: []domain.ModuleScore{
			{Points: 50, MaxPoints: 100},
		},
	}
	sizer := NewSizer()
	result := sizer.Size(entry, ProfileModerate, 15.0)
	assert.InDelta(t, 15.0, result.RecommendedPositionPct, 0.01)
	assert.NotEqual(t, "fallback", result.Reasoning)
}

func TestSize_UnclippedKellyBelowCap(t *testing.T) {
	entry := domain.Stage2Entry{
		DetectedPattern: "UNKNOWN_PATTERN",
		ModuleScores:    []domain.ModuleScore{{Points: 50, MaxPoints: 100}},
	}
	sizer := NewSizer()
	result := sizer.Size(entry, ProfileConservative, 50.0)
	// full kelly 0.40 * quality 1.0 * fractional 0.25 = 0.10 -> 10%
	assert.InDelta(t, 10.0, result.RecommendedPositionPct, 0.01)
}

func TestSize_HigherQualityIncreasesSize(t *testing.T) {
	low := domain.Stage2Entry{DetectedPattern: "UNKNOWN_PATTERN", ModuleScores: []domain.ModuleScore{{Points: 30, MaxPoints: 100}}}
	high := domain.Stage2Entry{DetectedPattern: "UNKNOWN_PATTERN", ModuleScores: []domain.ModuleScore{{Points: 90, MaxPoints: 100}}}
	sizer := NewSizer()
	lowResult := sizer.Size(low, ProfileModerate, 100.0)
	highResult := sizer.Size(high, ProfileModerate, 100.0)
	assert.Greater(t, highResult.RecommendedPositionPct, lowResult.RecommendedPositionPct)
}

func TestSize_NamedPatternsUseTheirOwnStats(t *testing.T) {
	entry := domain.Stage2Entry{DetectedPattern: stage2.PatternVCP, ModuleScores: []domain.ModuleScore{{Points: 50, MaxPoints: 100}}}
	sizer := NewSizer()
	result := sizer.Size(entry, ProfileModerate, 100.0)
	require.Equal(t, stage2.PatternVCP, result.PatternType)
	assert.Greater(t, result.RecommendedPositionPct, 0.0)
}

func TestKellyFraction_UnknownPatternUsesFallbackStats(t *testing.T) {
	_, err := kellyFraction("bogus-pattern-with-no-stats-should-still-use-fallback")
	require.NoError(t, err)
}
