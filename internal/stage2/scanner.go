package stage2

import (
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/rs/zerolog"
)

// weight budgets per spec §4.7: Macro 25, Structural 45, Micro 30.
func defaultLayers() []layer {
	return []layer{
		{name: "macro", modules: []Module{
			marketRegimeModule{weight: 9},
			volumeProfileModule{weight: 8},
			priceActionModule{weight: 8},
		}},
		{name: "structural", modules: []Module{
			stageAnalysisModule{weight: 15},
			movingAverageModule{weight: 15},
			relativeStrengthModule{weight: 15},
		}},
		{name: "micro", modules: []Module{
			patternRecognitionModule{weight: 10},
			volumeSpikeModule{weight: 10},
			momentumModule{weight: 10},
		}},
	}
}

// Scanner runs the three-layer scoring engine over stage1 survivors.
type Scanner struct {
	stage1 *repository.Stage1Repository
	stage2 *repository.Stage2Repository
	ohlcv  *repository.OHLCVRepository
	layers []layer
	log    zerolog.Logger
}

func NewScanner(stage1 *repository.Stage1Repository, stage2 *repository.Stage2Repository, ohlcv *repository.OHLCVRepository, log zerolog.Logger) *Scanner {
	return &Scanner{
		stage1: stage1, stage2: stage2, ohlcv: ohlcv,
		layers: defaultLayers(), log: log.With().Str("component", "stage2").Logger(),
	}
}

// Run scores every stage1 passer for (region, filterDate) and persists
// one stage2 row per ticker, stamped with the given cacheTimestamp.
func (s *Scanner) Run(region domain.Region, filterDate, cacheTimestamp time.Time) ([]domain.Stage2Entry, error) {
	passers, err := s.stage1.PassedOn(region, filterDate)
	if err != nil {
		return nil, fmt.Errorf("stage2: load stage1 passers: %w", err)
	}

	entries := make([]domain.Stage2Entry, 0, len(passers))
	for _, p := range passers {
		start := time.Now()
		bars, err := s.ohlcv.Latest(p.Ticker, region, domain.TimeframeDaily, 260)
		if err != nil {
			s.log.Warn().Err(err).Str("ticker", p.Ticker).Msg("failed to load history for stage2 scoring")
			continue
		}
		entry := s.score(p.Ticker, region, bars, cacheTimestamp)
		entry.ExecutionTimeMs = time.Since(start).Milliseconds()

		if err := s.stage2.Insert(entry); err != nil {
			return nil, fmt.Errorf("stage2: persist %s: %w", p.Ticker, err)
		}
		entries = append(entries, entry)
	}

	s.log.Info().Str("region", string(region)).Int("scored", len(entries)).Msg("stage2 run complete")
	return entries, nil
}

// score evaluates every module across all three layers for one ticker and
// classifies the total into a recommendation and dominant pattern.
func (s *Scanner) score(ticker string, region domain.Region, bars []domain.OHLCVBar, cacheTimestamp time.Time) domain.Stage2Entry {
	var scores []domain.ModuleScore
	total := 0
	for _, l := range s.layers {
		for _, m := range l.modules {
			points, explanation := m.Score(bars)
			if points > m.MaxPoints() {
				points = m.MaxPoints()
			}
			if points < 0 {
				points = 0
			}
			scores = append(scores, domain.ModuleScore{
				Name: m.Name(), Points: points, MaxPoints: m.MaxPoints(), Explanation: explanation,
			})
			total += points
		}
	}

	patternName, patternConfidence := detectPattern(bars)

	return domain.Stage2Entry{
		CacheTimestamp:    cacheTimestamp,
		Ticker:            ticker,
		Region:            region,
		MarketRegime:      classifyMarketRegime(bars),
		VolatilityRegime:  classifyVolatilityRegime(bars),
		Recommendation:    classify(total),
		DetectedPattern:   patternName,
		PatternConfidence: patternConfidence,
		ModuleScores:      scores,
		TotalScore:        total,
	}
}

// classify maps a total score to a recommendation per spec §4.7:
// BUY >= 70, WATCH in [50, 70), AVOID otherwise.
func classify(total int) domain.Recommendation {
	switch {
	case total >= 70:
		return domain.RecommendationBuy
	case total >= 50:
		return domain.RecommendationWatch
	default:
		return domain.RecommendationAvoid
	}
}
