package stage1

import (
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/blacklist"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/rs/zerolog"
)

// Scanner runs the stage1 technical filter chain over the tickers that
// passed stage0, persisting the result and an execution log row.
type Scanner struct {
	stage0  *repository.Stage0Repository
	stage1  *repository.Stage1Repository
	ohlcv   *repository.OHLCVRepository
	execLog *repository.ExecutionLogRepository
	bl      *blacklist.Manager
	rules   Rules
	log     zerolog.Logger
}

func NewScanner(
	stage0 *repository.Stage0Repository,
	stage1 *repository.Stage1Repository,
	ohlcv *repository.OHLCVRepository,
	execLog *repository.ExecutionLogRepository,
	bl *blacklist.Manager,
	log zerolog.Logger,
) *Scanner {
	return &Scanner{
		stage0: stage0, stage1: stage1, ohlcv: ohlcv, execLog: execLog, bl: bl,
		rules: DefaultRules(), log: log.With().Str("component", "stage1").Logger(),
	}
}

// WithRules overrides the default filter thresholds, used by tests and
// region-specific configuration.
func (s *Scanner) WithRules(rules Rules) *Scanner {
	s.rules = rules
	return s
}

// Run evaluates every stage0 passer for region/filterDate, writes the
// replaced filter_cache_stage1 snapshot and a stage=1 execution log row.
func (s *Scanner) Run(region domain.Region, filterDate time.Time) ([]domain.Stage1Entry, error) {
	start := time.Now()

	passers, err := s.stage0.PassedOn(region, filterDate)
	if err != nil {
		return nil, fmt.Errorf("stage1: load stage0 passers: %w", err)
	}
	inputCount := len(passers)

	candidates := make([]domain.Ticker, 0, len(passers))
	byTicker := make(map[string]domain.Stage0Entry, len(passers))
	for _, e := range passers {
		candidates = append(candidates, domain.Ticker{Symbol: e.Ticker, Region: e.Region, Name: e.Name, Exchange: e.Exchange, Currency: e.Currency})
		byTicker[e.Ticker] = e
	}

	filtered, err := s.bl.FilterTickers(candidates, region)
	if err != nil {
		return nil, fmt.Errorf("stage1: blacklist filter: %w", err)
	}

	entries := make([]domain.Stage1Entry, 0, len(filtered))
	for _, t := range filtered {
		entry := s.evaluate(t.Symbol, region, filterDate, byTicker[t.Symbol])
		entries = append(entries, entry)
	}

	if err := s.stage1.ReplaceForDate(region, filterDate, entries); err != nil {
		return nil, fmt.Errorf("stage1: persist: %w", err)
	}

	passed := 0
	for _, e := range entries {
		if e.Passed {
			passed++
		}
	}

	if err := s.execLog.Record(domain.FilterExecutionLogEntry{
		ExecutionDate: start, Stage: 1, Region: region,
		InputCount: inputCount, OutputCount: passed, Elapsed: time.Since(start),
	}); err != nil {
		s.log.Warn().Err(err).Msg("failed to record stage1 execution log")
	}

	s.log.Info().Str("region", string(region)).Int("input", inputCount).Int("passed", passed).Msg("stage1 run complete")
	return entries, nil
}

// evaluate runs the precondition check and filter chain for a single
// ticker, always returning a Stage1Entry (passed or not) so callers get
// a full audit trail rather than a thinned-out result set.
func (s *Scanner) evaluate(ticker string, region domain.Region, filterDate time.Time, stage0 domain.Stage0Entry) domain.Stage1Entry {
	entry := domain.Stage1Entry{
		FilterDate: filterDate, Ticker: ticker, Region: region,
		CurrentPriceKRW: stage0.CurrentPriceKRW,
	}

	bars, err := s.ohlcv.Latest(ticker, region, domain.TimeframeDaily, s.rules.MinHistoryBars+30)
	if err != nil {
		entry.FilterReason = "failed to load OHLCV history"
		return entry
	}

	if ok, reason := checkHistory(bars, s.rules); !ok {
		entry.FilterReason = reason
		return entry
	}

	last := bars[len(bars)-1]
	outcome := evaluateChain(last, s.rules)
	entry.FilterReason = outcome.reason
	entry.Passed = outcome.passed
	entry.CompositeScore = outcome.score

	if last.MA5 != nil {
		entry.MA5 = *last.MA5
	}
	if last.MA20 != nil {
		entry.MA20 = *last.MA20
	}
	if last.MA60 != nil {
		entry.MA60 = *last.MA60
	}
	if last.RSI14 != nil {
		entry.RSI14 = *last.RSI14
	}
	entry.Week52HighKRW = week52High(bars)
	entry.Volume3DAvg = volumeAvg(bars, 3)
	entry.Volume10DAvg = volumeAvg(bars, 10)
	return entry
}

func week52High(bars []domain.OHLCVBar) float64 {
	window := bars
	if len(window) > 252 {
		window = window[len(window)-252:]
	}
	var high float64
	for _, b := range window {
		if b.High > high {
			high = b.High
		}
	}
	return high
}

func volumeAvg(bars []domain.OHLCVBar, n int) float64 {
	if len(bars) < n {
		n = len(bars)
	}
	if n == 0 {
		return 0
	}
	var sum int64
	for _, b := range bars[len(bars)-n:] {
		sum += b.Volume
	}
	return float64(sum) / float64(n)
}
