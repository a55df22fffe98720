package ohlcv

import (
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/errs"
	"github.com/jsj9346/screener/internal/market"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/rs/zerolog"
)

// Source is the subset of the brokerage client the collector depends on,
// narrowed to an interface so tests can substitute a fake without a live
// HTTP server.
type Source interface {
	GetOHLCV(ticker string, region domain.Region, days int) ([]domain.OHLCVBar, error)
}

// Collector runs the gap-classified fetch/indicator/persist loop over a
// list of tickers for one region, protected by the two circuit breakers
// spec §4.5 defines.
type Collector struct {
	source  Source
	ohlcv   *repository.OHLCVRepository
	breaker *repository.CircuitBreakerRepository
	log     zerolog.Logger
}

func NewCollector(source Source, ohlcvRepo *repository.OHLCVRepository, breakerRepo *repository.CircuitBreakerRepository, log zerolog.Logger) *Collector {
	return &Collector{source: source, ohlcv: ohlcvRepo, breaker: breakerRepo, log: log.With().Str("component", "ohlcv").Logger()}
}

// Result summarizes one ticker's outcome within a run.
type Result struct {
	Ticker  string
	Skipped bool
	Mocked  bool
	Err     error
}

// Run collects bars for every ticker in region, enforcing the consecutive-
// failure abort and the failure-rate mock-mode fallback across the whole
// batch.
func (c *Collector) Run(region domain.Region, tickers []string) ([]Result, error) {
	state := &breakerState{}
	results := make([]Result, 0, len(tickers))
	now := time.Now().UTC()
	mostRecent := market.MostRecentTradingDay(region, now)

	for _, ticker := range tickers {
		res := Result{Ticker: ticker}

		lastDate, hasPrior, err := c.ohlcv.LastBarDate(ticker, region, domain.TimeframeDaily)
		if err != nil {
			res.Err = err
			state.recordFailure()
			results = append(results, res)
			if state.shouldAbort() {
				return results, c.abort(region, state)
			}
			continue
		}

		strat, fetchDays := classifyGap(hasPrior, lastDate, mostRecent)
		if strat == strategySkip {
			res.Skipped = true
			results = append(results, res)
			continue
		}

		var fresh []domain.OHLCVBar
		if state.mockMode {
			res.Mocked = true
			basePrice := 100.0
			if hasPrior {
				if existing, _ := c.ohlcv.Latest(ticker, region, domain.TimeframeDaily, 1); len(existing) == 1 {
					basePrice = existing[0].Close
				}
			}
			fresh = mockBars(ticker, region, fetchDays, basePrice)
		} else {
			fresh, err = c.source.GetOHLCV(ticker, region, fetchDays)
			if err != nil {
				res.Err = err
				state.recordFailure()
				results = append(results, res)
				if state.shouldAbort() {
					return results, c.abort(region, state)
				}
				c.checkMockModeTripped(state, region)
				continue
			}
		}
		state.recordSuccess()

		existing, err := c.ohlcv.Latest(ticker, region, domain.TimeframeDaily, fullCollectionDays)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		merged := mergeDedup(existing, fresh)
		recomputed := computeIndicators(merged)
		if err := c.ohlcv.UpsertBatch(recomputed); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		results = append(results, res)
	}

	return results, nil
}

func (c *Collector) checkMockModeTripped(state *breakerState, region domain.Region) bool {
	if !state.checkMockMode() {
		return false
	}
	rate := float64(state.totalFailed) / float64(state.totalAttempted)
	c.log.Warn().Str("region", string(region)).Float64("failure_rate", rate).Msg("ohlcv collector switching to mock mode")
	if err := c.breaker.Record(domain.CircuitBreakerLog{
		TriggeredAt: time.Now().UTC(), Breaker: "ohlcv_failure_rate", TriggerValue: rate,
		LimitValue: failureRateLimit, Reason: fmt.Sprintf("failure rate %.2f over %d tickers", rate, state.totalAttempted),
		ActionTaken: "switched to mock mode",
	}); err != nil {
		c.log.Warn().Err(err).Msg("failed to record circuit breaker trip")
	}
	return true
}

func (c *Collector) abort(region domain.Region, state *breakerState) error {
	if err := c.breaker.Record(domain.CircuitBreakerLog{
		TriggeredAt: time.Now().UTC(), Breaker: "ohlcv_consecutive_failures",
		TriggerValue: float64(state.consecutiveFailures), LimitValue: consecutiveFailureLimit,
		Reason: "consecutive ticker failures reached abort threshold", ActionTaken: "aborted run",
	}); err != nil {
		c.log.Warn().Err(err).Msg("failed to record circuit breaker trip")
	}
	return errs.New(errs.CircuitBreakerTripped, "ohlcv.Collector.Run", fmt.Sprintf("aborted after %d consecutive failures in %s", state.consecutiveFailures, region))
}

// ApplyRetention deletes, for every ticker, bars dated more than days
// calendar days before now.
func (c *Collector) ApplyRetention(days int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	return c.ohlcv.ApplyRetention(cutoff)
}
