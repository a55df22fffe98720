package stage0

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/blacklist"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/rs/zerolog"
)

// Scanner runs the Stage-0 pipeline for one region: source cascade, cache
// check, blacklist filter, rule evaluation, transactional persistence.
type Scanner struct {
	sources    []Source
	rules      FilterRules
	fx         *exchangeRateStore
	fxProvider FXProvider
	blacklist  *blacklist.Manager
	tickers    *repository.TickerRepository
	stage0     *repository.Stage0Repository
	execLog    *repository.ExecutionLogRepository
	log        zerolog.Logger
}

type Option func(*Scanner)

func WithFXProvider(p FXProvider) Option {
	return func(s *Scanner) { s.fxProvider = p }
}

func NewScanner(
	db *sql.DB,
	sources []Source,
	rules FilterRules,
	bl *blacklist.Manager,
	tickers *repository.TickerRepository,
	stage0Repo *repository.Stage0Repository,
	execLog *repository.ExecutionLogRepository,
	log zerolog.Logger,
	opts ...Option,
) *Scanner {
	s := &Scanner{
		sources:   sources,
		rules:     rules,
		fx:        &exchangeRateStore{db: db},
		blacklist: bl,
		tickers:   tickers,
		stage0:    stage0Repo,
		execLog:   execLog,
		log:       log.With().Str("component", "stage0").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the Stage-0 scan for region, returning the passed entries.
// It reuses a cached snapshot when one exists within TTL unless
// forceRefresh is set.
func (s *Scanner) Run(region domain.Region, forceRefresh bool) ([]domain.Stage0Entry, error) {
	now := time.Now().UTC()

	if !forceRefresh {
		if cached, ok, err := s.cachedSnapshot(region, now); err != nil {
			return nil, err
		} else if ok {
			s.log.Info().Str("region", string(region)).Int("entries", len(cached)).Msg("returning cached stage0 snapshot")
			return cached, nil
		}
	}

	start := time.Now()
	records, sourceName, err := s.fetchFromCascade(region)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("region", string(region)).Str("source", sourceName).Int("records", len(records)).Msg("stage0 source cascade resolved")

	records, err = s.filterBlacklisted(records, region)
	if err != nil {
		return nil, err
	}

	filterDate := now.Truncate(24 * time.Hour)
	entries := make([]domain.Stage0Entry, 0, len(records))
	for _, rec := range records {
		rateDate := filterDate
		rate, asOf, err := s.fx.rateToKRW(rec.Currency, now)
		if err != nil {
			rate, err = s.refreshRate(rec.Currency, now)
			if err != nil {
				s.log.Warn().Err(err).Str("ticker", rec.Ticker).Str("currency", string(rec.Currency)).Msg("skipping record with no exchange rate")
				continue
			}
			asOf = filterDate
		}
		rateDate = asOf

		marketCapKRW := rec.MarketCapLocal * rate
		tradingValueKRW := rec.TradingValueLocal * rate
		priceKRW := rec.ClosePrice * rate

		passed, reason := s.rules.evaluate(rec, marketCapKRW, tradingValueKRW)

		entry := domain.Stage0Entry{
			FilterDate:        filterDate,
			ExchangeRateDate:  rateDate,
			Ticker:            rec.Ticker,
			Region:            region,
			Name:              rec.Name,
			Exchange:          rec.Market,
			Currency:          rec.Currency,
			FilterReason:      reason,
			MarketCapKRW:      marketCapKRW,
			MarketCapLocal:    rec.MarketCapLocal,
			TradingValueKRW:   tradingValueKRW,
			TradingValueLocal: rec.TradingValueLocal,
			CurrentPriceKRW:   priceKRW,
			CurrentPriceLocal: rec.ClosePrice,
			ExchangeRateToKRW: rate,
			Passed:            passed,
		}
		entries = append(entries, entry)

		if err := s.tickers.Upsert(domain.Ticker{
			Symbol: rec.Ticker, Region: region, Name: rec.Name, Exchange: rec.Market,
			Currency: rec.Currency, AssetType: domain.AssetStock, LotSize: 1, IsActive: true,
		}); err != nil {
			return nil, fmt.Errorf("stage0: upsert ticker %s: %w", rec.Ticker, err)
		}
	}

	passedOnly := make([]domain.Stage0Entry, 0, len(entries))
	for _, e := range entries {
		if e.Passed {
			passedOnly = append(passedOnly, e)
		}
	}

	if err := s.stage0.ReplaceForDate(region, filterDate, passedOnly); err != nil {
		return nil, err
	}
	if err := s.execLog.Record(domain.FilterExecutionLogEntry{
		ExecutionDate: now,
		Stage:         0,
		Region:        region,
		InputCount:    len(records),
		OutputCount:   len(passedOnly),
		Elapsed:       time.Since(start),
	}); err != nil {
		return nil, err
	}

	return passedOnly, nil
}

// cachedSnapshot returns a prior run's result if its execution log entry is
// within the region's TTL.
func (s *Scanner) cachedSnapshot(region domain.Region, now time.Time) ([]domain.Stage0Entry, bool, error) {
	recent, err := s.execLog.RecentByStage(0, region, 1)
	if err != nil {
		return nil, false, err
	}
	if len(recent) == 0 {
		return nil, false, nil
	}
	last := recent[0]
	if now.Sub(last.ExecutionDate) > cacheTTL(region, now) {
		return nil, false, nil
	}
	entries, err := s.stage0.PassedOn(region, last.ExecutionDate)
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return entries, true, nil
}

// fetchFromCascade tries each source in order, returning the first
// non-empty, non-error result.
func (s *Scanner) fetchFromCascade(region domain.Region) ([]SourceRecord, string, error) {
	var lastErr error
	for _, src := range s.sources {
		records, err := src.GetStockList(region)
		if err != nil {
			s.log.Warn().Err(err).Str("source", src.Name()).Str("region", string(region)).Msg("stage0 source failed, falling through")
			lastErr = err
			continue
		}
		if len(records) == 0 {
			continue
		}
		return records, src.Name(), nil
	}
	if lastErr != nil {
		return nil, "", fmt.Errorf("stage0: every source failed for %s, last error: %w", region, lastErr)
	}
	return nil, "", fmt.Errorf("stage0: every source returned empty for %s", region)
}

// refreshRate fetches and persists a same-day rate when no cached snapshot
// covers asOf.
func (s *Scanner) refreshRate(currency domain.Currency, now time.Time) (float64, error) {
	if s.fxProvider == nil {
		return 0, fmt.Errorf("stage0: no exchange rate cached for %s and no FX provider configured", currency)
	}
	rate, err := s.fxProvider.Rate(currency, now)
	if err != nil {
		return 0, fmt.Errorf("stage0: fetch exchange rate %s: %w", currency, err)
	}
	if err := s.fx.saveRate(currency, now.Truncate(24*time.Hour), rate); err != nil {
		return 0, err
	}
	return rate, nil
}

// filterBlacklisted strips permanently and temporarily excluded tickers
// before any rule evaluation or FX lookup, per spec §4.4 step 1.
func (s *Scanner) filterBlacklisted(records []SourceRecord, region domain.Region) ([]SourceRecord, error) {
	stubs := make([]domain.Ticker, len(records))
	for i, rec := range records {
		stubs[i] = domain.Ticker{Symbol: rec.Ticker, Region: region}
	}
	allowed, err := s.blacklist.FilterTickers(stubs, region)
	if err != nil {
		return nil, fmt.Errorf("stage0: blacklist filter: %w", err)
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, t := range allowed {
		allowedSet[t.Symbol] = true
	}
	out := make([]SourceRecord, 0, len(allowed))
	for _, rec := range records {
		if allowedSet[rec.Ticker] {
			out = append(out, rec)
		}
	}
	return out, nil
}
