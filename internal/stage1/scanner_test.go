package stage1

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/blacklist"
	"github.com/jsj9346/screener/internal/database"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func discardLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(database.Schema())
	require.NoError(t, err)
	return db
}

func seedBullishHistory(t *testing.T, ohlcvRepo *repository.OHLCVRepository, ticker string) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.OHLCVBar, 260)
	price := 50.0
	for i := range bars {
		price += 0.3
		bars[i] = domain.OHLCVBar{
			Date: base.AddDate(0, 0, i), Ticker: ticker, Region: domain.RegionUS, Tf: domain.TimeframeDaily,
			Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 5000,
			MA5: f(price), MA20: f(price - 5), MA60: f(price - 15), MA120: f(price - 30), MA200: f(price - 45),
			RSI14: f(55), MACD: f(2), MACDSignal: f(1), MACDHist: f(1), VolumeMA20: f(2000),
		}
	}
	require.NoError(t, ohlcvRepo.UpsertBatch(bars))
}

func TestScanner_Run_PassesBullishTickerAndFiltersFailing(t *testing.T) {
	db := setupTestDB(t)
	tickerRepo := repository.NewTickerRepository(db, discardLogger())
	stage0Repo := repository.NewStage0Repository(db, discardLogger())
	stage1Repo := repository.NewStage1Repository(db, discardLogger())
	ohlcvRepo := repository.NewOHLCVRepository(db, discardLogger())
	execLog := repository.NewExecutionLogRepository(db, discardLogger())

	require.NoError(t, tickerRepo.Upsert(domain.Ticker{Symbol: "GOOD", Region: domain.RegionUS, Name: "Good Co", Exchange: "NASDAQ", Currency: domain.CurrencyUSD, AssetType: domain.AssetStock, LotSize: 1, IsActive: true}))
	require.NoError(t, tickerRepo.Upsert(domain.Ticker{Symbol: "THIN", Region: domain.RegionUS, Name: "Thin Co", Exchange: "NASDAQ", Currency: domain.CurrencyUSD, AssetType: domain.AssetStock, LotSize: 1, IsActive: true}))

	filterDate := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, stage0Repo.ReplaceForDate(domain.RegionUS, filterDate, []domain.Stage0Entry{
		{FilterDate: filterDate, Ticker: "GOOD", Region: domain.RegionUS, Name: "Good Co", Exchange: "NASDAQ", Currency: domain.CurrencyUSD, Passed: true, ExchangeRateDate: filterDate},
		{FilterDate: filterDate, Ticker: "THIN", Region: domain.RegionUS, Name: "Thin Co", Exchange: "NASDAQ", Currency: domain.CurrencyUSD, Passed: true, ExchangeRateDate: filterDate},
	}))

	seedBullishHistory(t, ohlcvRepo, "GOOD")
	thinBars := []domain.OHLCVBar{{Date: filterDate, Ticker: "THIN", Region: domain.RegionUS, Tf: domain.TimeframeDaily, Close: 10, Volume: 10}}
	require.NoError(t, ohlcvRepo.UpsertBatch(thinBars))

	bl := blacklist.NewManager(tickerRepo, filepath.Join(t.TempDir(), "blacklist.json"), discardLogger())
	scanner := NewScanner(stage0Repo, stage1Repo, ohlcvRepo, execLog, bl, discardLogger())

	entries, err := scanner.Run(domain.RegionUS, filterDate)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byTicker := map[string]domain.Stage1Entry{}
	for _, e := range entries {
		byTicker[e.Ticker] = e
	}
	require.True(t, byTicker["GOOD"].Passed)
	require.False(t, byTicker["THIN"].Passed)
	require.Equal(t, "insufficient OHLCV history", byTicker["THIN"].FilterReason)

	stored, err := stage1Repo.PassedOn(domain.RegionUS, filterDate)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, "GOOD", stored[0].Ticker)
}

func TestScanner_Run_ExcludesBlacklistedTicker(t *testing.T) {
	db := setupTestDB(t)
	tickerRepo := repository.NewTickerRepository(db, discardLogger())
	stage0Repo := repository.NewStage0Repository(db, discardLogger())
	stage1Repo := repository.NewStage1Repository(db, discardLogger())
	ohlcvRepo := repository.NewOHLCVRepository(db, discardLogger())
	execLog := repository.NewExecutionLogRepository(db, discardLogger())

	require.NoError(t, tickerRepo.Upsert(domain.Ticker{Symbol: "BAD", Region: domain.RegionUS, Name: "Bad Co", Exchange: "NASDAQ", Currency: domain.CurrencyUSD, AssetType: domain.AssetStock, LotSize: 1, IsActive: false}))

	filterDate := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	require.NoError(t, stage0Repo.ReplaceForDate(domain.RegionUS, filterDate, []domain.Stage0Entry{
		{FilterDate: filterDate, Ticker: "BAD", Region: domain.RegionUS, Name: "Bad Co", Exchange: "NASDAQ", Currency: domain.CurrencyUSD, Passed: true, ExchangeRateDate: filterDate},
	}))
	seedBullishHistory(t, ohlcvRepo, "BAD")

	bl := blacklist.NewManager(tickerRepo, filepath.Join(t.TempDir(), "blacklist.json"), discardLogger())
	scanner := NewScanner(stage0Repo, stage1Repo, ohlcvRepo, execLog, bl, discardLogger())

	entries, err := scanner.Run(domain.RegionUS, filterDate)
	require.NoError(t, err)
	require.Empty(t, entries)
}
