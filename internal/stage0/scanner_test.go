package stage0

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
	"github.com/stretchr/testify/assert"
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

type fakeSource struct {
	name    string
	records []SourceRecord
	err     error
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) GetStockList(domain.Region) ([]SourceRecord, error) {
	return f.records, f.err
}

type fixedFX struct{ rate float64 }

func (f fixedFX) Rate(domain.Currency, time.Time) (float64, error) { return f.rate, nil }

func newHarness(t *testing.T, rules FilterRules, sources []Source) (*Scanner, *sql.DB) {
	t.Helper()
	db := setupTestDB(t)
	tickerRepo := repository.NewTickerRepository(db, discardLogger())
	stage0Repo := repository.NewStage0Repository(db, discardLogger())
	execLog := repository.NewExecutionLogRepository(db, discardLogger())
	blPath := filepath.Join(t.TempDir(), "blacklist.json")
	bl := blacklist.NewManager(tickerRepo, blPath, discardLogger())

	scanner := NewScanner(db, sources, rules, bl, tickerRepo, stage0Repo, execLog, discardLogger(),
		WithFXProvider(fixedFX{rate: 1300}))
	return scanner, db
}

func TestScanner_Run_FiltersByMarketCapAndPersists(t *testing.T) {
	rules := FilterRules{MinMarketCapKRW: 1_000_000, MinTradingValueKRW: 100_000}
	sources := []Source{&fakeSource{name: "primary", records: []SourceRecord{
		{Ticker: "AAPL", Name: "Apple Inc", Market: "NASDAQ", Currency: domain.CurrencyUSD, ClosePrice: 190, MarketCapLocal: 1000, TradingValueLocal: 500},
		{Ticker: "PENNY", Name: "Penny Co", Market: "NASDAQ", Currency: domain.CurrencyUSD, ClosePrice: 1, MarketCapLocal: 0.1, TradingValueLocal: 0.01},
	}}}
	scanner, _ := newHarness(t, rules, sources)

	entries, err := scanner.Run(domain.RegionUS, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "AAPL", entries[0].Ticker)
	assert.True(t, entries[0].Passed)
}

func TestScanner_Run_ExcludesSPACByName(t *testing.T) {
	rules := FilterRules{MinMarketCapKRW: 0, MinTradingValueKRW: 0, ExcludeSPAC: true}
	sources := []Source{&fakeSource{name: "primary", records: []SourceRecord{
		{Ticker: "SPAQ", Name: "Example Acquisition Corp", Market: "NASDAQ", Currency: domain.CurrencyUSD, ClosePrice: 10, MarketCapLocal: 100, TradingValueLocal: 100},
	}}}
	scanner, _ := newHarness(t, rules, sources)

	entries, err := scanner.Run(domain.RegionUS, false)
	require.NoError(t, err)
	require.Len(t, entries, 0, "SPAC-named record should fail stage0 and never reach the passed-only replace")
}

func TestScanner_Run_BlacklistedTickerNeverReachesRules(t *testing.T) {
	rules := FilterRules{MinMarketCapKRW: 0, MinTradingValueKRW: 0}
	sources := []Source{&fakeSource{name: "primary", records: []SourceRecord{
		{Ticker: "BADCO", Name: "Bad Co", Market: "NASDAQ", Currency: domain.CurrencyUSD, ClosePrice: 10, MarketCapLocal: 100, TradingValueLocal: 100},
	}}}
	scanner, db := newHarness(t, rules, sources)

	tickerRepo := repository.NewTickerRepository(db, discardLogger())
	require.NoError(t, tickerRepo.Upsert(domain.Ticker{Symbol: "BADCO", Region: domain.RegionUS, Name: "Bad Co", Exchange: "NASDAQ", Currency: domain.CurrencyUSD, AssetType: domain.AssetStock, LotSize: 1, IsActive: false}))

	entries, err := scanner.Run(domain.RegionUS, false)
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}

func TestScanner_Run_CascadeFallsThroughOnEmptySource(t *testing.T) {
	rules := FilterRules{MinMarketCapKRW: 0, MinTradingValueKRW: 0}
	sources := []Source{
		&fakeSource{name: "primary", records: nil},
		&fakeSource{name: "fallback", records: []SourceRecord{
			{Ticker: "MSFT", Name: "Microsoft", Market: "NASDAQ", Currency: domain.CurrencyUSD, ClosePrice: 300, MarketCapLocal: 100, TradingValueLocal: 100},
		}},
	}
	scanner, _ := newHarness(t, rules, sources)

	entries, err := scanner.Run(domain.RegionUS, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "MSFT", entries[0].Ticker)
}

func TestScanner_Run_SecondCallWithinTTLReusesCache(t *testing.T) {
	rules := FilterRules{MinMarketCapKRW: 0, MinTradingValueKRW: 0}
	calls := 0
	sources := []Source{&countingSource{fakeSource: fakeSource{name: "primary", records: []SourceRecord{
		{Ticker: "MSFT", Name: "Microsoft", Market: "NASDAQ", Currency: domain.CurrencyUSD, ClosePrice: 300, MarketCapLocal: 100, TradingValueLocal: 100},
	}}, calls: &calls}}
	scanner, _ := newHarness(t, rules, sources)

	_, err := scanner.Run(domain.RegionUS, false)
	require.NoError(t, err)
	_, err = scanner.Run(domain.RegionUS, false)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call within TTL should reuse the cached snapshot instead of hitting the source again")
}

type countingSource struct {
	fakeSource
	calls *int
}

func (c *countingSource) GetStockList(region domain.Region) ([]SourceRecord, error) {
	*c.calls++
	return c.fakeSource.GetStockList(region)
}
