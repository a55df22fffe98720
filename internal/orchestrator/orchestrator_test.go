package orchestrator

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/blacklist"
	"github.com/jsj9346/screener/internal/database"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/ohlcv"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/jsj9346/screener/internal/stage0"
	"github.com/jsj9346/screener/internal/stage1"
	"github.com/jsj9346/screener/internal/stage2"
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

type fakeStage0Source struct{ records []stage0.SourceRecord }

func (f *fakeStage0Source) Name() string { return "fake" }
func (f *fakeStage0Source) GetStockList(domain.Region) ([]stage0.SourceRecord, error) {
	return f.records, nil
}

type fakeOHLCVSource struct{ bars []domain.OHLCVBar }

func (f *fakeOHLCVSource) GetOHLCV(ticker string, region domain.Region, days int) ([]domain.OHLCVBar, error) {
	return f.bars, nil
}

func newHarness(t *testing.T, records []stage0.SourceRecord, bars []domain.OHLCVBar) (*Orchestrator, Dependencies) {
	t.Helper()
	db := setupTestDB(t)

	tickerRepo := repository.NewTickerRepository(db, discardLogger())
	stage0Repo := repository.NewStage0Repository(db, discardLogger())
	stage1Repo := repository.NewStage1Repository(db, discardLogger())
	stage2Repo := repository.NewStage2Repository(db, discardLogger())
	ohlcvRepo := repository.NewOHLCVRepository(db, discardLogger())
	execLog := repository.NewExecutionLogRepository(db, discardLogger())
	breakerRepo := repository.NewCircuitBreakerRepository(db, discardLogger())

	bl := blacklist.NewManager(tickerRepo, filepath.Join(t.TempDir(), "blacklist.json"), discardLogger())

	rules := stage0.FilterRules{MinMarketCapKRW: 0, MinTradingValueKRW: 0}
	stage0Scanner := stage0.NewScanner(db, []stage0.Source{&fakeStage0Source{records: records}}, rules, bl, tickerRepo, stage0Repo, execLog, discardLogger())
	ohlcvCollector := ohlcv.NewCollector(&fakeOHLCVSource{bars: bars}, ohlcvRepo, breakerRepo, discardLogger())
	stage1Scanner := stage1.NewScanner(stage0Repo, stage1Repo, ohlcvRepo, execLog, bl, discardLogger())
	stage2Scanner := stage2.NewScanner(stage1Repo, stage2Repo, ohlcvRepo, discardLogger())

	deps := Dependencies{
		Stage0: stage0Scanner, OHLCV: ohlcvCollector, Stage1: stage1Scanner, Stage2: stage2Scanner,
		Stage0Repo: stage0Repo, Stage1Repo: stage1Repo, Stage2Repo: stage2Repo,
		OHLCVRepo: ohlcvRepo, ExecLog: execLog,
	}
	return New(deps, discardLogger()), deps
}

func stage0Record(ticker string, marketCap float64) stage0.SourceRecord {
	return stage0.SourceRecord{
		Ticker: ticker, Name: ticker, Market: "KRX", Currency: domain.CurrencyKRW,
		ClosePrice: 50000, MarketCapLocal: marketCap, TradingValueLocal: 1_000_000,
	}
}

func TestOrchestrator_RunStage0Only_SortsDescendingAndTruncates(t *testing.T) {
	o, _ := newHarness(t, []stage0.SourceRecord{
		stage0Record("AAA", 1000),
		stage0Record("BBB", 5000),
		stage0Record("CCC", 3000),
	}, nil)

	report, err := o.RunStage0Only(RunOptions{Region: domain.RegionKR, TestSampleN: 2})
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Len(t, report.Stage0, 2)
	require.Equal(t, "BBB", report.Stage0[0].Ticker)
	require.Equal(t, "CCC", report.Stage0[1].Ticker)
}

func TestOrchestrator_RunFull_SkipsDataCollectionAndRunsStage1(t *testing.T) {
	o, _ := newHarness(t, []stage0.SourceRecord{stage0Record("AAA", 1000)}, nil)

	report, err := o.RunFull(RunOptions{Region: domain.RegionKR, SkipDataCollection: true})
	require.NoError(t, err)
	require.Len(t, report.Stage0, 1)
	require.Empty(t, report.Stage1, "no ohlcv history means the ticker fails the min-history precondition")
	require.Empty(t, report.Stage2)
}

func TestOrchestrator_RunFull_CollectsDataWhenNotSkipped(t *testing.T) {
	o, deps := newHarness(t, []stage0.SourceRecord{stage0Record("AAA", 1000)}, []domain.OHLCVBar{
		{Date: time.Now().UTC(), Ticker: "AAA", Region: domain.RegionKR, Tf: domain.TimeframeDaily, Open: 100, High: 110, Low: 95, Close: 105, Volume: 1000},
	})

	_, err := o.RunFull(RunOptions{Region: domain.RegionKR, SkipDataCollection: false})
	require.NoError(t, err)

	bars, err := deps.OHLCVRepo.Latest("AAA", domain.RegionKR, domain.TimeframeDaily, 10)
	require.NoError(t, err)
	require.NotEmpty(t, bars, "RunFull should have invoked the collector and persisted bars")
}

func TestOrchestrator_CollectOnly_NoSnapshotReturnsNil(t *testing.T) {
	o, _ := newHarness(t, nil, nil)

	results, err := o.CollectOnly(domain.RegionKR)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestOrchestrator_CollectOnly_UsesMostRecentStage0Snapshot(t *testing.T) {
	o, deps := newHarness(t, []stage0.SourceRecord{stage0Record("AAA", 1000)}, []domain.OHLCVBar{
		{Date: time.Now().UTC(), Ticker: "AAA", Region: domain.RegionKR, Tf: domain.TimeframeDaily, Open: 100, High: 110, Low: 95, Close: 105, Volume: 1000},
	})

	_, err := o.RunStage0Only(RunOptions{Region: domain.RegionKR})
	require.NoError(t, err)

	results, err := o.CollectOnly(domain.RegionKR)
	require.NoError(t, err)
	require.Len(t, results, 1)

	bars, err := deps.OHLCVRepo.Latest("AAA", domain.RegionKR, domain.TimeframeDaily, 10)
	require.NoError(t, err)
	require.NotEmpty(t, bars, "CollectOnly should have invoked the collector and persisted bars")
}

func TestOrchestrator_Status_ClassifiesHealthByAge(t *testing.T) {
	o, deps := newHarness(t, nil, nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, deps.ExecLog.Record(domain.FilterExecutionLogEntry{
		ExecutionDate: now.Add(-1 * time.Hour), Stage: 0, Region: domain.RegionKR, InputCount: 100, OutputCount: 40,
	}))
	require.NoError(t, deps.ExecLog.Record(domain.FilterExecutionLogEntry{
		ExecutionDate: now.Add(-72 * time.Hour), Stage: 1, Region: domain.RegionKR, InputCount: 40, OutputCount: 10,
	}))
	require.NoError(t, deps.OHLCVRepo.UpsertBatch([]domain.OHLCVBar{
		{Date: now.Add(-1 * time.Hour), Ticker: "AAA", Region: domain.RegionKR, Tf: domain.TimeframeDaily, Open: 100, High: 110, Low: 95, Close: 105, Volume: 1000},
	}))

	report, err := o.Status(domain.RegionKR, now)
	require.NoError(t, err)
	require.Equal(t, HealthHealthy, report.Stages[0].Health)
	require.Equal(t, HealthStale, report.Stages[1].Health)
	require.Equal(t, HealthStale, report.Stages[2].Health, "stage2 never ran so it has no log row at all")
	require.Equal(t, HealthHealthy, report.OHLCVHealth)
}
