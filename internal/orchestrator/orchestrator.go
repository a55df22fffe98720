// Package orchestrator implements C12: the three pipeline entry modes
// (stage0-only, stage1/full, status) that compose C6-C10 behind one
// command surface, reloading each stage's cache from the database
// between steps rather than threading results in memory.
package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/ohlcv"
	"github.com/jsj9346/screener/internal/reliability"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/jsj9346/screener/internal/stage0"
	"github.com/jsj9346/screener/internal/stage1"
	"github.com/jsj9346/screener/internal/stage2"
	"github.com/rs/zerolog"
)

// Dependencies wires every stage's already-constructed scanner/collector
// plus the repositories the orchestrator itself reads for the status
// report. Health and DiskGuard are optional: a nil value skips that
// guard, which keeps unit tests that don't care about reliability free
// of file-backed database setup.
type Dependencies struct {
	Stage0     *stage0.Scanner
	OHLCV      *ohlcv.Collector
	Stage1     *stage1.Scanner
	Stage2     *stage2.Scanner
	Stage0Repo *repository.Stage0Repository
	Stage1Repo *repository.Stage1Repository
	Stage2Repo *repository.Stage2Repository
	OHLCVRepo  *repository.OHLCVRepository
	ExecLog    *repository.ExecutionLogRepository
	Health     *reliability.HealthService
	DiskGuard  *reliability.DiskGuard
}

// RunOptions controls a single orchestrator invocation.
type RunOptions struct {
	Region             domain.Region
	ForceRefresh       bool
	SkipDataCollection bool
	RunStage2          bool
	TestSampleN        int
}

// Orchestrator is the single entry point cmd/screener drives.
type Orchestrator struct {
	deps Dependencies
	log  zerolog.Logger
}

func New(deps Dependencies, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{deps: deps, log: log.With().Str("component", "orchestrator").Logger()}
}

// Report is the outcome of one orchestrator run, enough for the CLI to
// print a summary regardless of which mode ran.
type Report struct {
	RunID      string
	Region     domain.Region
	Stage0     []domain.Stage0Entry
	Stage1     []domain.Stage1Entry
	Stage2     []domain.Stage2Entry
	FilterDate time.Time
}

// RunStage0Only executes C6 alone and returns the top-N passers by KRW
// market cap (spec §4.10's stage0-only entry mode).
func (o *Orchestrator) RunStage0Only(opts RunOptions) (Report, error) {
	runID := uuid.NewString()
	o.log.Info().Str("run_id", runID).Str("mode", "stage0-only").Str("region", string(opts.Region)).Msg("orchestrator run starting")

	entries, err := o.deps.Stage0.Run(opts.Region, opts.ForceRefresh)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: stage0 run: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].MarketCapKRW > entries[j].MarketCapKRW })
	if opts.TestSampleN > 0 && len(entries) > opts.TestSampleN {
		entries = entries[:opts.TestSampleN]
	}

	return Report{RunID: runID, Region: opts.Region, Stage0: entries, FilterDate: time.Now().UTC()}, nil
}

// RunFull executes C6 -> C7 (unless skipped) -> C8 -> optionally C9,
// reloading each stage's cache fresh from the database in between (spec
// §4.10/§5: no in-memory pass-through, so stages remain independently
// re-invokable).
func (o *Orchestrator) RunFull(opts RunOptions) (Report, error) {
	runID := uuid.NewString()
	o.log.Info().Str("run_id", runID).Str("mode", "full").Str("region", string(opts.Region)).Msg("orchestrator run starting")

	if o.deps.Health != nil {
		if err := o.deps.Health.CheckAndRecover(); err != nil {
			return Report{}, fmt.Errorf("orchestrator: pre-run health check: %w", err)
		}
	}
	if !opts.SkipDataCollection && o.deps.DiskGuard != nil {
		if err := o.deps.DiskGuard.Check(); err != nil {
			return Report{}, fmt.Errorf("orchestrator: pre-run disk guard: %w", err)
		}
	}

	filterDate := time.Now().UTC()
	report := Report{RunID: runID, Region: opts.Region, FilterDate: filterDate}

	stage0Entries, err := o.deps.Stage0.Run(opts.Region, opts.ForceRefresh)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: stage0 run: %w", err)
	}
	sort.Slice(stage0Entries, func(i, j int) bool { return stage0Entries[i].MarketCapKRW > stage0Entries[j].MarketCapKRW })
	if opts.TestSampleN > 0 && len(stage0Entries) > opts.TestSampleN {
		stage0Entries = stage0Entries[:opts.TestSampleN]
		o.log.Info().Int("sample", opts.TestSampleN).Msg("truncated stage0 passers to test sample before data collection")
	}
	report.Stage0 = stage0Entries

	if !opts.SkipDataCollection {
		tickers := make([]string, len(stage0Entries))
		for i, e := range stage0Entries {
			tickers[i] = e.Ticker
		}
		if _, err := o.deps.OHLCV.Run(opts.Region, tickers); err != nil {
			return Report{}, fmt.Errorf("orchestrator: ohlcv collection: %w", err)
		}
	} else {
		o.log.Info().Msg("skipping data collection per --skip-data-collection")
	}

	stage1Entries, err := o.deps.Stage1.Run(opts.Region, filterDate)
	if err != nil {
		return Report{}, fmt.Errorf("orchestrator: stage1 run: %w", err)
	}
	report.Stage1 = stage1Entries

	if opts.RunStage2 {
		cacheTS := time.Now().UTC()
		stage2Entries, err := o.deps.Stage2.Run(opts.Region, filterDate, cacheTS)
		if err != nil {
			return Report{}, fmt.Errorf("orchestrator: stage2 run: %w", err)
		}
		report.Stage2 = stage2Entries
	}

	o.log.Info().Str("run_id", runID).Int("stage0", len(report.Stage0)).Int("stage1", len(report.Stage1)).Int("stage2", len(report.Stage2)).Msg("orchestrator run complete")
	return report, nil
}

// CollectOnly runs C7 alone against the tickers from the most recent
// stage0 snapshot for region, without re-running stage0 itself. Used by
// the CLI's standalone `collect` subcommand to refresh OHLCV data between
// full pipeline runs.
func (o *Orchestrator) CollectOnly(region domain.Region) ([]ohlcv.Result, error) {
	runID := uuid.NewString()
	o.log.Info().Str("run_id", runID).Str("mode", "collect").Str("region", string(region)).Msg("orchestrator run starting")

	if o.deps.DiskGuard != nil {
		if err := o.deps.DiskGuard.Check(); err != nil {
			return nil, fmt.Errorf("orchestrator: pre-run disk guard: %w", err)
		}
	}

	filterDate, found, err := o.deps.Stage0Repo.LatestFilterDate(region)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: collect: load latest filter date: %w", err)
	}
	if !found {
		o.log.Info().Msg("collect: no stage0 snapshot exists yet")
		return nil, nil
	}
	passed, err := o.deps.Stage0Repo.PassedOn(region, filterDate)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: collect: load stage0 passers: %w", err)
	}
	tickers := make([]string, len(passed))
	for i, e := range passed {
		tickers[i] = e.Ticker
	}

	collected, err := o.deps.OHLCV.Run(region, tickers)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: collect: ohlcv run: %w", err)
	}
	o.log.Info().Str("run_id", runID).Int("tickers", len(tickers)).Msg("collect complete")
	return collected, nil
}
