package main

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/jsj9346/screener/internal/blacklist"
	"github.com/jsj9346/screener/internal/brokerage"
	"github.com/jsj9346/screener/internal/config"
	"github.com/jsj9346/screener/internal/database"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/masterfile"
	"github.com/jsj9346/screener/internal/ohlcv"
	"github.com/jsj9346/screener/internal/orchestrator"
	"github.com/jsj9346/screener/internal/reliability"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/jsj9346/screener/internal/stage0"
	"github.com/jsj9346/screener/internal/stage1"
	"github.com/jsj9346/screener/internal/stage2"
)

// exchangeForRegion picks the brokerage exchange code the BrokerageSource
// cascade tier queries. Regions with more than one listing venue (US) are
// represented by their largest venue; the HTTP and masterfile cascade
// tiers still cover the rest of that region's tickers.
var exchangeForRegion = map[domain.Region]string{
	domain.RegionKR: "KRX",
	domain.RegionUS: "NASDAQ",
	domain.RegionHK: "HKEX",
	domain.RegionCN: "SSE",
	domain.RegionJP: "TSE",
	domain.RegionVN: "HOSE",
}

var masterfileMarketForRegion = map[domain.Region]masterfile.MarketCode{
	domain.RegionUS: masterfile.MarketNasdaq,
	domain.RegionHK: masterfile.MarketHongKong,
	domain.RegionCN: masterfile.MarketShanghai,
	domain.RegionJP: masterfile.MarketTokyo,
	domain.RegionVN: masterfile.MarketHoChiMinh,
}

// store bundles the single embedded-database connection and every
// repository and external client built on top of it. All regions share
// one store: the repositories and clients are themselves region-agnostic
// (region is a parameter on their methods), so only the per-region stage0
// rule set and source cascade differ.
type store struct {
	cfg  *config.Config
	db   *database.DB
	conn *sql.DB
	log  zerolog.Logger

	tickerRepo  *repository.TickerRepository
	stage0Repo  *repository.Stage0Repository
	stage1Repo  *repository.Stage1Repository
	stage2Repo  *repository.Stage2Repository
	ohlcvRepo   *repository.OHLCVRepository
	tradeRepo   *repository.TradeRepository
	breakerRepo *repository.CircuitBreakerRepository
	limitsRepo  *repository.RiskLimitsRepository
	execLog     *repository.ExecutionLogRepository

	blacklist       *blacklist.Manager
	masterfileMgr   *masterfile.Manager
	brokerageClient *brokerage.Client

	health    *reliability.HealthService
	backups   *reliability.BackupService
	diskGuard *reliability.DiskGuard
}

// openStore opens the embedded store and wires every repository and
// external client cmd/screener's subcommands share across regions.
func openStore(cfg *config.Config, log zerolog.Logger) (*store, error) {
	db, err := database.New(database.Config{Path: cfg.DBPath, Profile: database.ProfileStandard})
	if err != nil {
		return nil, fmt.Errorf("cmd/screener: open database: %w", err)
	}
	conn := db.Conn()

	s := &store{cfg: cfg, db: db, conn: conn, log: log}

	s.tickerRepo = repository.NewTickerRepository(conn, log)
	s.stage0Repo = repository.NewStage0Repository(conn, log)
	s.stage1Repo = repository.NewStage1Repository(conn, log)
	s.stage2Repo = repository.NewStage2Repository(conn, log)
	s.ohlcvRepo = repository.NewOHLCVRepository(conn, log)
	s.tradeRepo = repository.NewTradeRepository(conn, log)
	s.breakerRepo = repository.NewCircuitBreakerRepository(conn, log)
	s.limitsRepo = repository.NewRiskLimitsRepository(conn, log)
	s.execLog = repository.NewExecutionLogRepository(conn, log)

	s.blacklist = blacklist.NewManager(s.tickerRepo, cfg.BlacklistPath, log)
	s.masterfileMgr = masterfile.NewManager(cfg.MasterFileBaseURL, cfg.MasterFileDir, log)
	s.brokerageClient = brokerage.NewClient(brokerage.Config{
		BaseURL:        cfg.BrokerageBaseURL,
		AppKey:         cfg.BrokerageAppKey,
		AppSecret:      cfg.BrokerageAppSecret,
		TokenCachePath: filepath.Join(cfg.DataDir, "token_cache.json"),
	}, log)

	s.backups = reliability.NewBackupService(db, filepath.Join(cfg.DataDir, "backups"), log)
	s.health = reliability.NewHealthService(db, s.backups, log)
	s.diskGuard = reliability.NewDiskGuard(cfg.DataDir, 1.0, 5.0, log)

	return s, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

// stage0Sources builds the region's source cascade: brokerage API, public
// endpoint, offline master file, in that order (spec's cascade tiers a/b/d
// — tier c, the paginated library fallback, has no equivalent client in
// this pack). The master-file tier is appended only for regions listed in
// masterfileMarketForRegion; KR is not, so its cascade ends at the public
// endpoint.
func (s *store) stage0Sources(region domain.Region) []stage0.Source {
	sources := []stage0.Source{
		stage0.NewBrokerageSource(s.brokerageClient, exchangeForRegion[region], 0),
		stage0.NewHTTPSource(s.cfg.BrokerageBaseURL, s.log),
	}
	if market, ok := masterfileMarketForRegion[region]; ok {
		sources = append(sources, stage0.NewMasterfileSource(s.masterfileMgr, market))
	}
	return sources
}

// orchestratorFor builds a region-scoped orchestrator: stage0's scanner is
// bound to one region's rule set and source cascade at construction, so it
// cannot be shared across regions the way the repositories are.
func (s *store) orchestratorFor(region domain.Region) (*orchestrator.Orchestrator, error) {
	rules, err := stage0.LoadRules(s.cfg.MarketFiltersDir, region)
	if err != nil {
		return nil, fmt.Errorf("cmd/screener: load stage0 rules for %s: %w", region, err)
	}

	stage0Scanner := stage0.NewScanner(s.conn, s.stage0Sources(region), rules, s.blacklist, s.tickerRepo, s.stage0Repo, s.execLog, s.log)
	collector := ohlcv.NewCollector(s.brokerageClient, s.ohlcvRepo, s.breakerRepo, s.log)
	stage1Scanner := stage1.NewScanner(s.stage0Repo, s.stage1Repo, s.ohlcvRepo, s.execLog, s.blacklist, s.log)
	stage2Scanner := stage2.NewScanner(s.stage1Repo, s.stage2Repo, s.ohlcvRepo, s.log)

	return orchestrator.New(orchestrator.Dependencies{
		Stage0:     stage0Scanner,
		OHLCV:      collector,
		Stage1:     stage1Scanner,
		Stage2:     stage2Scanner,
		Stage0Repo: s.stage0Repo,
		Stage1Repo: s.stage1Repo,
		Stage2Repo: s.stage2Repo,
		OHLCVRepo:  s.ohlcvRepo,
		ExecLog:    s.execLog,
		Health:     s.health,
		DiskGuard:  s.diskGuard,
	}, s.log), nil
}
