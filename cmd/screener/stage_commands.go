package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jsj9346/screener/internal/config"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/orchestrator"
)

// openOrchestrator opens the store and builds a region-scoped orchestrator
// in one step for the single-region subcommands. The caller must close
// the returned store once done.
func openOrchestrator(cfg *config.Config, region domain.Region, log zerolog.Logger) (*store, *orchestrator.Orchestrator, error) {
	s, err := openStore(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	orch, err := s.orchestratorFor(region)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, orch, nil
}

var stage0Cmd = &cobra.Command{
	Use:   "stage0",
	Short: "Run the stage0 fundamental screen for --region",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg)
		region := loadRegion()

		s, orch, err := openOrchestrator(cfg, region, log)
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := orch.RunStage0Only(orchestrator.RunOptions{
			Region:       region,
			ForceRefresh: flagForceRefresh,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "stage0: %d passed (run %s)\n", len(report.Stage0), report.RunID)
		return nil
	},
}

var stage1Cmd = &cobra.Command{
	Use:   "stage1",
	Short: "Run stage0 then the stage1 technical filter for --region",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg)
		region := loadRegion()

		s, orch, err := openOrchestrator(cfg, region, log)
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := orch.RunFull(orchestrator.RunOptions{
			Region:             region,
			ForceRefresh:       flagForceRefresh,
			SkipDataCollection: flagSkipDataCollection,
			TestSampleN:        flagTestSample,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "stage0: %d passed, stage1: %d passed (run %s)\n",
			len(report.Stage0), len(report.Stage1), report.RunID)
		return nil
	},
}

var stage2Cmd = &cobra.Command{
	Use:   "stage2",
	Short: "Run the full pipeline through stage2 scoring for --region",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg)
		region := loadRegion()

		s, orch, err := openOrchestrator(cfg, region, log)
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := orch.RunFull(orchestrator.RunOptions{
			Region:             region,
			ForceRefresh:       flagForceRefresh,
			SkipDataCollection: flagSkipDataCollection,
			RunStage2:          true,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "stage0: %d passed, stage1: %d passed, stage2: %d scored (run %s)\n",
			len(report.Stage0), len(report.Stage1), len(report.Stage2), report.RunID)
		return nil
	},
}

var fullCmd = &cobra.Command{
	Use:   "full",
	Short: "Run the entire pipeline (stage0 through stage2) for --region",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg)
		region := loadRegion()

		s, orch, err := openOrchestrator(cfg, region, log)
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := orch.RunFull(orchestrator.RunOptions{
			Region:             region,
			ForceRefresh:       flagForceRefresh,
			SkipDataCollection: flagSkipDataCollection,
			TestSampleN:        flagTestSample,
			RunStage2:          true,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "stage0: %d passed, stage1: %d passed, stage2: %d scored (run %s)\n",
			len(report.Stage0), len(report.Stage1), len(report.Stage2), report.RunID)
		return nil
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run OHLCV collection alone for the tickers stage0 most recently passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg)
		region := loadRegion()

		s, orch, err := openOrchestrator(cfg, region, log)
		if err != nil {
			return err
		}
		defer s.Close()

		results, err := orch.CollectOnly(region)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "collect: refreshed OHLCV for %d tickers\n", len(results))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the pipeline's freshness status for --region",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg)
		region := loadRegion()

		s, orch, err := openOrchestrator(cfg, region, log)
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := orch.Status(region, time.Now().UTC())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "region %s: ohlcv health=%s\n", report.Region, report.OHLCVHealth)
		for _, s := range report.Stages {
			fmt.Fprintf(os.Stdout, "  stage%d: health=%s input=%d output=%d reduction=%.2f%% last_run=%s\n",
				s.Stage, s.Health, s.InputCount, s.OutputCount, s.ReductionRate*100, s.LastRun.Format("2006-01-02T15:04:05Z"))
		}
		return nil
	},
}
