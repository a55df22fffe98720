package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/orchestrator"
	"github.com/jsj9346/screener/internal/reliability"
	"github.com/jsj9346/screener/internal/scheduler"
	"github.com/jsj9346/screener/internal/server"
)

var flagCronSchedule string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the full pipeline on a cron schedule for every region behind a read-only HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log := newLogger(cfg)
		log.Info().Msg("starting screener daemon")

		s, err := openStore(cfg, log)
		if err != nil {
			return err
		}
		defer s.Close()

		sched := scheduler.New(log)
		sched.Start()
		defer sched.Stop()

		var primaryOrch *orchestrator.Orchestrator
		for _, region := range domain.Regions {
			orch, err := s.orchestratorFor(region)
			if err != nil {
				return err
			}
			if region == domain.RegionKR {
				primaryOrch = orch
			}

			opts := orchestrator.RunOptions{Region: region, RunStage2: true}
			job := scheduler.NewPipelineJob(orch, region, opts, log)
			if err := sched.AddJob(flagCronSchedule, job); err != nil {
				return err
			}
		}

		if err := sched.AddJob("0 0 2 * * *", reliability.NewDailyBackupJob(s.backups)); err != nil {
			return err
		}
		if err := sched.AddJob("0 0 3 * * SUN", reliability.NewWeeklyBackupJob(s.backups)); err != nil {
			return err
		}

		srv := server.New(server.Config{
			Port:       cfg.Port,
			Log:        log,
			Stage0Repo: s.stage0Repo,
			Stage1Repo: s.stage1Repo,
			Stage2Repo: s.stage2Repo,
			TradeRepo:  s.tradeRepo,
			ExecLog:    s.execLog,
			Orch:       primaryOrch,
			DevMode:    cfg.Debug,
		})

		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("http server stopped")
			}
		}()
		log.Info().Int("port", cfg.Port).Msg("screener daemon started")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info().Msg("shutting down screener daemon")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http server forced to shutdown")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagCronSchedule, "cron", "0 0 6 * * MON-FRI", "cron schedule (with seconds) driving each region's full pipeline run")
}
