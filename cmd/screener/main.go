// Command screener drives the equity screening pipeline: stage0/stage1/
// stage2 filtering, OHLCV collection, pipeline status, and an optional
// daemon mode that runs the full pipeline on a cron schedule behind a
// read-only HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jsj9346/screener/internal/config"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/pkg/logger"
)

var (
	flagDBPath       string
	flagRegion       string
	flagForceRefresh bool
	flagDebug        bool

	flagSkipDataCollection bool
	flagTestSample         int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Multi-region equity screening and trade-execution pipeline",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db-path", "", "path to the embedded SQLite store (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&flagRegion, "region", "", "target region (KR, US, HK, CN, JP, VN)")
	rootCmd.PersistentFlags().BoolVar(&flagForceRefresh, "force-refresh", false, "bypass stage0's cache TTL and refetch the universe")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	fullCmd.Flags().BoolVar(&flagSkipDataCollection, "skip-data-collection", false, "skip OHLCV collection before stage1/stage2")
	fullCmd.Flags().IntVar(&flagTestSample, "test-sample", 0, "limit stage0 passers to the top N by market cap before data collection")
	stage1Cmd.Flags().IntVar(&flagTestSample, "test-sample", 0, "limit stage0 passers to the top N by market cap before data collection")
	stage1Cmd.Flags().BoolVar(&flagSkipDataCollection, "skip-data-collection", false, "skip OHLCV collection before stage1/stage2")

	rootCmd.AddCommand(stage0Cmd, stage1Cmd, stage2Cmd, fullCmd, collectCmd, statusCmd, serveCmd)
}

// loadRegion resolves the required --region flag into a domain.Region,
// exiting the process on an invalid value since every subcommand but
// `serve` needs exactly one region to act on.
func loadRegion() domain.Region {
	region, err := config.ParseRegion(flagRegion)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return region
}

// loadConfig reads environment configuration and applies any CLI
// overrides from persistent flags.
func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
	if flagDebug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	return cfg
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Debug})
}
