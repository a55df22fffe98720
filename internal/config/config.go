// Package config loads pipeline configuration from the environment,
// following the teacher's Load()/getEnv idiom.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/joho/godotenv"
)

// Config holds application-wide configuration (spec §6 "Environment").
type Config struct {
	DataDir            string
	DBPath             string
	BlacklistPath      string
	MasterFileDir      string
	MasterFileBaseURL  string
	MarketFiltersDir   string
	MarketScheduleFile string
	BrokerageBaseURL   string
	BrokerageAppKey    string
	BrokerageAppSecret string
	LogLevel           string
	Port               int
	Debug              bool
}

// Load reads configuration from environment variables, optionally loading
// a ".env" file first (silently ignored if absent, matching the teacher).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		DataDir:            dataDir,
		DBPath:             getEnv("DB_PATH", dataDir+"/screener.db"),
		BlacklistPath:      getEnv("BLACKLIST_PATH", "config/blacklist.json"),
		MasterFileDir:      getEnv("MASTER_FILE_DIR", dataDir+"/master_files"),
		MasterFileBaseURL:  getEnv("MASTER_FILE_BASE_URL", "https://masterfiles.example-broker.com"),
		MarketFiltersDir:   getEnv("MARKET_FILTERS_DIR", "config/market_filters"),
		MarketScheduleFile: getEnv("MARKET_SCHEDULE_FILE", "config/market_schedule.json"),
		BrokerageBaseURL:   getEnv("BASE_URL", "https://openapi.example-broker.com"),
		BrokerageAppKey:    getEnv("APP_KEY", ""),
		BrokerageAppSecret: getEnv("APP_SECRET", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnvAsInt("PORT", 8090),
		Debug:              getEnvAsBool("DEBUG", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required invariants that would otherwise surface as
// confusing failures deep in a stage run.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: DATA_DIR must not be empty")
	}
	return nil
}

// ParseRegion validates a CLI/env-supplied region string against the six
// supported markets.
func ParseRegion(s string) (domain.Region, error) {
	r := domain.Region(s)
	if !r.Valid() {
		return "", fmt.Errorf("config: unknown region %q (want one of %v)", s, domain.Regions)
	}
	return r, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
