package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		original, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, original)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	clearEnv(t, "DATA_DIR", "DB_PATH", "LOG_LEVEL", "PORT", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "./data/screener.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8090, cfg.Port)
	assert.False(t, cfg.Debug)
}

func TestLoad_ReadsOverrides(t *testing.T) {
	clearEnv(t, "DATA_DIR", "DB_PATH", "PORT", "DEBUG")
	os.Setenv("DATA_DIR", "/tmp/screener-data")
	os.Setenv("PORT", "9100")
	os.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/screener-data", cfg.DataDir)
	assert.Equal(t, "/tmp/screener-data/screener.db", cfg.DBPath)
	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.Debug)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	clearEnv(t, "PORT")
	os.Setenv("PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Port)
}

func TestLoad_MasterFileBaseURLDefaultsAndOverrides(t *testing.T) {
	clearEnv(t, "MASTER_FILE_BASE_URL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://masterfiles.example-broker.com", cfg.MasterFileBaseURL)

	os.Setenv("MASTER_FILE_BASE_URL", "https://cdn.internal.example/masterfiles")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.internal.example/masterfiles", cfg.MasterFileBaseURL)
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion("KR")
	require.NoError(t, err)
	assert.Equal(t, "KR", string(r))

	_, err = ParseRegion("XX")
	assert.Error(t, err)
}
