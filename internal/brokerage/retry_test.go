package brokerage

import (
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/errs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() zerolog.Logger { return zerolog.New(nil).Level(zerolog.Disabled) }

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := retryConfig{maxAttempts: 3, start: time.Millisecond, cap: 5 * time.Millisecond}

	err := withRetry(discardLogger(), "test-op", cfg, func() error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.Transient, "test", "temporary")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_NonTransientFailsImmediately(t *testing.T) {
	attempts := 0
	cfg := retryConfig{maxAttempts: 5, start: time.Millisecond, cap: 5 * time.Millisecond}

	err := withRetry(discardLogger(), "test-op", cfg, func() error {
		attempts++
		return errs.New(errs.AuthRefused, "test", "nope")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, errs.Is(err, errs.AuthRefused))
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	cfg := retryConfig{maxAttempts: 3, start: time.Millisecond, cap: 5 * time.Millisecond}

	err := withRetry(discardLogger(), "test-op", cfg, func() error {
		attempts++
		return errs.New(errs.Transient, "test", "always fails")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}
