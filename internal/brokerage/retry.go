package brokerage

import (
	"time"

	"github.com/jsj9346/screener/internal/errs"
	"github.com/rs/zerolog"
)

// retryConfig bounds the exponential backoff from spec §4.1: "retry up to
// 5 times with exponential backoff starting at 0.5s, capped at 8s",
// grounded on the yahoo client's 1<<attempt backoff loop, generalized to a
// configurable start/cap and restricted to errs.Transient.
type retryConfig struct {
	maxAttempts int
	start       time.Duration
	cap         time.Duration
}

var defaultRetry = retryConfig{maxAttempts: 5, start: 500 * time.Millisecond, cap: 8 * time.Second}

// withRetry calls fn, retrying only on errs.Transient up to cfg.maxAttempts
// times. A non-Transient error (including errs.AuthRefused) returns
// immediately without retrying.
func withRetry(log zerolog.Logger, op string, cfg retryConfig, fn func() error) error {
	var lastErr error
	wait := cfg.start

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !errs.Is(lastErr, errs.Transient) {
			return lastErr
		}
		if attempt == cfg.maxAttempts {
			break
		}
		log.Warn().Err(lastErr).Int("attempt", attempt).Dur("wait", wait).Str("op", op).Msg("transient failure, retrying")
		time.Sleep(wait)
		wait *= 2
		if wait > cfg.cap {
			wait = cfg.cap
		}
	}
	return lastErr
}
