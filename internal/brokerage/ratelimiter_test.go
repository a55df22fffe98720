package brokerage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_EnforcesMinimumGap(t *testing.T) {
	limiter := newRateLimiter(20 * time.Millisecond)

	start := time.Now()
	limiter.Wait()
	limiter.Wait()
	limiter.Wait()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}
