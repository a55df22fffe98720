package ohlcv

// breakerState tracks per-run failure counters for the two circuit
// breakers spec §4.5 defines: an abort on 50 consecutive failures, and a
// mock-mode fallback once the cumulative failure rate reaches 90% after
// at least 10 tickers have been attempted.
type breakerState struct {
	consecutiveFailures int
	totalAttempted      int
	totalFailed          int
	mockMode             bool
}

const (
	consecutiveFailureLimit = 50
	minAttemptsForRateCheck = 10
	failureRateLimit        = 0.9
)

func (b *breakerState) recordSuccess() {
	b.consecutiveFailures = 0
	b.totalAttempted++
}

func (b *breakerState) recordFailure() {
	b.consecutiveFailures++
	b.totalAttempted++
	b.totalFailed++
}

// shouldAbort reports whether the consecutive-failure breaker has tripped.
func (b *breakerState) shouldAbort() bool {
	return b.consecutiveFailures >= consecutiveFailureLimit
}

// checkMockMode flips mockMode on once the failure rate breaker trips, and
// reports whether this call is the one that tripped it (so the caller logs
// exactly once).
func (b *breakerState) checkMockMode() bool {
	if b.mockMode || b.totalAttempted < minAttemptsForRateCheck {
		return false
	}
	rate := float64(b.totalFailed) / float64(b.totalAttempted)
	if rate >= failureRateLimit {
		b.mockMode = true
		return true
	}
	return false
}
