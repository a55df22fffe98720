package repository

import (
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerRepository_Record(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCircuitBreakerRepository(db, testLogger())

	err := repo.Record(domain.CircuitBreakerLog{
		TriggeredAt: time.Now().UTC(), Breaker: "ohlcv_consecutive_failures",
		TriggerValue: 50, LimitValue: 50, Reason: "50 consecutive ticker failures",
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM circuit_breaker_logs`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestCircuitBreakerRepository_IsTripped_UntilResolved(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCircuitBreakerRepository(db, testLogger())

	tripped, err := repo.IsTripped("daily_loss_limit")
	require.NoError(t, err)
	require.False(t, tripped)

	require.NoError(t, repo.Record(domain.CircuitBreakerLog{
		TriggeredAt: time.Now().UTC(), Breaker: "daily_loss_limit",
		TriggerValue: 120000, LimitValue: 100000, Reason: "daily loss exceeded",
	}))

	tripped, err = repo.IsTripped("daily_loss_limit")
	require.NoError(t, err)
	require.True(t, tripped)

	require.NoError(t, repo.Resolve("daily_loss_limit", "manual_reset", "ops", time.Now().UTC()))

	tripped, err = repo.IsTripped("daily_loss_limit")
	require.NoError(t, err)
	require.False(t, tripped)
}
