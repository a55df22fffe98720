package trading

import (
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestCheckCircuitBreakers_TripsOnDailyLoss(t *testing.T) {
	db := setupTestDB(t)
	tradeRepo := repository.NewTradeRepository(db, discardLogger())
	breakerRepo := repository.NewCircuitBreakerRepository(db, discardLogger())

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	id, err := tradeRepo.OpenTrade(domain.Trade{
		Ticker: "005930", Region: domain.RegionKR, Side: domain.SideBuy,
		Quantity: 10, EntryPrice: domain.NewMoney(100000, domain.CurrencyKRW), EntryTimestamp: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, tradeRepo.CloseTrade(id, domain.NewMoney(50000, domain.CurrencyKRW), domain.Money{Currency: domain.CurrencyKRW}, domain.Money{Currency: domain.CurrencyKRW}, now))

	limits := domain.RiskLimits{Region: domain.RegionKR, DailyLossLimitKRW: 100000, ConsecutiveLossLimit: 5}
	halted, reason, err := checkCircuitBreakers(tradeRepo, breakerRepo, limits, domain.RegionKR, now)
	require.NoError(t, err)
	require.True(t, halted)
	require.Contains(t, reason, "daily loss")

	tripped, err := breakerRepo.IsTripped(breakerDailyLoss)
	require.NoError(t, err)
	require.True(t, tripped)
}

func TestCheckCircuitBreakers_TripsOnConsecutiveLosses(t *testing.T) {
	db := setupTestDB(t)
	tradeRepo := repository.NewTradeRepository(db, discardLogger())
	breakerRepo := repository.NewCircuitBreakerRepository(db, discardLogger())

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		id, err := tradeRepo.OpenTrade(domain.Trade{
			Ticker: "005930", Region: domain.RegionKR, Side: domain.SideBuy,
			Quantity: 1, EntryPrice: domain.NewMoney(100000, domain.CurrencyKRW), EntryTimestamp: now.Add(-time.Duration(i+1) * time.Hour),
		})
		require.NoError(t, err)
		require.NoError(t, tradeRepo.CloseTrade(id, domain.NewMoney(90000, domain.CurrencyKRW), domain.Money{Currency: domain.CurrencyKRW}, domain.Money{Currency: domain.CurrencyKRW}, now.Add(-time.Duration(i)*time.Minute)))
	}

	limits := domain.RiskLimits{Region: domain.RegionKR, DailyLossLimitKRW: 1000000, ConsecutiveLossLimit: 3}
	halted, reason, err := checkCircuitBreakers(tradeRepo, breakerRepo, limits, domain.RegionKR, now)
	require.NoError(t, err)
	require.True(t, halted)
	require.Contains(t, reason, "consecutive")
}

func TestCheckCircuitBreakers_NoTripWhenWithinLimits(t *testing.T) {
	db := setupTestDB(t)
	tradeRepo := repository.NewTradeRepository(db, discardLogger())
	breakerRepo := repository.NewCircuitBreakerRepository(db, discardLogger())

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	limits := domain.RiskLimits{Region: domain.RegionKR, DailyLossLimitKRW: 1000000, ConsecutiveLossLimit: 5}
	halted, _, err := checkCircuitBreakers(tradeRepo, breakerRepo, limits, domain.RegionKR, now)
	require.NoError(t, err)
	require.False(t, halted)
}
