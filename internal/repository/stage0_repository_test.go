package repository

import (
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage0Repository_ReplaceForDate_AndPassedOn(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStage0Repository(db, testLogger())

	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []domain.Stage0Entry{
		{
			Ticker: "005930", Region: domain.RegionKR, Name: "Samsung", Exchange: "KOSPI",
			Currency: domain.CurrencyKRW, FilterDate: date, ExchangeRateDate: date,
			MarketCapKRW: 4e14, TradingValueKRW: 1e11, CurrentPriceKRW: 70000,
			ExchangeRateToKRW: 1, Passed: true, FilterReason: "",
		},
		{
			Ticker: "000001", Region: domain.RegionKR, Name: "Penny Co", Exchange: "KOSDAQ",
			Currency: domain.CurrencyKRW, FilterDate: date, ExchangeRateDate: date,
			MarketCapKRW: 1e8, Passed: false, FilterReason: "market_cap_below_minimum",
		},
	}
	require.NoError(t, repo.ReplaceForDate(domain.RegionKR, date, entries))

	passed, err := repo.PassedOn(domain.RegionKR, date)
	require.NoError(t, err)
	require.Len(t, passed, 1)
	assert.Equal(t, "005930", passed[0].Ticker)

	latest, found, err := repo.LatestFilterDate(domain.RegionKR)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, latest.Equal(date))
}

func TestStage0Repository_ReplaceForDate_ReplacesPriorRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStage0Repository(db, testLogger())
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.ReplaceForDate(domain.RegionUS, date, []domain.Stage0Entry{
		{Ticker: "AAPL", Region: domain.RegionUS, Currency: domain.CurrencyUSD, FilterDate: date, ExchangeRateDate: date, Passed: true},
		{Ticker: "MSFT", Region: domain.RegionUS, Currency: domain.CurrencyUSD, FilterDate: date, ExchangeRateDate: date, Passed: true},
	}))
	require.NoError(t, repo.ReplaceForDate(domain.RegionUS, date, []domain.Stage0Entry{
		{Ticker: "AAPL", Region: domain.RegionUS, Currency: domain.CurrencyUSD, FilterDate: date, ExchangeRateDate: date, Passed: true},
	}))

	passed, err := repo.PassedOn(domain.RegionUS, date)
	require.NoError(t, err)
	assert.Len(t, passed, 1)
}
