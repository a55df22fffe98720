package repository

import (
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestOHLCVRepository_UpsertAndLatest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOHLCVRepository(db, testLogger())

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []domain.OHLCVBar
	for i := 0; i < 5; i++ {
		bars = append(bars, domain.OHLCVBar{
			Date: base.AddDate(0, 0, i), Ticker: "AAPL", Region: domain.RegionUS, Tf: domain.TimeframeDaily,
			Open: 100 + float64(i), High: 105 + float64(i), Low: 99 + float64(i), Close: 102 + float64(i),
			Volume: 1_000_000, Indicators: domain.Indicators{MA5: ptr(101.5)},
		})
	}
	require.NoError(t, repo.UpsertBatch(bars))

	latest, err := repo.Latest("AAPL", domain.RegionUS, domain.TimeframeDaily, 3)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.True(t, latest[0].Date.Before(latest[1].Date))
	assert.True(t, latest[1].Date.Before(latest[2].Date))
	assert.Equal(t, base.AddDate(0, 0, 4), latest[2].Date)
	require.NotNil(t, latest[0].MA5)
	assert.InDelta(t, 101.5, *latest[0].MA5, 0.001)
}

func TestOHLCVRepository_UpsertBatch_Overwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOHLCVRepository(db, testLogger())

	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bar := domain.OHLCVBar{Date: date, Ticker: "MSFT", Region: domain.RegionUS, Tf: domain.TimeframeDaily, Open: 10, High: 12, Low: 9, Close: 11, Volume: 500}
	require.NoError(t, repo.UpsertBatch([]domain.OHLCVBar{bar}))

	bar.Close = 20
	require.NoError(t, repo.UpsertBatch([]domain.OHLCVBar{bar}))

	latest, err := repo.Latest("MSFT", domain.RegionUS, domain.TimeframeDaily, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 20.0, latest[0].Close)
}

func TestOHLCVRepository_LastBarDate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOHLCVRepository(db, testLogger())

	_, found, err := repo.LastBarDate("NVDA", domain.RegionUS, domain.TimeframeDaily)
	require.NoError(t, err)
	assert.False(t, found)

	date := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertBatch([]domain.OHLCVBar{
		{Date: date, Ticker: "NVDA", Region: domain.RegionUS, Tf: domain.TimeframeDaily, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
	}))

	last, found, err := repo.LastBarDate("NVDA", domain.RegionUS, domain.TimeframeDaily)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, last.Equal(date))
}

func TestOHLCVRepository_ApplyRetention(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOHLCVRepository(db, testLogger())

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertBatch([]domain.OHLCVBar{
		{Date: old, Ticker: "XYZ", Region: domain.RegionUS, Tf: domain.TimeframeDaily, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
		{Date: recent, Ticker: "XYZ", Region: domain.RegionUS, Tf: domain.TimeframeDaily, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
	}))

	deleted, err := repo.ApplyRetention(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	latest, err := repo.Latest("XYZ", domain.RegionUS, domain.TimeframeDaily, 10)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.True(t, latest[0].Date.Equal(recent))
}
