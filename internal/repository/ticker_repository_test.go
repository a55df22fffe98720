package repository

import (
	"testing"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickerRepository_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTickerRepository(db, testLogger())

	ticker := domain.Ticker{
		Symbol: "005930", Region: domain.RegionKR, Name: "Samsung Electronics",
		Exchange: "KOSPI", Currency: domain.CurrencyKRW, AssetType: domain.AssetStock,
		LotSize: 1, IsActive: true,
	}
	require.NoError(t, repo.Upsert(ticker))

	got, err := repo.Get("005930", domain.RegionKR)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Samsung Electronics", got.Name)
	assert.True(t, got.IsActive)

	ticker.Name = "Samsung Electronics Co Ltd"
	require.NoError(t, repo.Upsert(ticker))

	got, err = repo.Get("005930", domain.RegionKR)
	require.NoError(t, err)
	assert.Equal(t, "Samsung Electronics Co Ltd", got.Name)
}

func TestTickerRepository_Get_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTickerRepository(db, testLogger())

	got, err := repo.Get("000000", domain.RegionUS)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTickerRepository_SetActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTickerRepository(db, testLogger())

	require.NoError(t, repo.Upsert(domain.Ticker{
		Symbol: "AAPL", Region: domain.RegionUS, Name: "Apple", Exchange: "NASDAQ",
		Currency: domain.CurrencyUSD, AssetType: domain.AssetStock, LotSize: 1, IsActive: true,
	}))

	require.NoError(t, repo.SetActive("AAPL", domain.RegionUS, false))

	inactive, err := repo.InactiveSet(domain.RegionUS)
	require.NoError(t, err)
	assert.True(t, inactive["AAPL"])
}
