package ohlcv

import (
	"testing"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBars(n int) []domain.OHLCVBar {
	bars := make([]domain.OHLCVBar, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 0.5
		bars[i] = domain.OHLCVBar{
			Date: base.AddDate(0, 0, i), Ticker: "AAPL", Region: domain.RegionUS, Tf: domain.TimeframeDaily,
			Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 1000 + int64(i),
		}
	}
	return bars
}

func TestComputeIndicators_ShortHistoryLeavesLongWindowsNil(t *testing.T) {
	bars := computeIndicators(buildBars(10))
	require.Len(t, bars, 10)
	assert.NotNil(t, bars[9].MA5)
	assert.Nil(t, bars[9].MA20, "20-bar window should stay null with only 10 bars of history")
	assert.Nil(t, bars[9].MA200)
}

func TestComputeIndicators_LongHistoryFillsAllWindows(t *testing.T) {
	bars := computeIndicators(buildBars(250))
	last := bars[len(bars)-1]
	assert.NotNil(t, last.MA5)
	assert.NotNil(t, last.MA20)
	assert.NotNil(t, last.MA60)
	assert.NotNil(t, last.MA120)
	assert.NotNil(t, last.MA200)
	assert.NotNil(t, last.RSI14)
	assert.NotNil(t, last.MACD)
	assert.NotNil(t, last.BollingerMid)
	assert.NotNil(t, last.ATR14)
	assert.NotNil(t, last.VolumeMA20)
	assert.NotNil(t, last.VolumeRatio)
}

func TestComputeIndicators_EmptyInput(t *testing.T) {
	assert.Empty(t, computeIndicators(nil))
}
