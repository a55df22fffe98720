package ohlcv

import (
	"time"

	"github.com/jsj9346/screener/internal/domain"
)

// mockBars synthesizes shaped-but-fake daily bars so downstream stages can
// keep exercising once the collector's failure-rate breaker has tripped
// (spec §4.5: "returns synthetic-but-shaped data"). The walk is
// deterministic (no randomness) so repeated runs in the same mock window
// produce the same rows.
func mockBars(ticker string, region domain.Region, days int, basePrice float64) []domain.OHLCVBar {
	if basePrice <= 0 {
		basePrice = 100
	}
	bars := make([]domain.OHLCVBar, 0, days)
	price := basePrice
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)
		step := basePrice * 0.002 * float64((i%5)-2)
		price += step
		if price <= 0 {
			price = basePrice
		}
		high := price * 1.01
		low := price * 0.99
		bars = append(bars, domain.OHLCVBar{
			Date: date, Ticker: ticker, Region: region, Tf: domain.TimeframeDaily,
			Open: price, High: high, Low: low, Close: price, Volume: 1000,
		})
	}
	return bars
}
