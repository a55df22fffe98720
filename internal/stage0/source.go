// Package stage0 implements the Stage-0 scanner: a pluggable source
// cascade feeding a per-region liquidity/market-cap filter, persisted as
// the input universe for Stage 1.
package stage0

import (
	"github.com/jsj9346/screener/internal/domain"
)

// SourceRecord is the logical shape every cascade source must produce,
// regardless of where it came from.
type SourceRecord struct {
	Ticker             string
	Name               string
	Market             string
	ListingDate        string
	Shares             int64
	ClosePrice         float64
	MarketCapLocal     float64
	TradingValueLocal  float64
	Currency           domain.Currency
}

// Source is one candidate in the cascade. GetStockList returns the full
// regional universe in one call; an empty, non-error result tells the
// cascade to fall through to the next source.
type Source interface {
	Name() string
	GetStockList(region domain.Region) ([]SourceRecord, error)
}
