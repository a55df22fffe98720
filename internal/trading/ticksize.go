package trading

import (
	"math"

	"github.com/jsj9346/screener/internal/domain"
)

// tickSize returns the minimum price increment for price (in major units)
// on region's exchange. KR follows the KRX tiered table; other regions
// trade in decimal cents/fractions and use a flat tick.
func tickSize(region domain.Region, price float64) float64 {
	if region != domain.RegionKR {
		return 0.01
	}
	switch {
	case price < 2000:
		return 1
	case price < 5000:
		return 5
	case price < 20000:
		return 10
	case price < 50000:
		return 50
	case price < 200000:
		return 100
	case price < 500000:
		return 500
	default:
		return 1000
	}
}

// roundToTick rounds price down to the nearest valid tick for region, the
// behavior a resting limit order must satisfy to be accepted.
func roundToTick(region domain.Region, price float64) float64 {
	tick := tickSize(region, price)
	if tick == 0 {
		return price
	}
	return math.Floor(price/tick) * tick
}
