package stage0

import (
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/market"
)

// DefaultNonKRTTLHours resolves the open question spec.md §4.4 leaves
// unspecified for non-KR markets: the source gives an explicit
// market-hours-aware table for KR (1h open / 24h closed) and says the rest
// "should be specified externally, not inferred." A flat TTL is the
// smallest external specification that doesn't block the other five
// regions on a guess, recorded as a decision in DESIGN.md rather than
// silently assumed.
const DefaultNonKRTTLHours = 6

// cacheTTL returns how old a region's Stage-0 snapshot may be before it
// must be recomputed.
func cacheTTL(region domain.Region, now time.Time) time.Duration {
	if region != domain.RegionKR {
		return DefaultNonKRTTLHours * time.Hour
	}
	if market.IsOpen(region, now) {
		return time.Hour
	}
	return 24 * time.Hour
}
