package trading

import (
	"testing"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTickSize_KRTieredTable(t *testing.T) {
	assert.Equal(t, 1.0, tickSize(domain.RegionKR, 1500))
	assert.Equal(t, 5.0, tickSize(domain.RegionKR, 3000))
	assert.Equal(t, 10.0, tickSize(domain.RegionKR, 10000))
	assert.Equal(t, 1000.0, tickSize(domain.RegionKR, 600000))
}

func TestTickSize_NonKRIsFlatCent(t *testing.T) {
	assert.Equal(t, 0.01, tickSize(domain.RegionUS, 150.37))
}

func TestRoundToTick_RoundsDownToValidTick(t *testing.T) {
	assert.Equal(t, 71000.0, roundToTick(domain.RegionKR, 71040))
	assert.InDelta(t, 150.36, roundToTick(domain.RegionUS, 150.369), 0.001)
}
