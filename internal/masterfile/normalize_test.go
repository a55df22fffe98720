package masterfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTicker_USMarkets(t *testing.T) {
	got, err := NormalizeTicker(MarketNasdaq, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got)
}

func TestNormalizeTicker_HongKong_ZeroPads(t *testing.T) {
	got, err := NormalizeTicker(MarketHongKong, "700")
	require.NoError(t, err)
	assert.Equal(t, "0700.HK", got)

	got, err = NormalizeTicker(MarketHongKong, "0700")
	require.NoError(t, err)
	assert.Equal(t, "0700.HK", got)
}

func TestNormalizeTicker_Shanghai_Shenzhen_Suffix(t *testing.T) {
	ss, err := NormalizeTicker(MarketShanghai, "600519")
	require.NoError(t, err)
	assert.Equal(t, "600519.SS", ss)

	sz, err := NormalizeTicker(MarketShenzhen, "000001")
	require.NoError(t, err)
	assert.Equal(t, "000001.SZ", sz)
}

func TestNormalizeTicker_Tokyo_Unchanged(t *testing.T) {
	got, err := NormalizeTicker(MarketTokyo, "7203")
	require.NoError(t, err)
	assert.Equal(t, "7203", got)
}

func TestNormalizeTicker_Vietnam_Uppercase(t *testing.T) {
	got, err := NormalizeTicker(MarketHanoi, "vcb")
	require.NoError(t, err)
	assert.Equal(t, "VCB", got)
}

func TestNormalizeTicker_EmptyRaw_Errors(t *testing.T) {
	_, err := NormalizeTicker(MarketNasdaq, "   ")
	assert.Error(t, err)
}

// NormalizeTicker must be idempotent: normalizing an already-normalized
// ticker returns it unchanged rather than re-suffixing or erroring.
func TestNormalizeTicker_RoundTrip(t *testing.T) {
	cases := []struct {
		market MarketCode
		raw    string
	}{
		{MarketNasdaq, "AAPL"},
		{MarketHongKong, "700"},
		{MarketHongKong, "0700.HK"},
		{MarketShanghai, "600519"},
		{MarketShanghai, "600519.SS"},
		{MarketShenzhen, "000001"},
		{MarketShenzhen, "000001.SZ"},
		{MarketTokyo, "7203"},
		{MarketHanoi, "VCB"},
	}

	for _, c := range cases {
		once, err := NormalizeTicker(c.market, c.raw)
		require.NoError(t, err)

		twice, err := NormalizeTicker(c.market, once)
		require.NoError(t, err)

		assert.Equal(t, once, twice, "normalize(normalize(%q, %s), %s) should equal normalize(%q, %s)", c.raw, c.market, c.market, c.raw, c.market)
	}
}
