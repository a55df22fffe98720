package masterfile

import (
	"fmt"
	"strings"
)

// MarketCode identifies the upstream master-file market feed.
type MarketCode string

const (
	MarketNasdaq   MarketCode = "nas"
	MarketNYSE     MarketCode = "nys"
	MarketAmex     MarketCode = "ams"
	MarketHongKong MarketCode = "hks"
	MarketShanghai MarketCode = "shs"
	MarketShenzhen MarketCode = "szs"
	MarketTokyo    MarketCode = "tse"
	MarketHanoi    MarketCode = "hnx"
	MarketHoChiMinh MarketCode = "hsx"
)

// NormalizeTicker applies the per-market join-key normalization table from
// spec §4.2, the join key every other stage uses against OHLCV and the
// brokerage order endpoint.
func NormalizeTicker(market MarketCode, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("masterfile: empty ticker for market %s", market)
	}

	switch market {
	case MarketNasdaq, MarketNYSE, MarketAmex:
		return strings.ToUpper(trimmed), nil
	case MarketHongKong:
		if strings.HasSuffix(trimmed, ".HK") {
			return trimmed, nil
		}
		return zeroPad(trimmed, 4) + ".HK", nil
	case MarketShanghai:
		if strings.HasSuffix(trimmed, ".SS") {
			return trimmed, nil
		}
		return trimmed + ".SS", nil
	case MarketShenzhen:
		if strings.HasSuffix(trimmed, ".SZ") {
			return trimmed, nil
		}
		return trimmed + ".SZ", nil
	case MarketTokyo:
		return trimmed, nil
	case MarketHanoi, MarketHoChiMinh:
		return strings.ToUpper(trimmed), nil
	default:
		return "", fmt.Errorf("masterfile: unknown market code %q", market)
	}
}

// zeroPad left-pads s with '0' to width n, leaving longer strings
// untouched (Python's str.zfill, used by the HK ticker normalizer this
// is ported from).
func zeroPad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat("0", n-len(s)) + s
}
