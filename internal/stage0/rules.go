package stage0

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jsj9346/screener/internal/domain"
)

// FilterRules is one region's Stage-0 liquidity/market-cap configuration,
// loaded from a JSON file under config/market_filters/<region>.json so it
// can be tuned without a rebuild.
type FilterRules struct {
	MinMarketCapKRW      float64  `json:"min_market_cap_krw"`
	MinTradingValueKRW   float64  `json:"min_trading_value_krw"`
	ExcludeSPAC          bool     `json:"exclude_spac"`
	ExchangeWhitelist    []string `json:"exchange_whitelist"`
}

// defaultRules applies when no per-region file is present, conservative
// enough to exercise the pipeline without excluding an entire market.
func defaultRules() FilterRules {
	return FilterRules{
		MinMarketCapKRW:    50_000_000_000,
		MinTradingValueKRW: 500_000_000,
		ExcludeSPAC:        true,
	}
}

// LoadRules reads <dir>/<region>.json, falling back to defaultRules if the
// file is absent. A malformed file is an error: unlike the blacklist's
// append-heavy temp file, this is operator-edited config and a typo should
// surface immediately rather than silently discard the operator's intent.
func LoadRules(dir string, region domain.Region) (FilterRules, error) {
	path := filepath.Join(dir, strings.ToLower(string(region))+".json")
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultRules(), nil
	}
	if err != nil {
		return FilterRules{}, fmt.Errorf("stage0: read filter rules %s: %w", region, err)
	}
	var rules FilterRules
	if err := json.Unmarshal(raw, &rules); err != nil {
		return FilterRules{}, fmt.Errorf("stage0: parse filter rules %s: %w", region, err)
	}
	return rules, nil
}

// looksLikeSPAC flags the common "acquisition corp" / "special purpose"
// naming pattern used by shell companies across every market in-scope.
func looksLikeSPAC(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"acquisition corp", "acquisition co", "special purpose", "spac"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (rules FilterRules) exchangeAllowed(exchange string) bool {
	if len(rules.ExchangeWhitelist) == 0 {
		return true
	}
	for _, allowed := range rules.ExchangeWhitelist {
		if strings.EqualFold(allowed, exchange) {
			return true
		}
	}
	return false
}

// evaluate applies the rule chain to one already-KRW-normalized record and
// returns a pass flag plus a human-readable reason (spec §4.4).
func (rules FilterRules) evaluate(rec SourceRecord, marketCapKRW, tradingValueKRW float64) (bool, string) {
	if rules.ExcludeSPAC && looksLikeSPAC(rec.Name) {
		return false, "excluded: SPAC/shell naming pattern"
	}
	if !rules.exchangeAllowed(rec.Market) {
		return false, fmt.Sprintf("excluded: exchange %q not in whitelist", rec.Market)
	}
	if marketCapKRW < rules.MinMarketCapKRW {
		return false, fmt.Sprintf("excluded: market cap %.0f KRW below minimum %.0f", marketCapKRW, rules.MinMarketCapKRW)
	}
	if tradingValueKRW < rules.MinTradingValueKRW {
		return false, fmt.Sprintf("excluded: trading value %.0f KRW below minimum %.0f", tradingValueKRW, rules.MinTradingValueKRW)
	}
	return true, ""
}
