package domain

import "time"

// Ticker is a listed security's static identity row.
// Identity: (Ticker, Region). is_active=false excludes it from every
// screening stage (spec §3).
type Ticker struct {
	ListingDate time.Time `json:"listing_date"`
	Symbol      string    `json:"ticker"`
	Region      Region    `json:"region"`
	Name        string    `json:"name"`
	Exchange    string    `json:"exchange"`
	Currency    Currency  `json:"currency"`
	AssetType   AssetType `json:"asset_type"`
	LotSize     int       `json:"lot_size"`
	IsActive    bool      `json:"is_active"`
}

// Timeframe is the bar resolution of an OHLCVBar.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "D"
	TimeframeWeekly  Timeframe = "W"
	TimeframeMonthly Timeframe = "M"
)

// Indicators holds the cached technical indicators computed over an
// OHLCVBar's trailing window. Nil fields mean the window exceeded
// available history (spec §4.5).
type Indicators struct {
	MA5          *float64 `json:"ma5,omitempty"`
	MA20         *float64 `json:"ma20,omitempty"`
	MA60         *float64 `json:"ma60,omitempty"`
	MA120        *float64 `json:"ma120,omitempty"`
	MA200        *float64 `json:"ma200,omitempty"`
	RSI14        *float64 `json:"rsi_14,omitempty"`
	MACD         *float64 `json:"macd,omitempty"`
	MACDSignal   *float64 `json:"macd_signal,omitempty"`
	MACDHist     *float64 `json:"macd_hist,omitempty"`
	BollingerMid *float64 `json:"bb_mid,omitempty"`
	BollingerUp  *float64 `json:"bb_upper,omitempty"`
	BollingerLow *float64 `json:"bb_lower,omitempty"`
	ATR14        *float64 `json:"atr_14,omitempty"`
	VolumeMA20   *float64 `json:"volume_ma20,omitempty"`
	VolumeRatio  *float64 `json:"volume_ratio,omitempty"`
}

// OHLCVBar is a single observation at a given timeframe.
// Identity: (Ticker, Region, Timeframe, Date). Upserts overwrite in place.
type OHLCVBar struct {
	Date   time.Time `json:"date"`
	Ticker string    `json:"ticker"`
	Region Region    `json:"region"`
	Tf     Timeframe `json:"timeframe"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
	Indicators
}

// Valid checks the OHLCV invariant from spec §8: low <= min(o,c),
// high >= max(o,c), volume >= 0.
func (b OHLCVBar) Valid() bool {
	if b.Volume < 0 {
		return false
	}
	minOC := b.Open
	if b.Close < minOC {
		minOC = b.Close
	}
	maxOC := b.Open
	if b.Close > maxOC {
		maxOC = b.Close
	}
	return b.Low <= minOC && b.High >= maxOC
}

// Stage0Entry is the output row of the Stage-0 scanner for one ticker on
// one filter_date. Identity: (Ticker, Region, FilterDate).
type Stage0Entry struct {
	FilterDate         time.Time `json:"filter_date"`
	ExchangeRateDate   time.Time `json:"exchange_rate_date"`
	Ticker             string    `json:"ticker"`
	Region             Region    `json:"region"`
	Name               string    `json:"name"`
	Exchange           string    `json:"exchange"`
	Currency           Currency  `json:"currency"`
	FilterReason       string    `json:"filter_reason"`
	MarketCapKRW       float64   `json:"market_cap_krw"`
	MarketCapLocal     float64   `json:"market_cap_local"`
	TradingValueKRW    float64   `json:"trading_value_krw"`
	TradingValueLocal  float64   `json:"trading_value_local"`
	CurrentPriceKRW    float64   `json:"current_price_krw"`
	CurrentPriceLocal  float64   `json:"current_price_local"`
	ExchangeRateToKRW  float64   `json:"exchange_rate_to_krw"`
	Passed             bool      `json:"stage0_passed"`
}

// Stage1Entry is the output row of the Stage-1 technical filter.
// Identity: (Ticker, Region, FilterDate). References a Stage0Entry that
// passed on the same filter_date (spec §8 universal invariant).
type Stage1Entry struct {
	FilterDate      time.Time `json:"filter_date"`
	Ticker          string    `json:"ticker"`
	Region          Region    `json:"region"`
	FilterReason    string    `json:"filter_reason"`
	MA5             float64   `json:"ma5"`
	MA20            float64   `json:"ma20"`
	MA60            float64   `json:"ma60"`
	RSI14           float64   `json:"rsi_14"`
	CurrentPriceKRW float64   `json:"current_price_krw"`
	Week52HighKRW   float64   `json:"week_52_high_krw"`
	Volume3DAvg     float64   `json:"volume_3d_avg"`
	Volume10DAvg    float64   `json:"volume_10d_avg"`
	CompositeScore  float64   `json:"composite_score"`
	Passed          bool      `json:"stage1_passed"`
}

// Recommendation is the Stage-2 engine's trade signal.
type Recommendation string

const (
	RecommendationBuy   Recommendation = "BUY"
	RecommendationWatch Recommendation = "WATCH"
	RecommendationAvoid Recommendation = "AVOID"
)

// ModuleScore is one scoring module's contribution to a Stage2Entry.
type ModuleScore struct {
	Name        string  `json:"name"`
	Points      int     `json:"points"`
	MaxPoints   int     `json:"max_points"`
	Explanation string  `json:"explanation"`
}

// Stage2Entry is the output row of the Stage-2 scoring engine.
// Identity: (Ticker, Region, CacheTimestamp).
type Stage2Entry struct {
	CacheTimestamp    time.Time      `json:"cache_timestamp"`
	Ticker            string         `json:"ticker"`
	Region            Region         `json:"region"`
	MarketRegime      string         `json:"market_regime"`
	VolatilityRegime  string         `json:"volatility_regime"`
	Recommendation    Recommendation `json:"recommendation"`
	DetectedPattern   string         `json:"detected_pattern"`
	PatternConfidence float64        `json:"pattern_confidence"`
	ModuleScores      []ModuleScore  `json:"module_scores"`
	TotalScore        int            `json:"total_score"`
	ExecutionTimeMs    int64         `json:"execution_time_ms"`
}

// TradeSide is BUY or SELL.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// TradeStatus tracks a Trade's lifecycle: OPEN on buy fill, CLOSED on the
// matching sell fill.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "OPEN"
	TradeClosed TradeStatus = "CLOSED"
)

// Trade is a single executed buy or the matching close of one.
// A CLOSED trade has both EntryTimestamp and ExitTimestamp set with
// ExitTimestamp >= EntryTimestamp (spec §8).
type Trade struct {
	ID                   int64       `json:"id"`
	Ticker               string      `json:"ticker"`
	Region               Region      `json:"region"`
	Side                 TradeSide   `json:"side"`
	Status               TradeStatus `json:"trade_status"`
	Sector               string      `json:"sector"`
	OrderRef             string      `json:"order_no"`
	ExecutionRef         string      `json:"execution_no"`
	Quantity             int64       `json:"quantity"`
	EntryPrice           Money       `json:"entry_price"`
	ExitPrice            Money       `json:"exit_price"`
	Fee                  Money       `json:"fee"`
	Tax                  Money       `json:"tax"`
	PositionSizePercent  float64     `json:"position_size_percent"`
	EntryTimestamp       time.Time   `json:"entry_timestamp"`
	ExitTimestamp        time.Time   `json:"exit_timestamp"`
}

// RealizedPL returns the realized profit/loss of a CLOSED SELL trade, net
// of fee and tax. Panics if the trade is not CLOSED.
func (t Trade) RealizedPL() Money {
	if t.Status != TradeClosed {
		panic("domain: RealizedPL called on a non-CLOSED trade")
	}
	gross := Money{Currency: t.EntryPrice.Currency, Minor: (t.ExitPrice.Minor - t.EntryPrice.Minor) * t.Quantity}
	return gross.Sub(t.Fee).Sub(t.Tax)
}

// FilterExecutionLogEntry is an append-only audit row written by every
// stage on every run.
type FilterExecutionLogEntry struct {
	ExecutionDate time.Time     `json:"execution_date"`
	Stage         int           `json:"stage"`
	Region        Region        `json:"region"`
	InputCount    int           `json:"input_count"`
	OutputCount   int           `json:"output_count"`
	ReductionRate float64       `json:"reduction_rate"`
	Elapsed       time.Duration `json:"elapsed"`
}

// BlacklistEntry is one file-backed temporary exclusion.
type BlacklistEntry struct {
	AddedDate  time.Time  `json:"added_date"`
	ExpireDate *time.Time `json:"expire_date,omitempty"`
	Ticker     string     `json:"ticker"`
	Region     Region     `json:"region"`
	Reason     string     `json:"reason"`
	AddedBy    string     `json:"added_by"`
	Notes      string     `json:"notes,omitempty"`
}

// Expired reports whether the entry should be treated as absent at time t.
func (e BlacklistEntry) Expired(t time.Time) bool {
	return e.ExpireDate != nil && e.ExpireDate.Before(t)
}

// TokenCache is the process-wide brokerage OAuth token record.
type TokenCache struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	CachedAt    time.Time `json:"cached_at"`
	PID         int       `json:"pid"`
}

// RefreshBuffer is the safety margin subtracted from ExpiresAt when
// deciding validity (spec §3, §4.1: "now < expires_at - 300s").
const RefreshBuffer = 5 * time.Minute

// PreemptiveRefreshWindow is the remaining-lifetime threshold under which
// the client attempts an opportunistic refresh (spec §4.1: < 1800s).
const PreemptiveRefreshWindow = 30 * time.Minute

// ValidAt reports whether the cached token is still usable at time now.
func (t TokenCache) ValidAt(now time.Time) bool {
	return now.Before(t.ExpiresAt.Add(-RefreshBuffer))
}

// RemainingAt returns how long the token remains valid (may be negative).
func (t TokenCache) RemainingAt(now time.Time) time.Duration {
	return t.ExpiresAt.Add(-RefreshBuffer).Sub(now)
}

// RiskLimits are the per-region risk-gate thresholds consulted by the
// trading engine's gate sequence.
type RiskLimits struct {
	Region                   Region  `json:"region"`
	MaxPositions             int     `json:"max_positions"`
	MaxSectorExposurePercent float64 `json:"max_sector_exposure_percent"`
	MaxSinglePositionPercent float64 `json:"max_single_position_percent"`
	MinOrderAmountKRW        float64 `json:"min_order_amount_krw"`
	DailyLossLimitKRW        float64 `json:"daily_loss_limit_krw"`
	ConsecutiveLossLimit     int     `json:"consecutive_loss_limit"`
}

// CircuitBreakerLog is one row of circuit_breaker_logs: a trip event
// raised by any stage that protects itself against a cascading failure
// (OHLCV collection in C7, the trading gate sequence in C11).
type CircuitBreakerLog struct {
	TriggeredAt  time.Time `json:"triggered_at"`
	Breaker      string    `json:"breaker"`
	TriggerValue float64   `json:"trigger_value"`
	LimitValue   float64   `json:"limit_value"`
	Reason       string    `json:"reason"`
	Metadata     string    `json:"metadata"`
	ActionTaken  string    `json:"action_taken,omitempty"`
}
