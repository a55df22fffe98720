package stage0

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jsj9346/screener/internal/brokerage"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/masterfile"
	"github.com/rs/zerolog"
)

// BrokerageSource is cascade tier (a): the official market API. The
// brokerage client's tradable-tickers endpoint returns identity fields but
// no fundamentals, so price is backfilled with one quote call per ticker
// and market cap / trading value are left at zero rather than fabricated;
// the rule evaluator treats a zero market cap as a legitimate filter
// failure, not a data error.
type BrokerageSource struct {
	client   *brokerage.Client
	exchange string
	limit    int
}

func NewBrokerageSource(client *brokerage.Client, exchange string, limit int) *BrokerageSource {
	return &BrokerageSource{client: client, exchange: exchange, limit: limit}
}

func (s *BrokerageSource) Name() string { return "brokerage_api" }

func (s *BrokerageSource) GetStockList(region domain.Region) ([]SourceRecord, error) {
	tickers, err := s.client.GetTradableTickers(s.exchange, s.limit)
	if err != nil {
		return nil, fmt.Errorf("stage0: brokerage source %s: %w", region, err)
	}
	out := make([]SourceRecord, 0, len(tickers))
	for _, t := range tickers {
		rec := SourceRecord{
			Ticker:      t.Symbol,
			Name:        t.Name,
			Market:      t.Exchange,
			ListingDate: t.ListingDate.Format("2006-01-02"),
			Currency:    t.Currency,
		}
		if quote, err := s.client.GetQuote(t.Symbol, region); err == nil {
			rec.ClosePrice = quote.Price.Float()
		}
		out = append(out, rec)
	}
	return out, nil
}

// HTTPSource is cascade tier (b): a public market-data endpoint returning
// the same logical shape as JSON, grounded on the teacher's yahoo client's
// plain GET-and-decode shape.
type HTTPSource struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewHTTPSource(baseURL string, log zerolog.Logger) *HTTPSource {
	return &HTTPSource{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}, log: log.With().Str("component", "stage0.http_source").Logger()}
}

func (s *HTTPSource) Name() string { return "public_endpoint" }

type httpSourcePayload struct {
	Ticker            string  `json:"ticker"`
	Name              string  `json:"name"`
	Market            string  `json:"market"`
	ListingDate       string  `json:"listing_date"`
	Shares            int64   `json:"shares"`
	ClosePrice        float64 `json:"close_price"`
	MarketCapLocal    float64 `json:"market_cap_local"`
	TradingValueLocal float64 `json:"trading_value_local"`
	Currency          string  `json:"currency"`
}

func (s *HTTPSource) GetStockList(region domain.Region) ([]SourceRecord, error) {
	resp, err := s.http.Get(fmt.Sprintf("%s/stocks/%s", s.baseURL, region))
	if err != nil {
		return nil, fmt.Errorf("stage0: http source %s: %w", region, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stage0: http source %s: status %d", region, resp.StatusCode)
	}

	var payload []httpSourcePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("stage0: decode http source %s: %w", region, err)
	}

	out := make([]SourceRecord, 0, len(payload))
	for _, p := range payload {
		out = append(out, SourceRecord{
			Ticker: p.Ticker, Name: p.Name, Market: p.Market, ListingDate: p.ListingDate,
			Shares: p.Shares, ClosePrice: p.ClosePrice, MarketCapLocal: p.MarketCapLocal,
			TradingValueLocal: p.TradingValueLocal, Currency: domain.Currency(p.Currency),
		})
	}
	return out, nil
}

// MasterfileSource is the offline fallback, tier (d): the last
// successfully cached overseas master file, which reuses its existing
// on-disk copy whenever the upstream size hasn't changed and carries no
// fundamentals either, same tradeoff as BrokerageSource.
type MasterfileSource struct {
	mgr    *masterfile.Manager
	market masterfile.MarketCode
}

func NewMasterfileSource(mgr *masterfile.Manager, market masterfile.MarketCode) *MasterfileSource {
	return &MasterfileSource{mgr: mgr, market: market}
}

func (s *MasterfileSource) Name() string { return "offline_master_file" }

func (s *MasterfileSource) GetStockList(region domain.Region) ([]SourceRecord, error) {
	tickers, err := s.mgr.Sync(region, s.market, false)
	if err != nil {
		return nil, fmt.Errorf("stage0: masterfile source %s: %w", region, err)
	}
	out := make([]SourceRecord, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, SourceRecord{
			Ticker: t.Symbol, Name: t.Name, Market: t.Exchange, Currency: t.Currency,
		})
	}
	return out, nil
}
