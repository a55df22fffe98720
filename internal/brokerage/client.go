// Package brokerage implements the equity-execution brokerage client
// (spec §4.1): OAuth-style token lifecycle, rate-limited HTTP endpoints,
// paginated OHLCV collection, and order placement, grounded on the
// teacher's tradernet/sdk request-signing client and the yahoo client's
// retry loop.
package brokerage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/errs"
	"github.com/rs/zerolog"
)

const (
	minRequestGap   = 50 * time.Millisecond
	tokenValidity   = 24 * time.Hour
	paginationChunk = 150 * 24 * time.Hour // ~150 calendar days per upstream call window
	maxRowsPerCall  = 100
)

// Client is a rate-limited, token-authenticated brokerage API client.
type Client struct {
	baseURL   string
	appKey    string
	appSecret string
	http      *http.Client
	limiter   *rateLimiter
	tokens    *tokenStore
	log       zerolog.Logger
}

// Config configures a new Client.
type Config struct {
	BaseURL        string
	AppKey         string
	AppSecret      string
	TokenCachePath string
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	scoped := log.With().Str("component", "brokerage").Logger()
	return &Client{
		baseURL:   cfg.BaseURL,
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   newRateLimiter(minRequestGap),
		tokens:    newTokenStore(cfg.TokenCachePath, scoped),
		log:       scoped,
	}
}

// Quote is a single point-in-time price snapshot.
type Quote struct {
	Ticker string
	Price  domain.Money
	AsOf   time.Time
}

// ETFNav is an ETF's net asset value per unit.
type ETFNav struct {
	Ticker string
	NAV    domain.Money
	AsOf   time.Time
}

// ETFDetails carries ETF-specific metadata beyond the base Ticker.
type ETFDetails struct {
	Ticker        string
	UnderlyingIdx string
	ExpenseRatio  float64
	AUM           domain.Money
}

// OrderRequest is the input to PlaceOrder.
type OrderRequest struct {
	Ticker   string
	Region   domain.Region
	Side     domain.TradeSide
	Quantity int64
	LimitPx  *domain.Money
}

// OrderResult is the brokerage's acknowledgement of a submitted order.
type OrderResult struct {
	OrderRef     string
	ExecutionRef string
	FilledPrice  domain.Money
	FilledAt     time.Time
}

// TokenState describes GetTokenStatus's result.
type TokenState string

const (
	TokenStateValid        TokenState = "VALID"
	TokenStateExpiringSoon TokenState = "EXPIRING_SOON"
	TokenStateExpired      TokenState = "EXPIRED"
	TokenStateAbsent       TokenState = "ABSENT"
)

// TokenStatus reports the current token's lifecycle state.
type TokenStatus struct {
	State     TokenState
	ExpiresAt time.Time
	Remaining time.Duration
}

// GetTokenStatus reports the cached token's state without triggering a
// refresh.
func (c *Client) GetTokenStatus() (TokenStatus, error) {
	tok, err := c.tokens.Load()
	if err != nil {
		return TokenStatus{}, err
	}
	now := time.Now()
	if tok == nil {
		return TokenStatus{State: TokenStateAbsent}, nil
	}
	if !tok.ValidAt(now) {
		return TokenStatus{State: TokenStateExpired, ExpiresAt: tok.ExpiresAt}, nil
	}
	remaining := tok.RemainingAt(now)
	if remaining < domain.PreemptiveRefreshWindow {
		return TokenStatus{State: TokenStateExpiringSoon, ExpiresAt: tok.ExpiresAt, Remaining: remaining}, nil
	}
	return TokenStatus{State: TokenStateValid, ExpiresAt: tok.ExpiresAt, Remaining: remaining}, nil
}

// accessToken implements the 4-step algorithm of spec §4.1.
func (c *Client) accessToken(forceRefresh bool) (string, error) {
	now := time.Now()

	if !forceRefresh {
		cached, err := c.tokens.Load()
		if err != nil {
			return "", err
		}
		if cached != nil {
			if cached.ValidAt(now) && cached.RemainingAt(now) < domain.PreemptiveRefreshWindow {
				if fresh, err := c.issueToken(); err == nil {
					return fresh.AccessToken, nil
				}
				c.log.Warn().Msg("pre-emptive token refresh failed, using still-valid cache")
				return cached.AccessToken, nil
			}
			if cached.ValidAt(now) {
				return cached.AccessToken, nil
			}
		}
	}

	fresh, err := c.issueToken()
	if err != nil {
		// A 403 from issuance is a transient refusal (upstream allows at
		// most one issuance per day); fall back to cache if still valid.
		if errs.Is(err, errs.AuthRefused) {
			if cached, loadErr := c.tokens.Load(); loadErr == nil && cached != nil && cached.ValidAt(now) {
				c.log.Warn().Msg("token issuance refused, falling back to cached token")
				return cached.AccessToken, nil
			}
		}
		return "", err
	}
	return fresh.AccessToken, nil
}

func (c *Client) issueToken() (*domain.TokenCache, error) {
	c.limiter.Wait()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/oauth/token", nil)
	if err != nil {
		return nil, errs.Wrap(errs.Transient, "issueToken", err)
	}
	req.SetBasicAuth(c.appKey, c.appSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.Transient, "issueToken", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, errs.New(errs.AuthRefused, "issueToken", "token issuance forbidden")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.Transient, "issueToken", fmt.Sprintf("status %d", resp.StatusCode))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errs.Wrap(errs.Transient, "issueToken", err)
	}

	now := time.Now()
	expiresAt := now.Add(tokenValidity)
	if body.ExpiresIn > 0 {
		expiresAt = now.Add(time.Duration(body.ExpiresIn) * time.Second)
	}

	tok := domain.TokenCache{AccessToken: body.AccessToken, ExpiresAt: expiresAt, CachedAt: now, PID: os.Getpid()}
	if err := c.tokens.Save(tok); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist issued token")
	}
	return &tok, nil
}

// doJSON performs a rate-limited, token-authenticated GET/POST with JSON
// decoding and the spec §4.1 retry policy (Transient only).
func (c *Client) doJSON(method, path string, body any, out any) error {
	return withRetry(c.log, path, defaultRetry, func() error {
		c.limiter.Wait()

		token, err := c.accessToken(false)
		if err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return errs.Wrap(errs.Validation, "doJSON", err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequest(method, c.baseURL+path, reader)
		if err != nil {
			return errs.Wrap(errs.Transient, "doJSON", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return errs.Wrap(errs.Transient, "doJSON", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return errs.New(errs.Transient, "doJSON", fmt.Sprintf("status %d", resp.StatusCode))
		}
		if resp.StatusCode >= 400 {
			return errs.New(errs.Validation, "doJSON", fmt.Sprintf("status %d", resp.StatusCode))
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.Wrap(errs.Transient, "doJSON", err)
		}
		if len(data) == 0 {
			return errs.New(errs.Transient, "doJSON", "empty payload")
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return errs.Wrap(errs.Transient, "doJSON", err)
		}
		return nil
	})
}

// GetOHLCV collects the trailing `days` business days of bars for ticker,
// implementing spec §4.1's pagination walk: ~150-calendar-day chunks,
// deduplicated by date (first wins), sorted ascending, trimmed to the tail
// of N rows. On a chunk-level failure the walk stops and already-collected
// chunks are returned (best-effort).
func (c *Client) GetOHLCV(ticker string, region domain.Region, days int) ([]domain.OHLCVBar, error) {
	seen := make(map[string]domain.OHLCVBar)
	to := time.Now()

	for collected := 0; collected < days+30; {
		from := to.Add(-paginationChunk)

		var page []domain.OHLCVBar
		err := c.doJSON(http.MethodGet,
			fmt.Sprintf("/market/ohlcv?ticker=%s&from=%s&to=%s",
				ticker, from.Format("2006-01-02"), to.Format("2006-01-02")),
			nil, &page)
		if err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("ohlcv chunk failed, returning best-effort")
			break
		}
		if len(page) == 0 {
			break
		}
		for _, bar := range page {
			bar.Ticker = ticker
			bar.Region = region
			bar.Tf = domain.TimeframeDaily
			key := bar.Date.Format("2006-01-02")
			if _, exists := seen[key]; !exists {
				seen[key] = bar
			}
		}
		collected += len(page)
		to = from
		if len(page) < maxRowsPerCall {
			break
		}
	}

	bars := make([]domain.OHLCVBar, 0, len(seen))
	for _, b := range seen {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (c *Client) GetQuote(ticker string, region domain.Region) (Quote, error) {
	var q Quote
	err := c.doJSON(http.MethodGet, "/market/quote?ticker="+ticker, nil, &q)
	return q, err
}

func (c *Client) GetETFNav(ticker string) (ETFNav, error) {
	var nav ETFNav
	err := c.doJSON(http.MethodGet, "/etf/nav?ticker="+ticker, nil, &nav)
	return nav, err
}

func (c *Client) GetETFDetails(ticker string) (ETFDetails, error) {
	var d ETFDetails
	err := c.doJSON(http.MethodGet, "/etf/details?ticker="+ticker, nil, &d)
	return d, err
}

func (c *Client) GetTradableTickers(exchange string, limit int) ([]domain.Ticker, error) {
	path := fmt.Sprintf("/market/tickers?exchange=%s", exchange)
	if limit > 0 {
		path += fmt.Sprintf("&limit=%d", limit)
	}
	var tickers []domain.Ticker
	err := c.doJSON(http.MethodGet, path, nil, &tickers)
	return tickers, err
}

func (c *Client) PlaceOrder(order OrderRequest) (OrderResult, error) {
	var result OrderResult
	err := c.doJSON(http.MethodPost, "/orders", order, &result)
	return result, err
}
