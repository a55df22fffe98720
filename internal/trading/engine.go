package trading

import (
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/blacklist"
	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/errs"
	"github.com/jsj9346/screener/internal/repository"
	"github.com/rs/zerolog"
)

// Broker is the subset of brokerage.Client the engine needs, narrowed so
// tests can substitute a fake.
type Broker interface {
	PlaceOrder(order OrderRequest) (OrderResult, error)
}

// OrderRequest and OrderResult mirror brokerage.Client's wire contract so
// this package does not import the concrete client.
type OrderRequest struct {
	Ticker   string
	Region   domain.Region
	Side     domain.TradeSide
	Quantity int64
	LimitPx  *domain.Money
}

type OrderResult struct {
	OrderRef     string
	ExecutionRef string
	FilledPrice  domain.Money
	FilledAt     time.Time
}

// Intent is one candidate order the gate sequence evaluates.
type Intent struct {
	Ticker              string
	Region              domain.Region
	Sector              string
	Side                domain.TradeSide
	Quantity            int64
	LimitPrice          domain.Money
	LimitPriceKRW       float64
	PositionSizePercent float64
}

// Outcome is the result of running an Intent through Execute.
type Outcome struct {
	Submitted bool
	Rejected  bool
	Reason    string
	TradeID   int64
	Order     OrderResult
}

// Engine runs the ordered 7-gate sequence from spec §4.9 over each order
// intent: blacklist, circuit breakers, position count, sector exposure,
// minimum order amount, tick-size rounding, then submission and ledger
// persistence.
type Engine struct {
	broker   Broker
	bl       *blacklist.Manager
	trades   *repository.TradeRepository
	breakers *repository.CircuitBreakerRepository
	limits   *repository.RiskLimitsRepository
	log      zerolog.Logger
}

func NewEngine(
	broker Broker,
	bl *blacklist.Manager,
	trades *repository.TradeRepository,
	breakers *repository.CircuitBreakerRepository,
	limits *repository.RiskLimitsRepository,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		broker: broker, bl: bl, trades: trades, breakers: breakers, limits: limits,
		log: log.With().Str("component", "trading").Logger(),
	}
}

// Execute runs intent through every gate in order, short-circuiting on
// the first rejection, then submits and reconciles the ledger.
func (e *Engine) Execute(intent Intent) (Outcome, error) {
	now := time.Now().UTC()

	// Gate 1: blacklist.
	blocked, err := e.bl.IsBlacklisted(intent.Ticker, intent.Region)
	if err != nil {
		return Outcome{}, fmt.Errorf("trading: blacklist check %s: %w", intent.Ticker, err)
	}
	if blocked {
		return e.reject(intent, "ticker is blacklisted")
	}

	limits, err := e.limits.Get(intent.Region)
	if err != nil {
		return Outcome{}, fmt.Errorf("trading: load risk limits %s: %w", intent.Region, err)
	}

	// Gate 2: circuit breakers.
	halted, reason, err := checkCircuitBreakers(e.trades, e.breakers, limits, intent.Region, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("trading: circuit breaker check: %w", err)
	}
	if halted {
		return e.reject(intent, reason)
	}

	open, err := e.trades.OpenPositions(intent.Region)
	if err != nil {
		return Outcome{}, fmt.Errorf("trading: load open positions %s: %w", intent.Region, err)
	}

	// Gate 3: position count.
	if intent.Side == domain.SideBuy && len(open) >= limits.MaxPositions {
		return e.reject(intent, fmt.Sprintf("position count %d at max_positions %d", len(open), limits.MaxPositions))
	}

	// Gate 4: sector exposure. Cached per tick via the single OpenPositions
	// load above; no per-order recomputation from the broker.
	if intent.Side == domain.SideBuy && intent.Sector != "" && len(open) > 0 {
		sectorCount := 0
		for _, t := range open {
			if t.Sector == intent.Sector {
				sectorCount++
			}
		}
		projected := float64(sectorCount+1) / float64(len(open)+1) * 100
		if projected > limits.MaxSectorExposurePercent {
			return e.reject(intent, fmt.Sprintf("sector %s exposure %.1f%% would exceed max_sector_exposure_percent %.1f%%", intent.Sector, projected, limits.MaxSectorExposurePercent))
		}
	}

	// Gate 5: minimum order amount.
	orderAmountKRW := intent.LimitPriceKRW * float64(intent.Quantity)
	if orderAmountKRW < limits.MinOrderAmountKRW {
		return e.reject(intent, fmt.Sprintf("order amount %.0f KRW below min_order_amount_krw %.0f", orderAmountKRW, limits.MinOrderAmountKRW))
	}

	// Gate 6: tick-size rounding.
	rounded := roundToTick(intent.Region, intent.LimitPrice.Float())
	limitPx := domain.NewMoney(rounded, intent.LimitPrice.Currency)

	// Gate 7: submit and reconcile.
	result, err := e.broker.PlaceOrder(OrderRequest{
		Ticker: intent.Ticker, Region: intent.Region, Side: intent.Side,
		Quantity: intent.Quantity, LimitPx: &limitPx,
	})
	if err != nil {
		if errs.Is(err, errs.AuthRefused) || errs.Is(err, errs.Transient) {
			return Outcome{}, fmt.Errorf("trading: submit order %s: %w", intent.Ticker, err)
		}
		return e.reject(intent, fmt.Sprintf("order submission refused: %v", err))
	}

	tradeID, err := e.reconcile(intent, result, now)
	if err != nil {
		return Outcome{}, err
	}

	e.log.Info().Str("ticker", intent.Ticker).Str("side", string(intent.Side)).Int64("trade_id", tradeID).Msg("order executed")
	return Outcome{Submitted: true, TradeID: tradeID, Order: result}, nil
}

func (e *Engine) reject(intent Intent, reason string) (Outcome, error) {
	e.log.Debug().Str("ticker", intent.Ticker).Str("reason", reason).Msg("order rejected by gate sequence")
	return Outcome{Rejected: true, Reason: reason}, nil
}

// reconcile persists the fill: a BUY opens a new trade row, a SELL closes
// the matching OPEN trade at the fill price. Fee and tax are passed to
// CloseTrade as zero, so the realized P&L of the closed row excludes them.
func (e *Engine) reconcile(intent Intent, result OrderResult, now time.Time) (int64, error) {
	if intent.Side == domain.SideBuy {
		id, err := e.trades.OpenTrade(domain.Trade{
			Ticker: intent.Ticker, Region: intent.Region, Side: domain.SideBuy, Sector: intent.Sector,
			Quantity: intent.Quantity, EntryPrice: result.FilledPrice,
			OrderRef: result.OrderRef, ExecutionRef: result.ExecutionRef,
			EntryTimestamp: result.FilledAt, PositionSizePercent: intent.PositionSizePercent,
		})
		if err != nil {
			return 0, fmt.Errorf("trading: open trade %s: %w", intent.Ticker, err)
		}
		return id, nil
	}

	open, err := e.trades.OpenPositions(intent.Region)
	if err != nil {
		return 0, fmt.Errorf("trading: load open positions for close %s: %w", intent.Ticker, err)
	}
	var matchID int64
	for _, t := range open {
		if t.Ticker == intent.Ticker {
			matchID = t.ID
			break
		}
	}
	if matchID == 0 {
		return 0, fmt.Errorf("trading: no matching OPEN trade for %s/%s close", intent.Region, intent.Ticker)
	}

	zero := domain.Money{Currency: result.FilledPrice.Currency}
	if err := e.trades.CloseTrade(matchID, result.FilledPrice, zero, zero, now); err != nil {
		return 0, fmt.Errorf("trading: close trade %s: %w", intent.Ticker, err)
	}
	return matchID, nil
}
