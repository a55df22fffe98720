package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

// TradeRepository owns the trades ledger. Entry rows are inserted OPEN by
// internal/trading on fill; CloseTrade later fills in the exit columns and
// flips trade_status to CLOSED (spec §8: exit_timestamp >= entry_timestamp).
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewTradeRepository(db *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{db: db, log: log.With().Str("repo", "trade").Logger()}
}

const tradeColumns = `ticker, region, side, quantity, entry_price_minor, entry_currency,
	exit_price_minor, fee_minor, tax_minor, order_no, execution_no,
	entry_timestamp, exit_timestamp, trade_status, sector, position_size_percent`

// OpenTrade inserts a new OPEN trade row and returns its assigned id.
func (r *TradeRepository) OpenTrade(t domain.Trade) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO trades (`+tradeColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		strings.ToUpper(t.Ticker), string(t.Region), string(t.Side), t.Quantity,
		t.EntryPrice.Minor, string(t.EntryPrice.Currency),
		0, t.Fee.Minor, t.Tax.Minor, t.OrderRef, t.ExecutionRef,
		t.EntryTimestamp.Format(time.RFC3339), nil, string(domain.TradeOpen),
		t.Sector, t.PositionSizePercent,
	)
	if err != nil {
		return 0, fmt.Errorf("repository: open trade %s: %w", t.Ticker, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("repository: open trade id %s: %w", t.Ticker, err)
	}
	r.log.Info().Int64("trade_id", id).Str("ticker", t.Ticker).Msg("trade opened")
	return id, nil
}

// CloseTrade records the exit fill and flips the row to CLOSED.
func (r *TradeRepository) CloseTrade(id int64, exitPrice domain.Money, fee, tax domain.Money, exitTimestamp time.Time) error {
	res, err := r.db.Exec(
		`UPDATE trades SET exit_price_minor=?, fee_minor=fee_minor+?, tax_minor=tax_minor+?,
		 exit_timestamp=?, trade_status=? WHERE id=? AND trade_status=?`,
		exitPrice.Minor, fee.Minor, tax.Minor, exitTimestamp.Format(time.RFC3339),
		string(domain.TradeClosed), id, string(domain.TradeOpen),
	)
	if err != nil {
		return fmt.Errorf("repository: close trade %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("repository: close trade %d: no matching OPEN trade", id)
	}
	r.log.Info().Int64("trade_id", id).Msg("trade closed")
	return nil
}

// OpenPositions returns every OPEN trade, optionally scoped to a region,
// used by the gate sequence's position-count and sector-exposure checks.
func (r *TradeRepository) OpenPositions(region domain.Region) ([]domain.Trade, error) {
	rows, err := r.db.Query(
		`SELECT id, `+tradeColumns+` FROM trades WHERE trade_status=? AND region=?`,
		string(domain.TradeOpen), string(region),
	)
	if err != nil {
		return nil, fmt.Errorf("repository: open positions %s: %w", region, err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan trade: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ClosedOn returns every trade for region whose stored exit_timestamp
// falls on asOf's calendar day, read in asOf's own location (the trading
// engine passes UTC), the input to its daily-loss-limit breaker.
func (r *TradeRepository) ClosedOn(region domain.Region, asOf time.Time) ([]domain.Trade, error) {
	day := asOf.Format("2006-01-02")
	rows, err := r.db.Query(
		`SELECT id, `+tradeColumns+` FROM trades
		 WHERE trade_status=? AND region=? AND substr(exit_timestamp,1,10)=?`,
		string(domain.TradeClosed), string(region), day,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: closed trades %s: %w", region, err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan trade: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// RecentClosed returns the n most recently closed trades for region,
// newest first, the input to the consecutive-loss breaker.
func (r *TradeRepository) RecentClosed(region domain.Region, n int) ([]domain.Trade, error) {
	rows, err := r.db.Query(
		`SELECT id, `+tradeColumns+` FROM trades WHERE trade_status=? AND region=?
		 ORDER BY exit_timestamp DESC LIMIT ?`,
		string(domain.TradeClosed), string(region), n,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: recent closed trades %s: %w", region, err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan trade: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTrade(row scannable) (*domain.Trade, error) {
	var t domain.Trade
	var region, side, entryCurrency, status, entryTS string
	var exitTS sql.NullString

	err := row.Scan(
		&t.ID, &t.Ticker, &region, &side, &t.Quantity, &t.EntryPrice.Minor, &entryCurrency,
		&t.ExitPrice.Minor, &t.Fee.Minor, &t.Tax.Minor, &t.OrderRef, &t.ExecutionRef,
		&entryTS, &exitTS, &status, &t.Sector, &t.PositionSizePercent,
	)
	if err != nil {
		return nil, err
	}
	t.Region = domain.Region(region)
	t.Side = domain.TradeSide(side)
	t.Status = domain.TradeStatus(status)
	t.EntryPrice.Currency = domain.Currency(entryCurrency)
	t.ExitPrice.Currency = t.EntryPrice.Currency
	t.Fee.Currency = t.EntryPrice.Currency
	t.Tax.Currency = t.EntryPrice.Currency

	if t.EntryTimestamp, err = time.Parse(time.RFC3339, entryTS); err != nil {
		return nil, err
	}
	if exitTS.Valid {
		if t.ExitTimestamp, err = time.Parse(time.RFC3339, exitTS.String); err != nil {
			return nil, err
		}
	}
	return &t, nil
}
