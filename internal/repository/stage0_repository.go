package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

// Stage0Repository owns the filter_cache_stage0 table.
type Stage0Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewStage0Repository(db *sql.DB, log zerolog.Logger) *Stage0Repository {
	return &Stage0Repository{db: db, log: log.With().Str("repo", "stage0").Logger()}
}

const stage0Columns = `ticker, region, filter_date, name, exchange, currency,
	market_cap_krw, market_cap_local, trading_value_krw, trading_value_local,
	current_price_krw, current_price_local, exchange_rate_to_krw, exchange_rate_date,
	stage0_passed, filter_reason`

// ReplaceForDate atomically replaces every stage0 row for (region,
// filterDate) inside one transaction, matching spec §6's "transactional
// replace" requirement for a full rescan.
func (r *Stage0Repository) ReplaceForDate(region domain.Region, filterDate time.Time, entries []domain.Stage0Entry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("repository: begin stage0 replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dateStr := filterDate.Format("2006-01-02")
	if _, err := tx.Exec(`DELETE FROM filter_cache_stage0 WHERE region=? AND filter_date=?`, string(region), dateStr); err != nil {
		return fmt.Errorf("repository: clear stage0: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO filter_cache_stage0 (` + stage0Columns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("repository: prepare stage0 insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.Exec(
			strings.ToUpper(e.Ticker), string(e.Region), dateStr, e.Name, e.Exchange, string(e.Currency),
			e.MarketCapKRW, e.MarketCapLocal, e.TradingValueKRW, e.TradingValueLocal,
			e.CurrentPriceKRW, e.CurrentPriceLocal, e.ExchangeRateToKRW, e.ExchangeRateDate.Format("2006-01-02"),
			boolToInt(e.Passed), e.FilterReason,
		)
		if err != nil {
			return fmt.Errorf("repository: insert stage0 %s: %w", e.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit stage0 replace: %w", err)
	}
	r.log.Info().Str("region", string(region)).Int("entries", len(entries)).Msg("stage0 cache replaced")
	return nil
}

// PassedOn returns the tickers that passed stage0 on filterDate, the input
// to stage1.
func (r *Stage0Repository) PassedOn(region domain.Region, filterDate time.Time) ([]domain.Stage0Entry, error) {
	rows, err := r.db.Query(
		`SELECT `+stage0Columns+` FROM filter_cache_stage0 WHERE region=? AND filter_date=? AND stage0_passed=1`,
		string(region), filterDate.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("repository: passed stage0 %s: %w", region, err)
	}
	defer rows.Close()

	var out []domain.Stage0Entry
	for rows.Next() {
		e, err := scanStage0(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan stage0: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// LatestFilterDate returns the most recent filter_date cached for region,
// used for the cache-first TTL check in internal/stage0.
func (r *Stage0Repository) LatestFilterDate(region domain.Region) (time.Time, bool, error) {
	var dateStr string
	err := r.db.QueryRow(`SELECT filter_date FROM filter_cache_stage0 WHERE region=? ORDER BY filter_date DESC LIMIT 1`, string(region)).Scan(&dateStr)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: latest stage0 date %s: %w", region, err)
	}
	d, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, false, err
	}
	return d, true, nil
}

func scanStage0(row scannable) (*domain.Stage0Entry, error) {
	var e domain.Stage0Entry
	var region, currency, filterDate, rateDate string
	var passed int
	err := row.Scan(
		&e.Ticker, &region, &filterDate, &e.Name, &e.Exchange, &currency,
		&e.MarketCapKRW, &e.MarketCapLocal, &e.TradingValueKRW, &e.TradingValueLocal,
		&e.CurrentPriceKRW, &e.CurrentPriceLocal, &e.ExchangeRateToKRW, &rateDate,
		&passed, &e.FilterReason,
	)
	if err != nil {
		return nil, err
	}
	e.Region = domain.Region(region)
	e.Currency = domain.Currency(currency)
	e.Passed = passed != 0
	if e.FilterDate, err = time.Parse("2006-01-02", filterDate); err != nil {
		return nil, err
	}
	if e.ExchangeRateDate, err = time.Parse("2006-01-02", rateDate); err != nil {
		return nil, err
	}
	return &e, nil
}
