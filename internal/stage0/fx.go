package stage0

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/jsj9346/screener/internal/errs"
)

// exchangeRateStore reads and writes exchange_rate_history directly rather
// than through a dedicated repository type: it is a two-column lookup with
// no identity beyond (currency, rate_date), so a small pair of functions
// carries the same weight as a full repository struct would.
type exchangeRateStore struct {
	db *sql.DB
}

// rateToKRW returns the most recent rate_to_krw snapshot for currency on or
// before asOf. KRW is always 1 by definition and never hits the table.
func (s *exchangeRateStore) rateToKRW(currency domain.Currency, asOf time.Time) (float64, time.Time, error) {
	if currency == domain.CurrencyKRW {
		return 1, asOf, nil
	}
	var rate float64
	var dateStr string
	err := s.db.QueryRow(
		`SELECT rate_to_krw, rate_date FROM exchange_rate_history
		 WHERE currency=? AND rate_date<=? ORDER BY rate_date DESC LIMIT 1`,
		string(currency), asOf.Format("2006-01-02"),
	).Scan(&rate, &dateStr)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, errs.New(errs.InsufficientData, "stage0.rateToKRW", fmt.Sprintf("no exchange rate snapshot for %s on or before %s", currency, asOf.Format("2006-01-02")))
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("stage0: query exchange rate %s: %w", currency, err)
	}
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return 0, time.Time{}, err
	}
	return rate, date, nil
}

// saveRate upserts today's snapshot so future lookups for the same date
// don't need to refetch it mid-run.
func (s *exchangeRateStore) saveRate(currency domain.Currency, date time.Time, rate float64) error {
	_, err := s.db.Exec(
		`INSERT INTO exchange_rate_history (currency, rate_date, rate_to_krw) VALUES (?, ?, ?)
		 ON CONFLICT(currency, rate_date) DO UPDATE SET rate_to_krw=excluded.rate_to_krw`,
		string(currency), date.Format("2006-01-02"), rate,
	)
	if err != nil {
		return fmt.Errorf("stage0: save exchange rate %s: %w", currency, err)
	}
	return nil
}

// FXProvider supplies a fresh same-day rate when no cached snapshot covers
// asOf. In production this is backed by the brokerage client or a rates
// API; tests supply a fixed-table fake.
type FXProvider interface {
	Rate(currency domain.Currency, asOf time.Time) (float64, error)
}
