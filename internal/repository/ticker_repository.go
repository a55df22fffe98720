// Package repository implements C5's read/write helpers over the single
// embedded store: one file per entity, upsert-by-identity SQL, and
// explicit column lists (never SELECT *), following the teacher's
// security_repository.go / score_repository.go idiom.
package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

// TickerRepository owns the tickers table.
type TickerRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewTickerRepository(db *sql.DB, log zerolog.Logger) *TickerRepository {
	return &TickerRepository{db: db, log: log.With().Str("repo", "ticker").Logger()}
}

const tickerColumns = `ticker, region, name, exchange, currency, asset_type, listing_date, lot_size, is_active`

// Upsert inserts or updates a ticker's static identity row. Tickers are
// never physically deleted (spec §3 lifecycle); only is_active flips.
func (r *TickerRepository) Upsert(t domain.Ticker) error {
	listingDate := ""
	if !t.ListingDate.IsZero() {
		listingDate = t.ListingDate.Format("2006-01-02")
	}
	query := `INSERT INTO tickers (` + tickerColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, region) DO UPDATE SET
			name=excluded.name, exchange=excluded.exchange, currency=excluded.currency,
			asset_type=excluded.asset_type, listing_date=excluded.listing_date,
			lot_size=excluded.lot_size, is_active=excluded.is_active`

	_, err := r.db.Exec(query,
		strings.ToUpper(t.Symbol), string(t.Region), t.Name, t.Exchange, string(t.Currency),
		string(t.AssetType), listingDate, t.LotSize, boolToInt(t.IsActive),
	)
	if err != nil {
		return fmt.Errorf("repository: upsert ticker %s/%s: %w", t.Symbol, t.Region, err)
	}
	return nil
}

// SetActive implements the permanent blacklist side of C4: Deactivate /
// Reactivate toggle is_active without touching any other column.
func (r *TickerRepository) SetActive(ticker string, region domain.Region, active bool) error {
	_, err := r.db.Exec(`UPDATE tickers SET is_active=? WHERE ticker=? AND region=?`,
		boolToInt(active), strings.ToUpper(ticker), string(region))
	if err != nil {
		return fmt.Errorf("repository: set active %s/%s: %w", ticker, region, err)
	}
	return nil
}

// Get returns a single ticker, or nil if absent.
func (r *TickerRepository) Get(ticker string, region domain.Region) (*domain.Ticker, error) {
	row := r.db.QueryRow(`SELECT `+tickerColumns+` FROM tickers WHERE ticker=? AND region=?`,
		strings.ToUpper(ticker), string(region))
	t, err := scanTicker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get ticker %s/%s: %w", ticker, region, err)
	}
	return t, nil
}

// InactiveSet returns the set of (ticker) symbols with is_active=false for
// a region — the permanent half of the dual blacklist (C4).
func (r *TickerRepository) InactiveSet(region domain.Region) (map[string]bool, error) {
	rows, err := r.db.Query(`SELECT ticker FROM tickers WHERE region=? AND is_active=0`, string(region))
	if err != nil {
		return nil, fmt.Errorf("repository: inactive set %s: %w", region, err)
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("repository: scan inactive ticker: %w", err)
		}
		set[symbol] = true
	}
	return set, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTicker(row scannable) (*domain.Ticker, error) {
	var t domain.Ticker
	var region, assetType, currency, listingDate string
	var isActive int
	err := row.Scan(&t.Symbol, &region, &t.Name, &t.Exchange, &currency, &assetType, &listingDate, &t.LotSize, &isActive)
	if err != nil {
		return nil, err
	}
	t.Region = domain.Region(region)
	t.AssetType = domain.AssetType(assetType)
	t.Currency = domain.Currency(currency)
	t.IsActive = isActive != 0
	if listingDate != "" {
		if parsed, perr := time.Parse("2006-01-02", listingDate); perr == nil {
			t.ListingDate = parsed
		}
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
