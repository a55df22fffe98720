package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

// Stage1Repository owns the filter_cache_stage1 table.
type Stage1Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewStage1Repository(db *sql.DB, log zerolog.Logger) *Stage1Repository {
	return &Stage1Repository{db: db, log: log.With().Str("repo", "stage1").Logger()}
}

const stage1Columns = `ticker, region, filter_date, ma5, ma20, ma60, rsi_14,
	current_price_krw, week_52_high_krw, volume_3d_avg, volume_10d_avg,
	composite_score, stage1_passed, filter_reason`

// ReplaceForDate mirrors Stage0Repository.ReplaceForDate.
func (r *Stage1Repository) ReplaceForDate(region domain.Region, filterDate time.Time, entries []domain.Stage1Entry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("repository: begin stage1 replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dateStr := filterDate.Format("2006-01-02")
	if _, err := tx.Exec(`DELETE FROM filter_cache_stage1 WHERE region=? AND filter_date=?`, string(region), dateStr); err != nil {
		return fmt.Errorf("repository: clear stage1: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO filter_cache_stage1 (` + stage1Columns + `) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("repository: prepare stage1 insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.Exec(
			strings.ToUpper(e.Ticker), string(e.Region), dateStr, e.MA5, e.MA20, e.MA60, e.RSI14,
			e.CurrentPriceKRW, e.Week52HighKRW, e.Volume3DAvg, e.Volume10DAvg,
			e.CompositeScore, boolToInt(e.Passed), e.FilterReason,
		)
		if err != nil {
			return fmt.Errorf("repository: insert stage1 %s: %w", e.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit stage1 replace: %w", err)
	}
	r.log.Info().Str("region", string(region)).Int("entries", len(entries)).Msg("stage1 cache replaced")
	return nil
}

// PassedOn returns tickers that passed stage1 on filterDate, ranked by
// composite_score descending, the input to stage2.
func (r *Stage1Repository) PassedOn(region domain.Region, filterDate time.Time) ([]domain.Stage1Entry, error) {
	rows, err := r.db.Query(
		`SELECT `+stage1Columns+` FROM filter_cache_stage1 WHERE region=? AND filter_date=? AND stage1_passed=1
		 ORDER BY composite_score DESC`,
		string(region), filterDate.Format("2006-01-02"),
	)
	if err != nil {
		return nil, fmt.Errorf("repository: passed stage1 %s: %w", region, err)
	}
	defer rows.Close()

	var out []domain.Stage1Entry
	for rows.Next() {
		e, err := scanStage1(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan stage1: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanStage1(row scannable) (*domain.Stage1Entry, error) {
	var e domain.Stage1Entry
	var region, filterDate string
	var passed int
	err := row.Scan(
		&e.Ticker, &region, &filterDate, &e.MA5, &e.MA20, &e.MA60, &e.RSI14,
		&e.CurrentPriceKRW, &e.Week52HighKRW, &e.Volume3DAvg, &e.Volume10DAvg,
		&e.CompositeScore, &passed, &e.FilterReason,
	)
	if err != nil {
		return nil, err
	}
	e.Region = domain.Region(region)
	e.Passed = passed != 0
	if e.FilterDate, err = time.Parse("2006-01-02", filterDate); err != nil {
		return nil, err
	}
	return &e, nil
}
