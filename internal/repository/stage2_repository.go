package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

// Stage2Repository owns the filter_cache_stage2 table. module_scores is
// stored as a JSON blob since its shape (one row per scoring module) does
// not warrant its own table for a cache that is recomputed every run.
type Stage2Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewStage2Repository(db *sql.DB, log zerolog.Logger) *Stage2Repository {
	return &Stage2Repository{db: db, log: log.With().Str("repo", "stage2").Logger()}
}

const stage2Columns = `ticker, region, cache_timestamp, total_score, module_scores,
	market_regime, volatility_regime, recommendation, detected_pattern,
	pattern_confidence, execution_time_ms`

// Insert appends one stage2 row. Unlike stage0/stage1, stage2 is keyed by
// cache_timestamp rather than filter_date so history of repeated scoring
// passes within a day is preserved (spec §6).
func (r *Stage2Repository) Insert(e domain.Stage2Entry) error {
	scoresJSON, err := json.Marshal(e.ModuleScores)
	if err != nil {
		return fmt.Errorf("repository: marshal module scores: %w", err)
	}

	_, err = r.db.Exec(`INSERT INTO filter_cache_stage2 (`+stage2Columns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		strings.ToUpper(e.Ticker), string(e.Region), e.CacheTimestamp.Format(time.RFC3339),
		e.TotalScore, string(scoresJSON), e.MarketRegime, e.VolatilityRegime, string(e.Recommendation),
		e.DetectedPattern, e.PatternConfidence, e.ExecutionTimeMs,
	)
	if err != nil {
		return fmt.Errorf("repository: insert stage2 %s: %w", e.Ticker, err)
	}
	return nil
}

// LatestByRegion returns the most recent stage2 row per ticker in region,
// the input to the report/status surfaces.
func (r *Stage2Repository) LatestByRegion(region domain.Region) ([]domain.Stage2Entry, error) {
	rows, err := r.db.Query(
		`SELECT `+stage2Columns+` FROM filter_cache_stage2 s2
		 WHERE region=? AND cache_timestamp = (
			SELECT MAX(cache_timestamp) FROM filter_cache_stage2 WHERE ticker=s2.ticker AND region=s2.region
		 )
		 ORDER BY total_score DESC`,
		string(region),
	)
	if err != nil {
		return nil, fmt.Errorf("repository: latest stage2 %s: %w", region, err)
	}
	defer rows.Close()

	var out []domain.Stage2Entry
	for rows.Next() {
		e, err := scanStage2(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan stage2: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanStage2(row scannable) (*domain.Stage2Entry, error) {
	var e domain.Stage2Entry
	var region, ts, recommendation, scoresJSON string
	err := row.Scan(
		&e.Ticker, &region, &ts, &e.TotalScore, &scoresJSON,
		&e.MarketRegime, &e.VolatilityRegime, &recommendation, &e.DetectedPattern,
		&e.PatternConfidence, &e.ExecutionTimeMs,
	)
	if err != nil {
		return nil, err
	}
	e.Region = domain.Region(region)
	e.Recommendation = domain.Recommendation(recommendation)
	if e.CacheTimestamp, err = time.Parse(time.RFC3339, ts); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scoresJSON), &e.ModuleScores); err != nil {
		return nil, fmt.Errorf("unmarshal module scores: %w", err)
	}
	return &e, nil
}
