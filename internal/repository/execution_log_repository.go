package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

// ExecutionLogRepository owns the append-only filter_execution_log table
// every stage writes one row to on each run (spec §6).
type ExecutionLogRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewExecutionLogRepository(db *sql.DB, log zerolog.Logger) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db, log: log.With().Str("repo", "execution_log").Logger()}
}

func (r *ExecutionLogRepository) Record(e domain.FilterExecutionLogEntry) error {
	reduction := 0.0
	if e.InputCount > 0 {
		reduction = 1.0 - float64(e.OutputCount)/float64(e.InputCount)
	}
	_, err := r.db.Exec(
		`INSERT INTO filter_execution_log (execution_date, stage, region, input_count, output_count, reduction_rate, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ExecutionDate.Format(time.RFC3339), e.Stage, string(e.Region), e.InputCount, e.OutputCount,
		reduction, e.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("repository: record execution log stage %d: %w", e.Stage, err)
	}
	return nil
}

// RecentByStage returns the most recent n log rows for a stage/region,
// used by the status summary in internal/orchestrator.
func (r *ExecutionLogRepository) RecentByStage(stage int, region domain.Region, n int) ([]domain.FilterExecutionLogEntry, error) {
	rows, err := r.db.Query(
		`SELECT execution_date, stage, region, input_count, output_count, reduction_rate, elapsed_ms
		 FROM filter_execution_log WHERE stage=? AND region=? ORDER BY execution_date DESC LIMIT ?`,
		stage, string(region), n,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: recent execution log stage %d: %w", stage, err)
	}
	defer rows.Close()

	var out []domain.FilterExecutionLogEntry
	for rows.Next() {
		var e domain.FilterExecutionLogEntry
		var dateStr, region string
		var elapsedMs int64
		if err := rows.Scan(&dateStr, &e.Stage, &region, &e.InputCount, &e.OutputCount, &e.ReductionRate, &elapsedMs); err != nil {
			return nil, fmt.Errorf("repository: scan execution log: %w", err)
		}
		e.Region = domain.Region(region)
		e.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		if e.ExecutionDate, err = time.Parse(time.RFC3339, dateStr); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
