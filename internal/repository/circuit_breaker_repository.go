package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

// CircuitBreakerRepository owns the append-only circuit_breaker_logs
// table, written by any stage that trips a protective breaker (C7, C11).
type CircuitBreakerRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewCircuitBreakerRepository(db *sql.DB, log zerolog.Logger) *CircuitBreakerRepository {
	return &CircuitBreakerRepository{db: db, log: log.With().Str("repo", "circuit_breaker").Logger()}
}

func (r *CircuitBreakerRepository) Record(e domain.CircuitBreakerLog) error {
	metadata := e.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	_, err := r.db.Exec(
		`INSERT INTO circuit_breaker_logs (triggered_at, breaker, trigger_value, limit_value, reason, metadata, action_taken)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.TriggeredAt.Format(time.RFC3339), e.Breaker, e.TriggerValue, e.LimitValue, e.Reason, metadata, e.ActionTaken,
	)
	if err != nil {
		return fmt.Errorf("repository: record circuit breaker %s: %w", e.Breaker, err)
	}
	r.log.Warn().Str("breaker", e.Breaker).Str("reason", e.Reason).Msg("circuit breaker tripped")
	return nil
}

// IsTripped reports whether breaker has an unresolved trip logged, the
// check the trading engine's gate sequence runs before every order.
func (r *CircuitBreakerRepository) IsTripped(breaker string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM circuit_breaker_logs WHERE breaker=? AND resolved_at IS NULL`, breaker,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("repository: check tripped %s: %w", breaker, err)
	}
	return count > 0, nil
}

// Resolve closes out every unresolved trip for breaker.
func (r *CircuitBreakerRepository) Resolve(breaker, actionTaken, resolvedBy string, resolvedAt time.Time) error {
	_, err := r.db.Exec(
		`UPDATE circuit_breaker_logs SET action_taken=?, resolved_at=?, resolved_by=? WHERE breaker=? AND resolved_at IS NULL`,
		actionTaken, resolvedAt.Format(time.RFC3339), resolvedBy, breaker,
	)
	if err != nil {
		return fmt.Errorf("repository: resolve breaker %s: %w", breaker, err)
	}
	r.log.Info().Str("breaker", breaker).Str("action", actionTaken).Msg("circuit breaker resolved")
	return nil
}
