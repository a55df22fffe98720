package repository

import (
	"database/sql"
	"fmt"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

// RiskLimitsRepository owns the risk_limits table, one row per region.
type RiskLimitsRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewRiskLimitsRepository(db *sql.DB, log zerolog.Logger) *RiskLimitsRepository {
	return &RiskLimitsRepository{db: db, log: log.With().Str("repo", "risk_limits").Logger()}
}

// Upsert inserts or replaces the limits for a region.
func (r *RiskLimitsRepository) Upsert(l domain.RiskLimits) error {
	_, err := r.db.Exec(
		`INSERT INTO risk_limits (region, max_positions, max_sector_exposure_percent, max_single_position_percent,
			min_order_amount_krw, daily_loss_limit_krw, consecutive_loss_limit)
		 VALUES (?,?,?,?,?,?,?)
		 ON CONFLICT(region) DO UPDATE SET
			max_positions=excluded.max_positions,
			max_sector_exposure_percent=excluded.max_sector_exposure_percent,
			max_single_position_percent=excluded.max_single_position_percent,
			min_order_amount_krw=excluded.min_order_amount_krw,
			daily_loss_limit_krw=excluded.daily_loss_limit_krw,
			consecutive_loss_limit=excluded.consecutive_loss_limit`,
		string(l.Region), l.MaxPositions, l.MaxSectorExposurePercent, l.MaxSinglePositionPercent,
		l.MinOrderAmountKRW, l.DailyLossLimitKRW, l.ConsecutiveLossLimit,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert risk limits %s: %w", l.Region, err)
	}
	return nil
}

// Get returns the configured limits for region, or an error if none exist.
func (r *RiskLimitsRepository) Get(region domain.Region) (domain.RiskLimits, error) {
	var l domain.RiskLimits
	var regionStr string
	err := r.db.QueryRow(
		`SELECT region, max_positions, max_sector_exposure_percent, max_single_position_percent,
			min_order_amount_krw, daily_loss_limit_krw, consecutive_loss_limit
		 FROM risk_limits WHERE region=?`, string(region),
	).Scan(&regionStr, &l.MaxPositions, &l.MaxSectorExposurePercent, &l.MaxSinglePositionPercent,
		&l.MinOrderAmountKRW, &l.DailyLossLimitKRW, &l.ConsecutiveLossLimit)
	if err != nil {
		return domain.RiskLimits{}, fmt.Errorf("repository: get risk limits %s: %w", region, err)
	}
	l.Region = domain.Region(regionStr)
	return l, nil
}
