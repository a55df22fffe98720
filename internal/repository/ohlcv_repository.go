package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jsj9346/screener/internal/domain"
	"github.com/rs/zerolog"
)

// OHLCVRepository owns the ohlcv_data table.
type OHLCVRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

func NewOHLCVRepository(db *sql.DB, log zerolog.Logger) *OHLCVRepository {
	return &OHLCVRepository{db: db, log: log.With().Str("repo", "ohlcv").Logger()}
}

const ohlcvColumns = `ticker, region, timeframe, date, open, high, low, close, volume,
	ma5, ma20, ma60, ma120, ma200, rsi_14, macd, macd_signal, macd_hist,
	bb_mid, bb_upper, bb_lower, atr_14, volume_ma20, volume_ratio`

// UpsertBatch replaces bars by (ticker, region, timeframe, date) inside a
// single transaction, following the teacher's score_repository.go
// begin/defer-rollback/commit idiom.
func (r *OHLCVRepository) UpsertBatch(bars []domain.OHLCVBar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("repository: begin ohlcv upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO ohlcv_data (` + ohlcvColumns + `) VALUES (
		?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(ticker, region, timeframe, date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low, close=excluded.close,
			volume=excluded.volume, ma5=excluded.ma5, ma20=excluded.ma20, ma60=excluded.ma60,
			ma120=excluded.ma120, ma200=excluded.ma200, rsi_14=excluded.rsi_14,
			macd=excluded.macd, macd_signal=excluded.macd_signal, macd_hist=excluded.macd_hist,
			bb_mid=excluded.bb_mid, bb_upper=excluded.bb_upper, bb_lower=excluded.bb_lower,
			atr_14=excluded.atr_14, volume_ma20=excluded.volume_ma20, volume_ratio=excluded.volume_ratio`)
	if err != nil {
		return fmt.Errorf("repository: prepare ohlcv upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		_, err := stmt.Exec(
			strings.ToUpper(b.Ticker), string(b.Region), string(b.Tf), b.Date.Format("2006-01-02"),
			b.Open, b.High, b.Low, b.Close, b.Volume,
			nullFloat64(b.MA5), nullFloat64(b.MA20), nullFloat64(b.MA60), nullFloat64(b.MA120), nullFloat64(b.MA200),
			nullFloat64(b.RSI14), nullFloat64(b.MACD), nullFloat64(b.MACDSignal), nullFloat64(b.MACDHist),
			nullFloat64(b.BollingerMid), nullFloat64(b.BollingerUp), nullFloat64(b.BollingerLow),
			nullFloat64(b.ATR14), nullFloat64(b.VolumeMA20), nullFloat64(b.VolumeRatio),
		)
		if err != nil {
			return fmt.Errorf("repository: upsert ohlcv %s/%s %s: %w", b.Ticker, b.Region, b.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: commit ohlcv upsert: %w", err)
	}
	r.log.Info().Int("bars", len(bars)).Msg("ohlcv batch upserted")
	return nil
}

// Latest returns the most recent n bars for a ticker at a timeframe,
// ordered oldest-to-newest (the order indicator computation expects).
func (r *OHLCVRepository) Latest(ticker string, region domain.Region, tf domain.Timeframe, n int) ([]domain.OHLCVBar, error) {
	rows, err := r.db.Query(
		`SELECT `+ohlcvColumns+` FROM ohlcv_data WHERE ticker=? AND region=? AND timeframe=?
		 ORDER BY date DESC LIMIT ?`,
		strings.ToUpper(ticker), string(region), string(tf), n,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: latest ohlcv %s/%s: %w", ticker, region, err)
	}
	defer rows.Close()

	var bars []domain.OHLCVBar
	for rows.Next() {
		b, err := scanOHLCVBar(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: scan ohlcv: %w", err)
		}
		bars = append(bars, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(bars)
	return bars, nil
}

// LastBarDate returns the most recent stored bar date, used by the gap
// analysis in internal/ohlcv to decide skip/incremental/full refresh.
func (r *OHLCVRepository) LastBarDate(ticker string, region domain.Region, tf domain.Timeframe) (time.Time, bool, error) {
	var dateStr string
	err := r.db.QueryRow(
		`SELECT date FROM ohlcv_data WHERE ticker=? AND region=? AND timeframe=? ORDER BY date DESC LIMIT 1`,
		strings.ToUpper(ticker), string(region), string(tf),
	).Scan(&dateStr)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: last bar date %s/%s: %w", ticker, region, err)
	}
	d, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: parse bar date: %w", err)
	}
	return d, true, nil
}

// MostRecentBarDate returns the latest daily bar date stored for any
// ticker in a region, used by the orchestrator's status summary to judge
// overall data freshness without picking one ticker arbitrarily.
func (r *OHLCVRepository) MostRecentBarDate(region domain.Region) (time.Time, bool, error) {
	var dateStr sql.NullString
	err := r.db.QueryRow(
		`SELECT MAX(date) FROM ohlcv_data WHERE region=? AND timeframe=?`,
		string(region), string(domain.TimeframeDaily),
	).Scan(&dateStr)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: most recent bar date %s: %w", region, err)
	}
	if !dateStr.Valid {
		return time.Time{}, false, nil
	}
	d, err := time.Parse("2006-01-02", dateStr.String)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: parse bar date: %w", err)
	}
	return d, true, nil
}

// ApplyRetention deletes bars older than cutoff for every ticker, matching
// spec's 250-trading-day retention window.
func (r *OHLCVRepository) ApplyRetention(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM ohlcv_data WHERE date < ?`, cutoff.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("repository: apply retention: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("ohlcv retention applied")
	}
	return n, nil
}

func scanOHLCVBar(row scannable) (*domain.OHLCVBar, error) {
	var b domain.OHLCVBar
	var region, tf, dateStr string
	var ma5, ma20, ma60, ma120, ma200 sql.NullFloat64
	var rsi14, macd, macdSignal, macdHist sql.NullFloat64
	var bbMid, bbUpper, bbLower, atr14, volMA20, volRatio sql.NullFloat64

	err := row.Scan(
		&b.Ticker, &region, &tf, &dateStr, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		&ma5, &ma20, &ma60, &ma120, &ma200,
		&rsi14, &macd, &macdSignal, &macdHist,
		&bbMid, &bbUpper, &bbLower,
		&atr14, &volMA20, &volRatio,
	)
	if err != nil {
		return nil, err
	}
	b.Region = domain.Region(region)
	b.Tf = domain.Timeframe(tf)
	if b.Date, err = time.Parse("2006-01-02", dateStr); err != nil {
		return nil, err
	}
	b.MA5 = fromNullFloat64(ma5)
	b.MA20 = fromNullFloat64(ma20)
	b.MA60 = fromNullFloat64(ma60)
	b.MA120 = fromNullFloat64(ma120)
	b.MA200 = fromNullFloat64(ma200)
	b.RSI14 = fromNullFloat64(rsi14)
	b.MACD = fromNullFloat64(macd)
	b.MACDSignal = fromNullFloat64(macdSignal)
	b.MACDHist = fromNullFloat64(macdHist)
	b.BollingerMid = fromNullFloat64(bbMid)
	b.BollingerUp = fromNullFloat64(bbUpper)
	b.BollingerLow = fromNullFloat64(bbLower)
	b.ATR14 = fromNullFloat64(atr14)
	b.VolumeMA20 = fromNullFloat64(volMA20)
	b.VolumeRatio = fromNullFloat64(volRatio)
	return &b, nil
}

func reverse(bars []domain.OHLCVBar) {
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
}
