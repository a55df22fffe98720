package reliability

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jsj9346/screener/internal/database"
	"github.com/jsj9346/screener/internal/errs"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// BackupService manages a two-tier backup rotation for the single
// embedded store: daily snapshots kept 30 days, weekly snapshots kept 12
// weeks. The teacher's per-database tiering (hourly/daily/weekly/monthly
// across 7 stores) collapses to this since there is exactly one store.
type BackupService struct {
	db        *database.DB
	backupDir string
	log       zerolog.Logger
}

func NewBackupService(db *database.DB, backupDir string, log zerolog.Logger) *BackupService {
	return &BackupService{db: db, backupDir: backupDir, log: log.With().Str("service", "backup").Logger()}
}

// Daily performs an atomic VACUUM INTO snapshot and rotates anything
// older than 30 days.
func (s *BackupService) Daily() error {
	dailyDir := filepath.Join(s.backupDir, "daily")
	if err := os.MkdirAll(dailyDir, 0o755); err != nil {
		return errs.Wrap(errs.Storage, "reliability.Daily", err)
	}

	path := filepath.Join(dailyDir, fmt.Sprintf("screener_%s.db", time.Now().Format("2006-01-02")))
	if err := s.snapshot(path); err != nil {
		return err
	}
	return s.rotate(dailyDir, 30*24*time.Hour)
}

// Weekly performs an atomic VACUUM INTO snapshot and rotates anything
// older than 12 weeks.
func (s *BackupService) Weekly() error {
	weeklyDir := filepath.Join(s.backupDir, "weekly")
	if err := os.MkdirAll(weeklyDir, 0o755); err != nil {
		return errs.Wrap(errs.Storage, "reliability.Weekly", err)
	}

	year, week := time.Now().ISOWeek()
	path := filepath.Join(weeklyDir, fmt.Sprintf("screener_%04d-W%02d.db", year, week))
	if err := s.snapshot(path); err != nil {
		return err
	}
	return s.rotate(weeklyDir, 12*7*24*time.Hour)
}

func (s *BackupService) snapshot(path string) error {
	if _, err := s.db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", path)); err != nil {
		return errs.Wrap(errs.Storage, "reliability.snapshot", err)
	}
	if err := verifyIntegrity(path); err != nil {
		os.Remove(path)
		return errs.Wrap(errs.Storage, "reliability.snapshot", err)
	}
	s.log.Info().Str("path", path).Msg("backup snapshot created")
	return nil
}

func (s *BackupService) rotate(dir string, maxAge time.Duration) error {
	cutoff := time.Now().Add(-maxAge)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errs.Wrap(errs.Storage, "reliability.rotate", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.log.Warn().Str("path", path).Err(err).Msg("failed to remove expired backup")
		}
	}
	return nil
}

// MostRecentBackup searches daily then weekly and returns the freshest
// file of the first tier that has any, used by HealthService's restore
// path.
func (s *BackupService) MostRecentBackup() (string, error) {
	for _, tier := range []string{"daily", "weekly"} {
		dir := filepath.Join(s.backupDir, tier)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		var best string
		var bestTime time.Time
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(bestTime) {
				best = filepath.Join(dir, entry.Name())
				bestTime = info.ModTime()
			}
		}
		if best != "" {
			return best, nil
		}
	}
	return "", fmt.Errorf("no backup found under %s", s.backupDir)
}

func verifyIntegrity(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// DailyBackupJob adapts BackupService.Daily to the scheduler's Job
// interface.
type DailyBackupJob struct{ service *BackupService }

func NewDailyBackupJob(service *BackupService) *DailyBackupJob { return &DailyBackupJob{service: service} }
func (j *DailyBackupJob) Run() error                            { return j.service.Daily() }
func (j *DailyBackupJob) Name() string                          { return "daily_backup" }

// WeeklyBackupJob adapts BackupService.Weekly to the scheduler's Job
// interface.
type WeeklyBackupJob struct{ service *BackupService }

func NewWeeklyBackupJob(service *BackupService) *WeeklyBackupJob { return &WeeklyBackupJob{service: service} }
func (j *WeeklyBackupJob) Run() error                            { return j.service.Weekly() }
func (j *WeeklyBackupJob) Name() string                          { return "weekly_backup" }
