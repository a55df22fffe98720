// Package reliability guards the single embedded store: integrity
// checking with WAL-recovery and backup-restore fallback, disk-space
// pre-flight gating, and the tiered backup rotation that feeds the
// restore path.
package reliability

import (
	"fmt"
	"os"
	"time"

	"github.com/jsj9346/screener/internal/database"
	"github.com/jsj9346/screener/internal/errs"
	"github.com/rs/zerolog"
)

// HealthService runs integrity checks against the embedded store and
// attempts progressively more invasive recovery when one fails.
type HealthService struct {
	db      *database.DB
	backups *BackupService
	log     zerolog.Logger
}

func NewHealthService(db *database.DB, backups *BackupService, log zerolog.Logger) *HealthService {
	return &HealthService{db: db, backups: backups, log: log.With().Str("component", "reliability").Logger()}
}

// CheckAndRecover runs PRAGMA integrity_check, attempts a WAL checkpoint
// recovery on failure, and falls back to restoring the most recent backup
// if the checkpoint doesn't clear the corruption. Called by
// internal/orchestrator before a run starts.
func (h *HealthService) CheckAndRecover() error {
	result, err := h.db.IntegrityCheck()
	if err != nil {
		return errs.Wrap(errs.Storage, "reliability.CheckAndRecover", err)
	}
	if result == "ok" {
		return nil
	}
	h.log.Error().Str("result", result).Msg("integrity check failed, attempting WAL checkpoint recovery")

	if _, err := h.db.Conn().Exec("PRAGMA wal_checkpoint(RESTART)"); err != nil {
		h.log.Error().Err(err).Msg("WAL checkpoint recovery failed")
		return h.restoreFromBackup()
	}

	result, err = h.db.IntegrityCheck()
	if err != nil {
		return errs.Wrap(errs.Storage, "reliability.CheckAndRecover", err)
	}
	if result != "ok" {
		h.log.Error().Str("result", result).Msg("integrity check still failing after WAL checkpoint")
		return h.restoreFromBackup()
	}

	h.log.Info().Msg("database recovered via WAL checkpoint")
	return nil
}

func (h *HealthService) restoreFromBackup() error {
	if h.backups == nil {
		return errs.New(errs.Storage, "reliability.restoreFromBackup", "no backup service configured, cannot recover")
	}

	backupPath, err := h.backups.MostRecentBackup()
	if err != nil {
		return errs.Wrap(errs.Storage, "reliability.restoreFromBackup", err)
	}

	h.log.Warn().Str("backup", backupPath).Msg("restoring database from backup")
	corruptedPath := h.db.Path() + ".corrupted." + time.Now().Format("20060102_150405")
	if err := os.Rename(h.db.Path(), corruptedPath); err != nil {
		h.log.Error().Err(err).Msg("failed to preserve corrupted file before restore")
	}

	if err := copyFile(backupPath, h.db.Path()); err != nil {
		return errs.Wrap(errs.Storage, "reliability.restoreFromBackup", err)
	}

	result, err := h.db.IntegrityCheck()
	if err != nil || result != "ok" {
		return errs.New(errs.Storage, "reliability.restoreFromBackup", fmt.Sprintf("restored backup is also corrupt: %s", result))
	}

	h.log.Info().Str("backup", backupPath).Msg("restored from backup successfully")
	return nil
}

func copyFile(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, input, 0o644)
}
