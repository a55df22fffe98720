// Package database wraps the single embedded relational store (spec §6:
// "DB file (single embedded store)") with production-grade SQLite
// PRAGMAs, following the teacher's profile-based connection builder.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Profile selects a PRAGMA bundle tuned for a class of workload.
type Profile string

const (
	// ProfileLedger favors durability for append-only audit rows (trades,
	// circuit_breaker_logs, filter_execution_log).
	ProfileLedger Profile = "ledger"
	// ProfileCache favors throughput for ephemeral, freely-recomputed
	// rows (the stageN caches, ohlcv_data).
	ProfileCache Profile = "cache"
	// ProfileStandard is the balanced default (tickers, blacklist).
	ProfileStandard Profile = "standard"
)

// DB wraps *sql.DB with the profile it was opened under.
type DB struct {
	conn    *sql.DB
	path    string
	profile Profile
}

// Config configures New.
type Config struct {
	Path    string
	Profile Profile
}

// New opens (creating if absent) the single embedded store at cfg.Path.
func New(cfg Config) (*DB, error) {
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("database: resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("database: create directory: %w", err)
	}

	if cfg.Profile == "" {
		cfg.Profile = ProfileStandard
	}

	conn, err := sql.Open("sqlite", connectionString(absPath, cfg.Profile))
	if err != nil {
		return nil, fmt.Errorf("database: open: %w", err)
	}
	configurePool(conn, cfg.Profile)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return &DB{conn: conn, path: absPath, profile: cfg.Profile}, nil
}

func connectionString(path string, profile Profile) string {
	conn := path + "?_pragma=journal_mode(WAL)"

	switch profile {
	case ProfileLedger:
		conn += "&_pragma=synchronous(FULL)"
		conn += "&_pragma=auto_vacuum(NONE)"
	case ProfileCache:
		conn += "&_pragma=synchronous(OFF)"
		conn += "&_pragma=auto_vacuum(FULL)"
		conn += "&_pragma=temp_store(MEMORY)"
	default:
		conn += "&_pragma=synchronous(NORMAL)"
		conn += "&_pragma=auto_vacuum(INCREMENTAL)"
		conn += "&_pragma=temp_store(MEMORY)"
	}

	conn += "&_pragma=foreign_keys(1)"
	conn += "&_pragma=busy_timeout(5000)"
	conn += "&_pragma=wal_autocheckpoint(1000)"
	conn += "&_pragma=cache_size(-64000)"
	return conn
}

func configurePool(conn *sql.DB, profile Profile) {
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(10 * time.Minute)
	if profile == ProfileCache {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(2)
	}
}

// Conn returns the underlying *sql.DB for repositories to use.
func (d *DB) Conn() *sql.DB { return d.conn }

// Path returns the resolved database file path.
func (d *DB) Path() string { return d.path }

// Close closes the connection pool.
func (d *DB) Close() error { return d.conn.Close() }

// IntegrityCheck runs SQLite's built-in PRAGMA integrity_check, used by
// internal/reliability before heavy stages.
func (d *DB) IntegrityCheck() (string, error) {
	var result string
	if err := d.conn.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return "", fmt.Errorf("database: integrity check: %w", err)
	}
	return result, nil
}
