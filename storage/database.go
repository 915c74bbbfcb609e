// Package storage provides run history persistence using SQLite.
// Every check run is recorded so earlier verification outcomes can be
// reviewed without rerunning the browser.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gptbots/taskpane-verify/check"
	"github.com/gptbots/taskpane-verify/logger"
	_ "modernc.org/sqlite"
)

// Database wraps SQLite database operations
type Database struct {
	db     *sql.DB
	logger *logger.Logger
}

// Run is a persisted check run record
type Run struct {
	ID             int64     `json:"id"`
	RunID          string    `json:"run_id"`
	TargetURL      string    `json:"target_url"`
	ElementID      string    `json:"element_id"`
	Visible        bool      `json:"visible"`
	Filled         bool      `json:"filled"`
	ScreenshotPath string    `json:"screenshot_path"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	DurationMS     int64     `json:"duration_ms"`
}

// Stats summarizes the recorded run history
type Stats struct {
	TotalRuns   int `json:"total_runs"`
	VisibleRuns int `json:"visible_runs"`
	FailedRuns  int `json:"failed_runs"`
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string, log *logger.Logger) (*Database, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	database := &Database{
		db:     db,
		logger: log.WithModule("storage"),
	}

	if err := database.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	database.logger.Info("Database initialized successfully")
	return database, nil
}

// initSchema creates the database tables if they don't exist
func (d *Database) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS check_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT UNIQUE NOT NULL,
		target_url TEXT NOT NULL,
		element_id TEXT NOT NULL,
		visible INTEGER NOT NULL DEFAULT 0,
		filled INTEGER NOT NULL DEFAULT 0,
		screenshot_path TEXT,
		status TEXT NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_check_runs_started_at ON check_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_check_runs_status ON check_runs(status);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// RecordRun persists the report of one completed check run
func (d *Database) RecordRun(report *check.Report) error {
	_, err := d.db.Exec(`
		INSERT INTO check_runs
			(run_id, target_url, element_id, visible, filled,
			 screenshot_path, status, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.TargetURL,
		report.ElementID,
		report.Visible,
		report.Filled,
		report.ScreenshotPath,
		report.Status,
		report.Error,
		report.StartedAt,
		report.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	d.logger.WithFields(map[string]interface{}{
		"run_id": report.RunID,
		"status": report.Status,
	}).Debug("Run recorded")

	return nil
}

// RecentRuns returns up to limit runs, newest first
func (d *Database) RecentRuns(limit int) ([]Run, error) {
	rows, err := d.db.Query(`
		SELECT id, run_id, target_url, element_id, visible, filled,
		       COALESCE(screenshot_path, ''), status, COALESCE(error, ''),
		       started_at, duration_ms
		FROM check_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(&r.ID, &r.RunID, &r.TargetURL, &r.ElementID,
			&r.Visible, &r.Filled, &r.ScreenshotPath, &r.Status,
			&r.Error, &r.StartedAt, &r.DurationMS)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetStats returns aggregate counts over the recorded history
func (d *Database) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := d.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN visible THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM check_runs`, check.StatusFailed).
		Scan(&stats.TotalRuns, &stats.VisibleRuns, &stats.FailedRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}
