// Package joblog persists one row per completed job to a SQLite
// database when --joblog is set, so a run's outcome can be inspected
// after the fact. It is grounded on
// internal/database/db.go's connection setup (WAL mode, busy timeout)
// and internal/database/schema.go's const-string schema, trimmed down
// to the single table a job log needs.
package joblog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	job_id     INTEGER NOT NULL,
	run_id     TEXT NOT NULL,
	slot_id    INTEGER NOT NULL,
	command    TEXT NOT NULL,
	exit_code  INTEGER NOT NULL,
	start_time INTEGER NOT NULL,
	end_time   INTEGER NOT NULL,
	PRIMARY KEY (run_id, job_id)
);
`

// Log wraps the SQLite connection backing --joblog.
type Log struct {
	conn *sql.DB
	stmt *sql.Stmt
	runID string
}

// Open creates (or appends to) the joblog database at path and
// prepares the insert statement Record reuses for every job.
func Open(path, runID string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("joblog: create directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("joblog: open: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("joblog: init schema: %w", err)
	}

	stmt, err := conn.Prepare(`
		INSERT INTO jobs (job_id, run_id, slot_id, command, exit_code, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("joblog: prepare insert: %w", err)
	}

	return &Log{conn: conn, stmt: stmt, runID: runID}, nil
}

// Record inserts a finished job's outcome.
func (l *Log) Record(jobID, slotID int, command string, exitCode int, start, end time.Time) error {
	_, err := l.stmt.Exec(jobID, l.runID, slotID, command, exitCode, start.Unix(), end.Unix())
	if err != nil {
		return fmt.Errorf("joblog: insert job %d: %w", jobID, err)
	}
	return nil
}

// Close releases the prepared statement and connection.
func (l *Log) Close() error {
	l.stmt.Close()
	return l.conn.Close()
}
