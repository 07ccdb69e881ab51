// Package history records every roadmap build in SQLite so that runs can
// be listed and compared later.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cisoplan/internal/roadmap"
)

// Store manages roadmap run history in SQLite.
type Store struct {
	DBPath string
	db     *sql.DB
}

// Run is one recorded roadmap build.
type Run struct {
	ID              string
	CreatedAt       time.Time
	AsOf            string
	Source          string
	Immediate       int
	Planned         int
	Deferred        int
	EstimatedEffort float64
	MaturityPercent int
	ReportPath      string
}

// Total returns the backlog size of the run.
func (r Run) Total() int {
	return r.Immediate + r.Planned + r.Deferred
}

// RunFromReport summarizes a report as a run. ID and CreatedAt are left
// for Record to fill in.
func RunFromReport(report roadmap.Report, reportPath string) Run {
	return Run{
		AsOf:            report.AsOf,
		Source:          report.Source,
		Immediate:       len(report.Roadmap.Immediate),
		Planned:         len(report.Roadmap.Planned),
		Deferred:        len(report.Roadmap.Deferred),
		EstimatedEffort: report.Summary.EstimatedEffort,
		MaturityPercent: report.Maturity.Percent,
		ReportPath:      reportPath,
	}
}

// Open opens or creates the history database.
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	store := &Store{
		DBPath: absPath,
		db:     db,
	}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS roadmap_runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	as_of TEXT NOT NULL,
	source TEXT NOT NULL,
	immediate INTEGER NOT NULL,
	planned INTEGER NOT NULL,
	deferred INTEGER NOT NULL,
	estimated_effort REAL NOT NULL,
	maturity_percent INTEGER NOT NULL,
	report_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON roadmap_runs(created_at);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Record inserts run and returns it with its assigned id and timestamp.
func (s *Store) Record(run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	_, err := s.db.Exec(`
		INSERT INTO roadmap_runs (id, created_at, as_of, source, immediate, planned, deferred,
		                          estimated_effort, maturity_percent, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt.Format(time.RFC3339Nano), run.AsOf, run.Source,
		run.Immediate, run.Planned, run.Deferred,
		run.EstimatedEffort, run.MaturityPercent, run.ReportPath)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit <= 0 returns all.
func (s *Store) List(limit int) ([]Run, error) {
	query := `
		SELECT id, created_at, as_of, source, immediate, planned, deferred,
		       estimated_effort, maturity_percent, report_path
		FROM roadmap_runs
		ORDER BY created_at DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var createdAt string
		var reportPath sql.NullString
		if err := rows.Scan(
			&run.ID, &createdAt, &run.AsOf, &run.Source,
			&run.Immediate, &run.Planned, &run.Deferred,
			&run.EstimatedEffort, &run.MaturityPercent, &reportPath,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if reportPath.Valid {
			run.ReportPath = reportPath.String
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
