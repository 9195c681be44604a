// Package history is a run-history store, supplementing spec.md with a
// read-only side effect of the job runtime: an append-only log of past
// invocations for `rconv history list`/`rconv history show`. Grounded on
// the teacher's internal/db package (same pure-Go sqlite driver, same
// goose/embed.FS migration shape), narrowed to a single table.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"time"

	"github.com/aquilaworks/convocations/internal/model"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Store wraps the sqlite connection holding run_records.
type Store struct {
	conn *sql.DB
}

// RunRecord is one persisted row: what ran, over what window, and how it
// ended (spec.md SPEC_FULL §3's RunRecord addition).
type RunRecord struct {
	JobID          string
	PresetName     string
	WindowStartUTC time.Time
	WindowEndUTC   time.Time
	OutputPath     string
	LLMRan         bool
	WarningCount   int
	FinalStatus    model.JobStatus
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Open connects to the sqlite database at path (WAL journal mode, a single
// connection per spec.md §5's "one connection" shared-resource posture)
// and applies all pending migrations.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	migrationsFS, err := fs.Sub(MigrationFS, "migrations")
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations sub-fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, conn, migrationsFS)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &Store{conn: conn}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.conn.Close() }

// Insert records a finished run.
func (s *Store) Insert(r RunRecord) error {
	_, err := s.conn.Exec(
		`INSERT INTO run_records (job_id, preset_name, window_start_utc, window_end_utc, output_path, llm_ran, warning_count, final_status, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobID, r.PresetName, r.WindowStartUTC.Format(time.RFC3339), r.WindowEndUTC.Format(time.RFC3339),
		r.OutputPath, boolToInt(r.LLMRan), r.WarningCount, string(r.FinalStatus),
		r.StartedAt.Format(time.RFC3339), r.FinishedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// List returns the most recent run records, newest first.
func (s *Store) List(limit int) ([]RunRecord, error) {
	rows, err := s.conn.Query(
		`SELECT job_id, preset_name, window_start_utc, window_end_utc, output_path, llm_ran, warning_count, final_status, started_at, finished_at
		 FROM run_records ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list run records: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		r, err := scanRunRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get returns the run record for jobID, or (RunRecord{}, false, nil) if
// none exists.
func (s *Store) Get(jobID string) (RunRecord, bool, error) {
	row := s.conn.QueryRow(
		`SELECT job_id, preset_name, window_start_utc, window_end_utc, output_path, llm_ran, warning_count, final_status, started_at, finished_at
		 FROM run_records WHERE job_id = ?`, jobID,
	)
	r, err := scanRunRecord(row)
	if err == sql.ErrNoRows {
		return RunRecord{}, false, nil
	}
	if err != nil {
		return RunRecord{}, false, err
	}
	return r, true, nil
}

func scanRunRecord(scanner interface{ Scan(...any) error }) (RunRecord, error) {
	var r RunRecord
	var start, end, startedAt, finishedAt, status string
	var llmRan int
	if err := scanner.Scan(&r.JobID, &r.PresetName, &start, &end, &r.OutputPath, &llmRan, &r.WarningCount, &status, &startedAt, &finishedAt); err != nil {
		return RunRecord{}, err
	}
	r.WindowStartUTC, _ = time.Parse(time.RFC3339, start)
	r.WindowEndUTC, _ = time.Parse(time.RFC3339, end)
	r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	r.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
	r.LLMRan = llmRan == 1
	r.FinalStatus = model.JobStatus(status)
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
