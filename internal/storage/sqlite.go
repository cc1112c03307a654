// Package storage provides SQLite-based persistence for test runs and
// their aggregated results.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/fmlab/internal/fmlog"
)

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("storage: run not found")

// Store manages the SQLite database connection for run history.
type Store struct {
	db *sql.DB
}

// Run is one generated mission and, once parsed, the log it produced.
type Run struct {
	ID          int64
	RunID       string
	Mode        string
	MissionPath string
	GroupCount  int
	Variants    []string
	LogPath     string
	Records     int
	Complete    bool
	CreatedAt   time.Time
}

// Result is the stored summary of one (variant, test) pair.
type Result struct {
	ID           int64
	RunID        string
	Variant      string
	Test         string
	GroupName    string
	Samples      int
	MaxSpdKt     *float64
	MaxAltFt     *float64
	MaxVspdFpm   *float64
	VmaxKt       *float64
	CeilingAltFt *float64
	FuelUsedKg   *float64
	CreatedAt    time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL DEFAULT '',
			mission_path TEXT NOT NULL DEFAULT '',
			group_count INTEGER NOT NULL DEFAULT 0,
			variants TEXT NOT NULL DEFAULT '',
			log_path TEXT NOT NULL DEFAULT '',
			records INTEGER NOT NULL DEFAULT 0,
			complete INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			variant TEXT NOT NULL,
			test TEXT NOT NULL,
			group_name TEXT NOT NULL,
			samples INTEGER NOT NULL DEFAULT 0,
			max_spd_kt REAL,
			max_alt_ft REAL,
			max_vspd_fpm REAL,
			vmax_kt REAL,
			ceiling_alt_ft REAL,
			fuel_used_kg REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
		CREATE INDEX IF NOT EXISTS idx_results_pair ON results(variant, test);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun inserts a run or updates the existing row with the same run id.
// Empty fields of r do not overwrite stored values.
func (s *Store) SaveRun(r Run) error {
	if r.RunID == "" {
		return fmt.Errorf("storage: run id is required")
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, mode, mission_path, group_count, variants, log_path, records, complete)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
		   mode = CASE WHEN excluded.mode = '' THEN runs.mode ELSE excluded.mode END,
		   mission_path = CASE WHEN excluded.mission_path = '' THEN runs.mission_path ELSE excluded.mission_path END,
		   group_count = CASE WHEN excluded.group_count = 0 THEN runs.group_count ELSE excluded.group_count END,
		   variants = CASE WHEN excluded.variants = '' THEN runs.variants ELSE excluded.variants END,
		   log_path = CASE WHEN excluded.log_path = '' THEN runs.log_path ELSE excluded.log_path END,
		   records = CASE WHEN excluded.records = 0 THEN runs.records ELSE excluded.records END,
		   complete = MAX(runs.complete, excluded.complete)`,
		r.RunID, r.Mode, r.MissionPath, r.GroupCount, strings.Join(r.Variants, ","),
		r.LogPath, r.Records, r.Complete,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save run: %w", err)
	}
	return nil
}

// SaveResults replaces the stored results of a run with the table's rows.
// Returns the number of rows written.
func (s *Store) SaveResults(runID string, table *fmlog.ResultTable) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM results WHERE run_id = ?", runID); err != nil {
		return 0, fmt.Errorf("storage: cannot clear results: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO results
		 (run_id, variant, test, group_name, samples, max_spd_kt, max_alt_ft, max_vspd_fpm, vmax_kt, ceiling_alt_ft, fuel_used_kg)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot prepare insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, g := range table.All() {
		r := FromGroup(runID, g)
		if _, err := stmt.Exec(
			r.RunID, r.Variant, r.Test, r.GroupName, r.Samples,
			r.MaxSpdKt, r.MaxAltFt, r.MaxVspdFpm, r.VmaxKt, r.CeilingAltFt, r.FuelUsedKg,
		); err != nil {
			return 0, fmt.Errorf("storage: cannot save result %s: %w", g.Name, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage: cannot commit results: %w", err)
	}
	return n, nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, mode, mission_path, group_count, variants, log_path, records, complete, created_at
		 FROM runs
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return runs, nil
}

// Run retrieves a run by its id. Returns nil, nil if it does not exist.
func (s *Store) Run(runID string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, run_id, mode, mission_path, group_count, variants, log_path, records, complete, created_at
		 FROM runs
		 WHERE run_id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// Results returns a run's results in the order they were saved.
func (s *Store) Results(runID string) ([]Result, error) {
	return s.queryResults(
		`SELECT id, run_id, variant, test, group_name, samples,
		        max_spd_kt, max_alt_ft, max_vspd_fpm, vmax_kt, ceiling_alt_ft, fuel_used_kg, created_at
		 FROM results
		 WHERE run_id = ?
		 ORDER BY id`,
		runID,
	)
}

// TestHistory returns every stored result of one (variant, test) pair,
// newest first.
func (s *Store) TestHistory(variant, test string) ([]Result, error) {
	return s.queryResults(
		`SELECT id, run_id, variant, test, group_name, samples,
		        max_spd_kt, max_alt_ft, max_vspd_fpm, vmax_kt, ceiling_alt_ft, fuel_used_kg, created_at
		 FROM results
		 WHERE variant = ? AND test = ?
		 ORDER BY created_at DESC, id DESC`,
		variant, test,
	)
}

// DeleteRun removes a run and its results.
func (s *Store) DeleteRun(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return fmt.Errorf("storage: cannot delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: cannot count deleted rows: %w", err)
	}
	if n == 0 {
		return ErrRunNotFound
	}
	if _, err := tx.Exec("DELETE FROM results WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("storage: cannot delete results: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit delete: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var variants string
	var complete int
	var createdAt any
	if err := row.Scan(
		&r.ID, &r.RunID, &r.Mode, &r.MissionPath, &r.GroupCount,
		&variants, &r.LogPath, &r.Records, &complete, &createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("storage: cannot scan run: %w", err)
	}
	if variants != "" {
		r.Variants = strings.Split(variants, ",")
	}
	r.Complete = complete != 0
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

func (s *Store) queryResults(query string, args ...any) ([]Result, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		var spd, alt, vspd, vmax, ceiling, fuel sql.NullFloat64
		var createdAt any
		if err := rows.Scan(
			&r.ID, &r.RunID, &r.Variant, &r.Test, &r.GroupName, &r.Samples,
			&spd, &alt, &vspd, &vmax, &ceiling, &fuel, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		r.MaxSpdKt, r.MaxAltFt, r.MaxVspdFpm = nullable(spd), nullable(alt), nullable(vspd)
		r.VmaxKt, r.CeilingAltFt, r.FuelUsedKg = nullable(vmax), nullable(ceiling), nullable(fuel)
		r.CreatedAt = parseTime(createdAt)
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return out, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// parseTime handles both time.Time and the driver's string layout.
func parseTime(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
