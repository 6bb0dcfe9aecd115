package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kalden/ppsim/internal/models"

	_ "modernc.org/sqlite" // SQLite driver
)

// timeFormat is RFC 3339 with fixed-width nanoseconds so stored times sort
// lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteResultStore implements ResultStore using SQLite for persistence.
type SQLiteResultStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteResultStore opens (creating if needed) the results database at
// dbPath.
func NewSQLiteResultStore(dbPath string) (*SQLiteResultStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteResultStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteResultStore) Path() string {
	return s.dbPath
}

// CreateRun adds a run to the store.
func (s *SQLiteResultStore) CreateRun(ctx context.Context, run models.RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, description, replicate, seed, status, hours, seconds_per_step,
			steps, started_at, finished_at, error, results_dir, config
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runArgs(run)...)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// UpdateRun replaces an existing run.
func (s *SQLiteResultStore) UpdateRun(ctx context.Context, run models.RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args := append(runArgs(run)[1:], run.ID)
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			description = ?, replicate = ?, seed = ?, status = ?, hours = ?,
			seconds_per_step = ?, steps = ?, started_at = ?, finished_at = ?,
			error = ?, results_dir = ?, config = ?
		WHERE id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.ID)
	}
	return nil
}

// runArgs returns the column values of run in table order.
func runArgs(run models.RunInfo) []any {
	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = sql.NullString{String: run.FinishedAt.UTC().Format(timeFormat), Valid: true}
	}
	return []any{
		run.ID,
		run.Description,
		run.Replicate,
		int64(run.Seed),
		string(run.Status),
		run.Hours,
		run.SecondsPerStep,
		run.Steps,
		run.StartedAt.UTC().Format(timeFormat),
		finished,
		nullString(run.Error),
		nullString(run.ResultsDir),
		nullString(run.Config),
	}
}

const runColumns = `id, description, replicate, seed, status, hours, seconds_per_step,
	steps, started_at, finished_at, error, results_dir, config`

// GetRun retrieves a run by ID.
func (s *SQLiteResultStore) GetRun(ctx context.Context, id string) (*models.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the runs matching filter, most recently started first.
func (s *SQLiteResultStore) ListRuns(ctx context.Context, filter RunFilter) ([]models.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any
	if filter.Description != "" {
		query += ` AND description = ?`
		args = append(args, filter.Description)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []models.RunInfo
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.RunInfo, error) {
	var run models.RunInfo
	var seed int64
	var status, startedAt string
	var finishedAt, errMsg, dir, cfgYAML sql.NullString
	err := row.Scan(
		&run.ID, &run.Description, &run.Replicate, &seed, &status, &run.Hours, &run.SecondsPerStep,
		&run.Steps, &startedAt, &finishedAt, &errMsg, &dir, &cfgYAML,
	)
	if err != nil {
		return nil, err
	}

	run.Seed = uint64(seed)
	run.Status = models.RunStatus(status)
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at for %s: %w", run.ID, err)
	}
	if finishedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at for %s: %w", run.ID, err)
		}
		run.FinishedAt = &t
	}
	run.Error = errMsg.String
	run.ResultsDir = dir.String
	run.Config = cfgYAML.String
	return &run, nil
}

// DeleteRun removes a run; its results go with it through ON DELETE CASCADE.
func (s *SQLiteResultStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// AddTrackRecords inserts track records in one transaction.
func (s *SQLiteResultStore) AddTrackRecords(ctx context.Context, records []models.TrackRecord) error {
	return s.insertBatch(ctx, `
		INSERT INTO track_records (
			run_id, track_window, track_table, cell_type, state, steps, speed,
			start_x, start_y, end_x, end_y, length, velocity,
			displacement, displacement_rate, meandering_index, nearest_organizer
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, len(records), func(i int) []any {
		r := records[i]
		return []any{
			r.RunID, r.Window, r.Table, r.CellType, r.State, r.Steps, r.Speed,
			r.StartX, r.StartY, r.EndX, r.EndY, r.Length, r.Velocity,
			r.Displacement, r.DisplacementRate, r.MeanderingIndex, r.NearestOrganizer,
		}
	})
}

// AddPatchPositions inserts patch positions in one transaction.
func (s *SQLiteResultStore) AddPatchPositions(ctx context.Context, positions []models.PatchPosition) error {
	return s.insertBatch(ctx, `
		INSERT INTO patch_positions (run_id, hour, x, y, state, in_patch)
		VALUES (?, ?, ?, ?, ?, ?)
	`, len(positions), func(i int) []any {
		p := positions[i]
		return []any{p.RunID, p.Hour, p.X, p.Y, p.State, boolToInt(p.InPatch)}
	})
}

// AddPopulationSamples inserts population samples in one transaction. A
// repeated (run, hour, class, state) replaces the earlier count.
func (s *SQLiteResultStore) AddPopulationSamples(ctx context.Context, samples []models.PopulationSample) error {
	return s.insertBatch(ctx, `
		INSERT OR REPLACE INTO population_samples (run_id, hour, class, state, count)
		VALUES (?, ?, ?, ?, ?)
	`, len(samples), func(i int) []any {
		sm := samples[i]
		return []any{sm.RunID, sm.Hour, sm.Class, sm.State, sm.Count}
	})
}

// insertBatch runs query once per row inside a single transaction.
func (s *SQLiteResultStore) insertBatch(ctx context.Context, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// TrackRecords returns a run's track records in insertion order.
func (s *SQLiteResultStore) TrackRecords(ctx context.Context, runID string) ([]models.TrackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, track_window, track_table, cell_type, state, steps, speed,
			start_x, start_y, end_x, end_y, length, velocity,
			displacement, displacement_rate, meandering_index, nearest_organizer
		FROM track_records WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query track records: %w", err)
	}
	defer rows.Close()

	var out []models.TrackRecord
	for rows.Next() {
		var r models.TrackRecord
		if err := rows.Scan(
			&r.RunID, &r.Window, &r.Table, &r.CellType, &r.State, &r.Steps, &r.Speed,
			&r.StartX, &r.StartY, &r.EndX, &r.EndY, &r.Length, &r.Velocity,
			&r.Displacement, &r.DisplacementRate, &r.MeanderingIndex, &r.NearestOrganizer,
		); err != nil {
			return nil, fmt.Errorf("failed to scan track record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PatchPositions returns a run's patch positions in insertion order.
func (s *SQLiteResultStore) PatchPositions(ctx context.Context, runID string) ([]models.PatchPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, hour, x, y, state, in_patch
		FROM patch_positions WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query patch positions: %w", err)
	}
	defer rows.Close()

	var out []models.PatchPosition
	for rows.Next() {
		var p models.PatchPosition
		var inPatch int
		if err := rows.Scan(&p.RunID, &p.Hour, &p.X, &p.Y, &p.State, &inPatch); err != nil {
			return nil, fmt.Errorf("failed to scan patch position: %w", err)
		}
		p.InPatch = inPatch != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// PopulationSamples returns a run's samples ordered by hour, class and state.
func (s *SQLiteResultStore) PopulationSamples(ctx context.Context, runID string) ([]models.PopulationSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, hour, class, state, count
		FROM population_samples WHERE run_id = ? ORDER BY hour, class, state
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query population samples: %w", err)
	}
	defer rows.Close()

	var out []models.PopulationSample
	for rows.Next() {
		var sm models.PopulationSample
		if err := rows.Scan(&sm.RunID, &sm.Hour, &sm.Class, &sm.State, &sm.Count); err != nil {
			return nil, fmt.Errorf("failed to scan population sample: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteResultStore) Close() error {
	return s.db.Close()
}

// Helper functions

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
