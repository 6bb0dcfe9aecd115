package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SchemaVersion is the version a fresh database is migrated to.
const SchemaVersion = 2

// migration moves the schema from version-1 to version.
type migration struct {
	version int
	name    string
	ddl     string
}

var migrations = []migration{
	{1, "initial tables", schemaV1},
	{2, "run listing indexes", schemaV2},
}

const schemaV1 = `
-- One row per simulation run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    description TEXT NOT NULL,
    replicate TEXT NOT NULL,
    seed INTEGER NOT NULL,
    status TEXT NOT NULL,  -- 'running', 'completed', 'failed', 'cancelled'
    hours REAL NOT NULL,
    seconds_per_step REAL NOT NULL,
    steps INTEGER DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    error TEXT,
    results_dir TEXT,
    config TEXT  -- YAML
);
CREATE INDEX IF NOT EXISTS idx_runs_description ON runs(description);

-- Tracked cell paths, one row per cell per completed window
CREATE TABLE IF NOT EXISTS track_records (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    track_window TEXT NOT NULL,
    track_table TEXT NOT NULL,  -- 'Close' or 'Away'
    cell_type TEXT NOT NULL,
    state INTEGER NOT NULL,
    steps INTEGER NOT NULL,
    speed REAL NOT NULL,
    start_x REAL NOT NULL,
    start_y REAL NOT NULL,
    end_x REAL NOT NULL,
    end_y REAL NOT NULL,
    length REAL NOT NULL,
    velocity REAL NOT NULL,
    displacement REAL NOT NULL,
    displacement_rate REAL NOT NULL,
    meandering_index REAL NOT NULL,
    nearest_organizer REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_track_records_run ON track_records(run_id, track_window);

-- LTi positions at each patch statistics hour
CREATE TABLE IF NOT EXISTS patch_positions (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    hour REAL NOT NULL,
    x REAL NOT NULL,
    y REAL NOT NULL,
    state INTEGER NOT NULL,
    in_patch INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_patch_positions_run ON patch_positions(run_id, hour);

-- Hourly population by class and state
CREATE TABLE IF NOT EXISTS population_samples (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    hour REAL NOT NULL,
    class TEXT NOT NULL,
    state INTEGER NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (run_id, hour, class, state)
);
`

// schemaV2 supports ListRuns filtering by status and ordering by start.
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC, id);
`

// InitSchema checks an existing database and applies any pending
// migrations, each in its own transaction.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
		    version INTEGER PRIMARY KEY,
		    applied_at TEXT NOT NULL
		)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, SchemaVersion)
	}
	if current > 0 {
		if err := ValidateIntegrity(ctx, db); err != nil {
			return fmt.Errorf("database integrity check failed: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

// schemaVersion returns the highest applied version, or 0 for a new database.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.ddl); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, m.version); err != nil {
		return err
	}
	return tx.Commit()
}

// ValidateIntegrity runs PRAGMA integrity_check and foreign_key_check.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var problems []string

	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan integrity_check result: %w", err)
		}
		if result != "ok" {
			problems = append(problems, result)
		}
	}
	rows.Close()

	fk, err := db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("failed to run foreign_key_check: %w", err)
	}
	defer fk.Close()
	for fk.Next() {
		var table, parent string
		var rowid sql.NullInt64
		var fkid int
		if err := fk.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("failed to scan foreign_key_check result: %w", err)
		}
		problems = append(problems, fmt.Sprintf("%s row %d references missing %s", table, rowid.Int64, parent))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
