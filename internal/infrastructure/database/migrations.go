package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// ErrNoDownSQL is returned by Rollback when the latest migration has no
// .down.sql file.
var ErrNoDownSQL = errors.New("database: migration has no down SQL")

// Source is a directory of migration files named
// YYYYMMDD_HHMMSS_description.up.sql with an optional matching .down.sql.
type Source struct {
	FS  fs.FS
	Dir string
}

// Schema is the source Migrate applies. The migrations package registers
// the embedded conectsim schema here; a zero Source means no migrations.
var Schema Source

// Migration is one versioned schema change.
type Migration struct {
	Version string // YYYYMMDD_HHMMSS
	Name    string
	Up      string
	Down    string
}

// MigrationState is a known migration and when it was applied. AppliedAt
// is zero for pending migrations.
type MigrationState struct {
	Migration
	AppliedAt time.Time
}

// Applied reports whether the migration is recorded in schema_migrations.
func (s MigrationState) Applied() bool { return !s.AppliedAt.IsZero() }

// Migrate applies every pending migration of Schema, oldest first, each in
// its own transaction. A failing migration is rolled back and stops the
// run; the ones before it stay applied.
func (db *DB) Migrate(ctx context.Context) error {
	states, err := db.SchemaStatus(ctx)
	if err != nil {
		return err
	}
	for _, s := range states {
		if s.Applied() {
			continue
		}
		err := db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, s.Up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				s.Version, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", s.Version, s.Name, err)
		}
	}
	return nil
}

// Rollback reverts the most recently applied migration and returns it,
// or nil when nothing is applied.
func (db *DB) Rollback(ctx context.Context) (*Migration, error) {
	states, err := db.SchemaStatus(ctx)
	if err != nil {
		return nil, err
	}
	var latest *MigrationState
	for i := range states {
		if states[i].Applied() {
			latest = &states[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	if latest.Down == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoDownSQL, latest.Version)
	}

	err = db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, latest.Down); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", latest.Version)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rolling back %s (%s): %w", latest.Version, latest.Name, err)
	}
	return &latest.Migration, nil
}

// SchemaStatus lists every migration of Schema in version order with its
// applied time. A version recorded in the database but missing from Schema
// is an error.
func (db *DB) SchemaStatus(ctx context.Context) ([]MigrationState, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	migrations, err := Schema.load()
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	states := make([]MigrationState, len(migrations))
	for i, m := range migrations {
		states[i] = MigrationState{Migration: m, AppliedAt: applied[m.Version]}
		delete(applied, m.Version)
	}
	for version := range applied {
		return nil, fmt.Errorf("migration %s is applied but not in the schema", version)
	}
	return states, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]time.Time, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var version, at string
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, fmt.Errorf("parsing applied_at for %s: %w", version, err)
		}
		out[version] = t
	}
	return out, rows.Err()
}

func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// load reads the up and down files of s, sorted by version.
func (s Source) load() ([]Migration, error) {
	if s.FS == nil {
		return nil, nil
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	files, err := fs.Glob(s.FS, path.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]*Migration)
	for _, file := range files {
		version, name, up, ok := parseMigrationFilename(path.Base(file))
		if !ok {
			continue
		}
		data, err := fs.ReadFile(s.FS, file)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		if up {
			m.Name, m.Up = name, string(data)
		} else {
			m.Down = string(data)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up SQL", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// parseMigrationFilename splits "20261014_120000_initial_schema.up.sql"
// into its version, description and direction.
func parseMigrationFilename(file string) (version, name string, up, ok bool) {
	base, found := strings.CutSuffix(file, ".sql")
	if !found {
		return "", "", false, false
	}
	if b, isUp := strings.CutSuffix(base, ".up"); isUp {
		base, up = b, true
	} else if b, isDown := strings.CutSuffix(base, ".down"); isDown {
		base = b
	} else {
		return "", "", false, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 || len(parts[0]) != 8 || len(parts[1]) != 6 || parts[2] == "" {
		return "", "", false, false
	}
	return parts[0] + "_" + parts[1], parts[2], up, true
}
