package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

// exposureSchema is a two-step schema in the shape of the real one.
var exposureSchema = fstest.MapFS{
	"sql/20261001_090000_exposures.up.sql": &fstest.MapFile{
		Data: []byte("CREATE TABLE exposures (id TEXT PRIMARY KEY, name TEXT NOT NULL);"),
	},
	"sql/20261001_090000_exposures.down.sql": &fstest.MapFile{
		Data: []byte("DROP TABLE exposures;"),
	},
	"sql/20261002_090000_exposure_counts.up.sql": &fstest.MapFile{
		Data: []byte("ALTER TABLE exposures ADD COLUMN total_counts REAL;"),
	},
	"sql/README.md": &fstest.MapFile{Data: []byte("not a migration")},
}

// useSchema points Schema at src for the duration of the test.
func useSchema(t *testing.T, src Source) {
	t.Helper()
	orig := Schema
	Schema = src
	t.Cleanup(func() { Schema = orig })
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query: %v", err)
	}
	return n == 1
}

func TestMigrate_AppliesInOrder(t *testing.T) {
	useSchema(t, Source{FS: exposureSchema, Dir: "sql"})
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// The second migration only works after the first.
	if _, err := db.ExecContext(ctx, "INSERT INTO exposures (id, name, total_counts) VALUES ('1', 'r00001.fits', 3000)"); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}

	states, err := db.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("SchemaStatus() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("SchemaStatus() = %d entries, want 2", len(states))
	}
	for i, want := range []string{"exposures", "exposure_counts"} {
		if states[i].Name != want || !states[i].Applied() {
			t.Errorf("state[%d] = %s applied=%v, want %s applied", i, states[i].Name, states[i].Applied(), want)
		}
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestSchemaStatus_Pending(t *testing.T) {
	useSchema(t, Source{FS: exposureSchema, Dir: "sql"})
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	states, err := db.SchemaStatus(context.Background())
	if err != nil {
		t.Fatalf("SchemaStatus() error = %v", err)
	}
	for _, s := range states {
		if s.Applied() {
			t.Errorf("%s applied before Migrate", s.Version)
		}
	}
	if states[0].Version != "20261001_090000" || states[0].Down == "" || states[1].Down != "" {
		t.Errorf("states = %+v", states)
	}
}

func TestRollback(t *testing.T) {
	useSchema(t, Source{FS: exposureSchema, Dir: "sql"})
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The latest migration has no down file.
	if _, err := db.Rollback(ctx); !errors.Is(err, ErrNoDownSQL) {
		t.Fatalf("Rollback() error = %v, want ErrNoDownSQL", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = '20261002_090000'"); err != nil {
		t.Fatalf("forget second migration: %v", err)
	}
	m, err := db.Rollback(ctx)
	if err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}
	if m == nil || m.Name != "exposures" {
		t.Fatalf("Rollback() = %+v, want exposures", m)
	}
	if tableExists(t, db, "exposures") {
		t.Error("exposures table still exists after rollback")
	}

	m, err = db.Rollback(ctx)
	if err != nil || m != nil {
		t.Errorf("Rollback() on empty schema = %+v, %v; want nil, nil", m, err)
	}
}

func TestMigrate_NoSource(t *testing.T) {
	useSchema(t, Source{})
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() with no migrations error = %v", err)
	}
}

func TestMigrate_FailureStopsAtBrokenMigration(t *testing.T) {
	broken := fstest.MapFS{
		"20261001_090000_exposures.up.sql": &fstest.MapFile{Data: []byte("CREATE TABLE exposures (id TEXT);")},
		"20261002_090000_broken.up.sql":    &fstest.MapFile{Data: []byte("CREATE TABLE;")},
	}
	useSchema(t, Source{FS: broken})
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	err := db.Migrate(ctx)
	if err == nil || !strings.Contains(err.Error(), "20261002_090000 (broken)") {
		t.Fatalf("Migrate() error = %v, want failure naming the broken migration", err)
	}
	if !tableExists(t, db, "exposures") {
		t.Error("earlier migration should stay applied")
	}
	states, err := db.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("SchemaStatus() error = %v", err)
	}
	if !states[0].Applied() || states[1].Applied() {
		t.Errorf("applied = [%v %v], want [true false]", states[0].Applied(), states[1].Applied())
	}
}

func TestSchemaStatus_UnknownAppliedVersion(t *testing.T) {
	useSchema(t, Source{FS: exposureSchema, Dir: "sql"})
	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	useSchema(t, Source{})
	if _, err := db.SchemaStatus(ctx); err == nil {
		t.Error("SchemaStatus() with applied versions missing from the source: want error")
	}
}

func TestLoad_MissingUp(t *testing.T) {
	src := Source{FS: fstest.MapFS{
		"20261001_090000_exposures.down.sql": &fstest.MapFile{Data: []byte("DROP TABLE exposures;")},
	}}
	if _, err := src.load(); err == nil {
		t.Error("load() with only a down file: want error")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		file        string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOk      bool
	}{
		{"20261014_120000_initial_schema.up.sql", "20261014_120000", "initial_schema", true, true},
		{"20261014_120000_initial_schema.down.sql", "20261014_120000", "initial_schema", false, true},
		{"20261014_120000_add_state_history_index.up.sql", "20261014_120000", "add_state_history_index", true, true},
		{"readme.txt", "", "", false, false},
		{"20261014_120000_initial_schema.sql", "", "", false, false},
		{"invalid.up.sql", "", "", false, false},
		{"2026_120000_short.up.sql", "", "", false, false},
		{"20261014_120000.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.file)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if ok && (version != tt.wantVersion || name != tt.wantName || up != tt.wantUp) {
				t.Errorf("got (%q, %q, %v), want (%q, %q, %v)", version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
