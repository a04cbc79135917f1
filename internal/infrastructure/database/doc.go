// Package database provides SQLite connectivity for conectsim.
//
// It opens the store with WAL and a busy timeout on a single connection,
// and applies, reports and rolls back the schema registered in Schema by
// the migrations package.
//
// The database holds exposure records and device state history. The
// instrument graph itself is never persisted; it is rebuilt from the
// instrument description at every start.
//
// Usage:
//
//	db, err := database.Open(ctx, database.FromConfig(cfg.Database))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: new columns must be NULLABLE or have DEFAULT
// values. A migration without .down.sql cannot be rolled back.
package database
