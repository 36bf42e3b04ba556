package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pawstay/pawstay/services/api/migrations"
)

// Open opens the SQLite database at path and applies the embedded migrations.
// Write transactions begin IMMEDIATE so admissions on the same file serialise.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_txlock=immediate"

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrations.ApplySQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
