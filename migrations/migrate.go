package migrations

import (
	"context"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

//go:embed postgres/*.sql sqlite/*.sql
var migrationFiles embed.FS

// pgMigrationLock serialises migrators across API replicas.
const pgMigrationLock int64 = 801234567

// ledger is what a database must provide for run to apply a directory of
// migrations exactly once.
type ledger interface {
	seen(ctx context.Context, name string) (bool, error)
	// apply executes body and records name in one transaction.
	apply(ctx context.Context, name, body string) error
}

func run(ctx context.Context, dir string, l ledger) error {
	entries, err := migrationFiles.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		done, err := l.seen(ctx, name)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if done {
			continue
		}
		raw, err := migrationFiles.ReadFile(path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			continue
		}
		if err := l.apply(ctx, name, body); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
	}
	return nil
}

type pgLedger struct {
	conn *pgxpool.Conn
}

func (l pgLedger) seen(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := l.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name).Scan(&ok)
	return ok, err
}

func (l pgLedger) apply(ctx context.Context, name, body string) error {
	return pgx.BeginFunc(ctx, l.conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, body); err != nil {
			return fmt.Errorf("exec: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("record: %w", err)
		}
		return nil
	})
}

// Apply brings a Postgres database up to date. Concurrent callers wait on an
// advisory lock.
func Apply(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, pgMigrationLock); err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, pgMigrationLock)
	}()

	const ensure = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := conn.Exec(ctx, ensure); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return run(ctx, "postgres", pgLedger{conn: conn})
}

type sqliteLedger struct {
	db *sqlx.DB
}

func (l sqliteLedger) seen(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := l.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = ?)`, name)
	return ok, err
}

func (l sqliteLedger) apply(ctx context.Context, name, body string) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx, body); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}

// ApplySQLite brings a SQLite database up to date.
func ApplySQLite(ctx context.Context, db *sqlx.DB) error {
	const ensure = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	name       TEXT PRIMARY KEY,
	applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`
	if _, err := db.ExecContext(ctx, ensure); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return run(ctx, "sqlite", sqliteLedger{db: db})
}
