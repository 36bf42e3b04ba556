// Package storage opens the configured backend and hands out its repositories.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pawstay/pawstay/services/api/internal/app"
	"github.com/pawstay/pawstay/services/api/internal/config"
	"github.com/pawstay/pawstay/services/api/internal/storage/postgres"
	"github.com/pawstay/pawstay/services/api/internal/storage/sqlite"
	"github.com/pawstay/pawstay/services/api/migrations"
)

const startupTimeout = 5 * time.Second

// BookingStore serves both admission and lifecycle.
type BookingStore interface {
	app.BookingRepository
	app.LifecycleRepository
}

type Stores struct {
	Bookings BookingStore
	Catalog  app.CatalogRepository
	Ping     func(ctx context.Context) error
	Close    func()
}

// Open connects to the configured backend and applies pending migrations.
func Open(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Stores, error) {
	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	switch cfg.StorageDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.SQLitePath).Info("using sqlite storage")
		return &Stores{
			Bookings: sqlite.NewBookingRepository(db),
			Catalog:  sqlite.NewCatalogRepository(db),
			Ping:     db.PingContext,
			Close:    func() { _ = db.Close() },
		}, nil

	case config.DriverPostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		if cfg.DBMaxConns > 0 {
			poolCfg.MaxConns = cfg.DBMaxConns
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to db: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.WithField("max_conns", poolCfg.MaxConns).Info("using postgres storage")
		return &Stores{
			Bookings: postgres.NewBookingRepository(pool),
			Catalog:  postgres.NewCatalogRepository(pool),
			Ping:     pool.Ping,
			Close:    pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
