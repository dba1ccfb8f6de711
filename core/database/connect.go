package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/seatwatch/core/logger"
)

// Connect opens the database connection, configures the pool, and verifies connectivity.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ConnectDSN(ctx, cfg.DSN(), cfg.MaxConnections, slog.String("host", cfg.Host), slog.String("port", cfg.Port), slog.String("db", cfg.Name))
}

// ConnectDSN is Connect for an already rendered DSN. maxConns <= 0 leaves the pool unbounded.
func ConnectDSN(ctx context.Context, dsn string, maxConns int, where ...slog.Attr) (*sqlx.DB, error) {
	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := logger.Took(start)
	base := append([]slog.Attr{slog.String("driver", "postgres")}, where...)
	if err != nil {
		logger.Error(ctx, logger.CompDB, "db.connect",
			append(base, slog.String("status", "fail"), slog.Duration("duration", took), logger.Err(err))...,
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}
	logger.Info(ctx, logger.CompDB, "db.connect",
		append(base, slog.String("status", "ok"), slog.Int("pool_open", maxConns), slog.Duration("duration", took))...,
	)
	return db, nil
}

// WaitForPostgres polls the server until it answers a ping or timeout elapses.
func WaitForPostgres(dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			err = db.Ping()
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		}
		time.Sleep(2 * time.Second)
	}
}
