package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// PoolOptions sizes the connection pool and bounds the startup ping.
// Zero values fall back to the defaults below.
type PoolOptions struct {
	Driver          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// PingTimeout bounds each ping; PingAttempts pings are made PingBackoff apart.
	PingTimeout  time.Duration
	PingAttempts int
	PingBackoff  time.Duration
	Logger       *slog.Logger
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.Driver == "" {
		o.Driver = "postgres"
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 10
	}
	if o.MaxIdleConns <= 0 || o.MaxIdleConns > o.MaxOpenConns {
		o.MaxIdleConns = o.MaxOpenConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 30 * time.Minute
	}
	if o.ConnMaxIdleTime <= 0 {
		o.ConnMaxIdleTime = 5 * time.Minute
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 5 * time.Second
	}
	if o.PingAttempts <= 0 {
		o.PingAttempts = 1
	}
	if o.PingBackoff <= 0 {
		o.PingBackoff = time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Open returns a pooled handle once the database answers a ping. Hosted
// Postgres may still be waking up, so failed pings are retried until ctx
// ends or the attempts run out.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*sql.DB, error) {
	opts = opts.withDefaults()

	conn, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}
	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxIdleConns)
	conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	if err := ping(ctx, conn, opts); err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	return conn, nil
}

func ping(ctx context.Context, conn *sql.DB, opts PoolOptions) error {
	var err error
	for attempt := 1; attempt <= opts.PingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
		err = conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == opts.PingAttempts {
			break
		}

		opts.Logger.WarnContext(ctx, "database not ready, retrying",
			slog.Int("attempt", attempt), slog.Duration("backoff", opts.PingBackoff), slog.Any("error", err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for database: %w", ctx.Err())
		case <-time.After(opts.PingBackoff):
		}
	}
	return fmt.Errorf("failed to ping database after %d attempt(s): %w", opts.PingAttempts, err)
}
