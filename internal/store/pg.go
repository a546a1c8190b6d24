package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/thesecretlab-dev/zeroid/internal/config"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// OpenPool opens a pgx connection pool against the configured
// Postgres database. Callers close it on shutdown.
func OpenPool(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	pool, err := pgxpool.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}
