// Package db opens the Postgres pool used for rollup history.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	applicationName = "carepanel"
	defaultMaxConns = 4
	pingTimeout     = 5 * time.Second
)

// ParseConfig parses dsn and applies pool defaults that the DSN leaves unset.
func ParseConfig(dsn string) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	// Small pool unless the DSN sets pool_max_conns.
	if config.MaxConns > defaultMaxConns && !hasParam(dsn, "pool_max_conns") {
		config.MaxConns = defaultMaxConns
	}
	return config, nil
}

// New creates a new PostgreSQL connection pool and checks it answers.
func New(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}

// hasParam reports whether the DSN sets name, in either URL or keyword form.
func hasParam(dsn, name string) bool {
	return strings.Contains(dsn, name+"=")
}
