package snapshots

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carepanel/carepanel/internal/platform/db"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS daily_rollups (
	domain         TEXT        NOT NULL,
	day            DATE        NOT NULL,
	transactions   INTEGER     NOT NULL,
	revenue        NUMERIC(14,2) NOT NULL,
	average_amount NUMERIC(14,2) NOT NULL,
	captured_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (domain, day)
)`

const upsertSQL = `
INSERT INTO daily_rollups (domain, day, transactions, revenue, average_amount, captured_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (domain, day) DO UPDATE SET
	transactions = EXCLUDED.transactions,
	revenue = EXCLUDED.revenue,
	average_amount = EXCLUDED.average_amount,
	captured_at = EXCLUDED.captured_at`

const listSQL = `
SELECT domain, day, transactions, revenue::float8, average_amount::float8, captured_at
FROM daily_rollups
WHERE domain = $1 AND day BETWEEN $2 AND $3
ORDER BY day`

// Repository persists daily rollups in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repo.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the rollup table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("snapshots: ensure schema: %w", err)
	}
	return nil
}

// UpsertDaily writes rows in one transaction, replacing existing days.
func (r *Repository) UpsertDaily(ctx context.Context, rows []Rollup) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(upsertSQL, row.Domain, row.Day, row.Transactions, row.Revenue, row.AverageAmount, row.CapturedAt)
		}
		results := tx.SendBatch(ctx, batch)
		for range rows {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("snapshots: upsert: %w", err)
			}
		}
		return results.Close()
	})
}

// ListDaily returns the rows of a domain between from and to inclusive.
func (r *Repository) ListDaily(ctx context.Context, domain string, from, to time.Time) ([]Rollup, error) {
	rows, err := r.pool.Query(ctx, listSQL, domain, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Rollup, 0)
	for rows.Next() {
		var row Rollup
		if err := rows.Scan(&row.Domain, &row.Day, &row.Transactions, &row.Revenue, &row.AverageAmount, &row.CapturedAt); err != nil {
			return nil, err
		}
		row.Day = row.Day.UTC()
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
