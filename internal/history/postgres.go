package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricehawk/pricehawk/internal/search"
)

// DB is the subset of pgxpool.Pool the recorder needs; pgxmock satisfies it
// in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Close()
}

// PostgresRecorder implements Recorder on Postgres.
//
// Expected schema:
//
//	CREATE TABLE search_history (
//	    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//	    request_id TEXT NOT NULL,
//	    term TEXT NOT NULL,
//	    category TEXT NOT NULL DEFAULT '',
//	    price_ceiling NUMERIC,
//	    amazon_ok BOOLEAN NOT NULL,
//	    myntra_ok BOOLEAN NOT NULL,
//	    product_count INT NOT NULL,
//	    duration_ms BIGINT NOT NULL,
//	    searched_at TIMESTAMPTZ NOT NULL
//	);
type PostgresRecorder struct {
	db DB
}

// NewPostgresRecorder connects a pgx pool to the given DSN.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create history pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}
	return &PostgresRecorder{db: pool}, nil
}

// NewPostgresRecorderWithDB wraps an existing connection; used by tests.
func NewPostgresRecorderWithDB(db DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Record inserts one row per aggregation.
func (r *PostgresRecorder) Record(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO search_history
			(request_id, term, category, price_ceiling, amazon_ok, myntra_ok, product_count, duration_ms, searched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		entry.RequestID,
		entry.Term,
		entry.Category,
		entry.PriceCeiling,
		entry.Sources[search.SourceAmazon],
		entry.Sources[search.SourceMyntra],
		entry.ProductCount,
		entry.Duration.Milliseconds(),
		entry.At,
	)
	if err != nil {
		return fmt.Errorf("insert search history: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (r *PostgresRecorder) Close() {
	r.db.Close()
}
