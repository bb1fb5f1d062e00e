package source

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medigraph/medigraph/internal/platform/errs"
)

type postgresConn struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pooled connection to a Postgres source exposing
// the same extract views as the warehouse.
func ConnectPostgres(ctx context.Context, databaseURL string) (Conn, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, &errs.SourceUnavailable{Err: err}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, &errs.SourceUnavailable{Err: err}
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &errs.SourceUnavailable{Err: err}
	}

	return &postgresConn{pool: pool}, nil
}

func (c *postgresConn) Select(ctx context.Context, query string) (*Result, error) {
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

func (c *postgresConn) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}
