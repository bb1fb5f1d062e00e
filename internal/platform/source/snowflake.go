package source

import (
	"context"
	"database/sql"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/medigraph/medigraph/internal/platform/errs"
)

// SnowflakeParams carries the warehouse connection settings. The TOTP
// passcode is collected per run and is not part of the stored configuration.
type SnowflakeParams struct {
	User      string
	Password  string
	Account   string
	Warehouse string
	Database  string
	Schema    string
	Role      string
}

type snowflakeConn struct {
	db *sql.DB
}

// ConnectSnowflake opens a single warehouse connection using username,
// password, and the caller-supplied TOTP passcode.
func ConnectSnowflake(ctx context.Context, p SnowflakeParams, passcode string) (Conn, error) {
	cfg := &sf.Config{
		User:      p.User,
		Password:  p.Password,
		Account:   p.Account,
		Warehouse: p.Warehouse,
		Database:  p.Database,
		Schema:    p.Schema,
		Role:      p.Role,
		Passcode:  passcode,
	}

	dsn, err := sf.DSN(cfg)
	if err != nil {
		return nil, &errs.SourceUnavailable{Err: err}
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, &errs.SourceUnavailable{Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &errs.SourceUnavailable{Err: err}
	}

	return &snowflakeConn{db: db}, nil
}

func (c *snowflakeConn) Select(ctx context.Context, query string) (*Result, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

func (c *snowflakeConn) Close(ctx context.Context) error {
	return c.db.Close()
}
