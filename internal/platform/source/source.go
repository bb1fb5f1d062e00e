// Package source provides read-only access to the relational system holding
// the tabular clinical extracts. Two drivers exist: Snowflake (the
// production warehouse, authenticated with password plus a per-run TOTP
// passcode) and Postgres (a development source carrying the same views).
package source

import "context"

// Result is one query's output: named columns plus rows of values in column
// order.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Conn is one open connection to the relational source.
type Conn interface {
	// Select runs a read-only query and materializes all rows.
	Select(ctx context.Context, query string) (*Result, error)
	Close(ctx context.Context) error
}
