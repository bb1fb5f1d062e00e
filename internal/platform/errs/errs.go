// Package errs defines the error taxonomy shared by the sync pipeline and
// the question-answering path. Loader-side errors are fatal to their batch
// and surface to the operator; router-side errors are absorbed into a soft
// user-facing response.
package errs

import "fmt"

// ConfigurationError reports required connection parameters missing from the
// environment. Raised before any connection attempt.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// SourceUnavailable reports an authentication or network failure against the
// relational source. Fatal for the current run.
type SourceUnavailable struct {
	Err error
}

func (e *SourceUnavailable) Error() string {
	return fmt.Sprintf("source unavailable: %v", e.Err)
}

func (e *SourceUnavailable) Unwrap() error { return e.Err }

// GraphStoreUnavailable reports an authentication or network failure against
// the graph store. Fatal for the current run.
type GraphStoreUnavailable struct {
	Err error
}

func (e *GraphStoreUnavailable) Error() string {
	return fmt.Sprintf("graph store unavailable: %v", e.Err)
}

func (e *GraphStoreUnavailable) Unwrap() error { return e.Err }

// SourceQueryError reports expected columns missing from an extract (schema
// drift) or a failing source query. Fatal for that entity type's load.
type SourceQueryError struct {
	Entity string
	Err    error
}

func (e *SourceQueryError) Error() string {
	return fmt.Sprintf("source query for %s: %v", e.Entity, e.Err)
}

func (e *SourceQueryError) Unwrap() error { return e.Err }

// RowUpsertError reports a single row failing to upsert. Aborts the
// remaining rows of that entity type's batch; already-applied rows persist.
type RowUpsertError struct {
	Entity string
	Row    int
	Err    error
}

func (e *RowUpsertError) Error() string {
	return fmt.Sprintf("upsert %s row %d: %v", e.Entity, e.Row, e.Err)
}

func (e *RowUpsertError) Unwrap() error { return e.Err }
