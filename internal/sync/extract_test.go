package sync

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/medigraph/medigraph/internal/platform/errs"
	"github.com/medigraph/medigraph/internal/platform/source"
)

type fakeConn struct {
	result  *source.Result
	err     error
	queries []string
}

func (c *fakeConn) Select(_ context.Context, query string) (*source.Result, error) {
	c.queries = append(c.queries, query)
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func (c *fakeConn) Close(context.Context) error { return nil }

func TestFetchAppliesRowCapInQuery(t *testing.T) {
	conn := &fakeConn{result: &source.Result{
		Columns: []string{"PATIENT_ID", "FIRST_NAME", "LAST_NAME", "SEX", "ZIP", "AGE"},
	}}

	_, err := NewExtractor(conn).Fetch(context.Background(), EntityPatient, 7000)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(conn.queries) != 1 || !strings.Contains(conn.queries[0], "LIMIT 7000") {
		t.Errorf("cap not applied at the source: %q", conn.queries)
	}
}

func TestFetchObservationsOrdersByTimestamp(t *testing.T) {
	conn := &fakeConn{result: &source.Result{
		Columns: expectedColumns[EntityObservation],
	}}

	_, err := NewExtractor(conn).Fetch(context.Background(), EntityObservation, 10)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(conn.queries[0], "ORDER BY OBS_DATETIME") {
		t.Errorf("observation query missing timestamp ordering: %q", conn.queries[0])
	}
}

func TestFetchMissingColumnIsSchemaDrift(t *testing.T) {
	conn := &fakeConn{result: &source.Result{
		Columns: []string{"PATIENT_ID", "FIRST_NAME", "LAST_NAME", "SEX", "ZIP"}, // AGE dropped
	}}

	_, err := NewExtractor(conn).Fetch(context.Background(), EntityPatient, 100)
	var qerr *errs.SourceQueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("error = %v, want *errs.SourceQueryError", err)
	}
	if !strings.Contains(qerr.Error(), "AGE") {
		t.Errorf("error does not name the missing column: %v", qerr)
	}
}

func TestFetchMatchesColumnsCaseInsensitively(t *testing.T) {
	// Postgres reports lowercase column names for the same views.
	conn := &fakeConn{result: &source.Result{
		Columns: []string{"patient_id", "first_name", "last_name", "sex", "zip", "age"},
		Rows: [][]any{
			{"P001", "Alice", "Nguyen", "F", "02115", int64(45)},
		},
	}}

	rows, err := NewExtractor(conn).Fetch(context.Background(), EntityPatient, 100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	p, ok := rows[0].(PatientRow)
	if !ok {
		t.Fatalf("row type = %T", rows[0])
	}
	if p.ID != "P001" || p.FirstName != "Alice" {
		t.Errorf("parsed row = %+v", p)
	}
}

func TestFetchCoercesSourceValues(t *testing.T) {
	conn := &fakeConn{result: &source.Result{
		Columns: expectedColumns[EntityObservation],
		Rows: [][]any{
			{"O1", "P001", nil, "HbA1c", "6.8", "%", "laboratory", "4548-4", nil},
		},
	}}

	rows, err := NewExtractor(conn).Fetch(context.Background(), EntityObservation, 100)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	o := rows[0].(ObservationRow)
	if o.EncounterID != "" {
		t.Errorf("nil encounter id should become empty, got %q", o.EncounterID)
	}
	if o.Value == nil || *o.Value != 6.8 {
		t.Errorf("value = %v, want 6.8", o.Value)
	}
}

func TestFetchWrapsSourceErrors(t *testing.T) {
	conn := &fakeConn{err: errors.New("view does not exist")}

	_, err := NewExtractor(conn).Fetch(context.Background(), EntityCondition, 100)
	var qerr *errs.SourceQueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("error = %v, want *errs.SourceQueryError", err)
	}
	if qerr.Entity != "Condition" {
		t.Errorf("entity = %q, want Condition", qerr.Entity)
	}
}

func TestFetchConnectionLossIsSourceUnavailable(t *testing.T) {
	for name, cause := range map[string]error{
		"network error": &net.OpError{Op: "read", Err: errors.New("connection reset by peer")},
		"bad conn":      fmt.Errorf("select: %w", driver.ErrBadConn),
	} {
		t.Run(name, func(t *testing.T) {
			conn := &fakeConn{err: cause}

			_, err := NewExtractor(conn).Fetch(context.Background(), EntityCondition, 100)
			var unavailable *errs.SourceUnavailable
			if !errors.As(err, &unavailable) {
				t.Fatalf("error = %v, want *errs.SourceUnavailable", err)
			}
		})
	}
}
