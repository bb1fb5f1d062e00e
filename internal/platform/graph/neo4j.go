package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/medigraph/medigraph/internal/platform/errs"
)

// Neo4j is the graph store backed by a Neo4j (or AuraDB) instance. Sessions
// are scoped per call and closed on every exit path; the driver itself lives
// for the duration of one pipeline run or one served question.
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
}

// Connect creates a driver and verifies connectivity before returning.
func Connect(ctx context.Context, uri, user, password, database string) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, &errs.GraphStoreUnavailable{Err: err}
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, &errs.GraphStoreUnavailable{Err: err}
	}
	return &Neo4j{driver: driver, database: database}, nil
}

func (s *Neo4j) Close(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

// Apply runs every operation inside a single write transaction.
func (s *Neo4j) Apply(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, op := range ops {
			cypher, params := renderOp(op)
			if _, err := tx.Run(ctx, cypher, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// Query executes a read-only Cypher query and collects the records.
func (s *Neo4j) Query(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		collected, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Record, 0, len(collected))
		for _, rec := range collected {
			out = append(out, Record(rec.AsMap()))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return records.([]Record), nil
}

// CountNodes returns the number of nodes carrying the given label.
func (s *Neo4j) CountNodes(ctx context.Context, label string) (int64, error) {
	records, err := s.Query(ctx, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS c", label), nil)
	if err != nil {
		return 0, err
	}
	return countFromRecords(label, records)
}

// countFromRecords reads the count alias out of a count query's result. An
// unexpected shape is an error, never a zero: a silent zero would tell the
// load gate an already-populated label is empty.
func countFromRecords(label string, records []Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	c, ok := records[0]["c"].(int64)
	if !ok {
		return 0, fmt.Errorf("count %s nodes: unexpected count value %T", label, records[0]["c"])
	}
	return c, nil
}

// Stats summarizes the graph: node counts by label and relationship counts
// by type.
type Stats struct {
	Nodes         map[string]int64 `json:"nodes"`
	Relationships map[string]int64 `json:"relationships"`
}

func (s *Neo4j) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Nodes:         map[string]int64{},
		Relationships: map[string]int64{},
	}

	records, err := s.Query(ctx, "MATCH (n) UNWIND labels(n) AS label RETURN label, count(n) AS c", nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		label, _ := rec["label"].(string)
		c, _ := rec["c"].(int64)
		stats.Nodes[label] = c
	}

	records, err = s.Query(ctx, "MATCH ()-[r]->() RETURN type(r) AS rel, count(r) AS c", nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		rel, _ := rec["rel"].(string)
		c, _ := rec["c"].(int64)
		stats.Relationships[rel] = c
	}

	return stats, nil
}

var schemaStatements = []string{
	"CREATE CONSTRAINT IF NOT EXISTS FOR (p:Patient) REQUIRE p.id IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (pr:Provider) REQUIRE pr.id IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (e:Encounter) REQUIRE e.id IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (c:Condition) REQUIRE c.code IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (m:Medication) REQUIRE m.code IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (o:Observation) REQUIRE o.id IS UNIQUE",
	"CREATE CONSTRAINT IF NOT EXISTS FOR (gl:Guideline) REQUIRE gl.id IS UNIQUE",
	"CREATE INDEX IF NOT EXISTS FOR (c:Condition) ON (c.name)",
	"CREATE INDEX IF NOT EXISTS FOR (m:Medication) ON (m.name)",
}

// EnsureSchema creates the natural-key uniqueness constraints and lookup
// indexes. Idempotent; safe to run before every load.
func (s *Neo4j) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
