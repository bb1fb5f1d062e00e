package guideline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medigraph/medigraph/internal/platform/graph"
)

// fakeStore holds named condition/medication nodes and records every merge
// operation it receives.
type fakeStore struct {
	conditions  map[string]string // code -> name
	medications map[string]string
	ops         []graph.Op
}

func (s *fakeStore) Apply(_ context.Context, ops []graph.Op) error {
	s.ops = append(s.ops, ops...)
	return nil
}

func (s *fakeStore) Query(_ context.Context, cypher string, params map[string]any) ([]graph.Record, error) {
	term := strings.ToLower(fmt.Sprint(params["term"]))
	nodes := s.conditions
	if strings.Contains(cypher, "Medication") {
		nodes = s.medications
	}

	var records []graph.Record
	for code, name := range nodes {
		if strings.Contains(strings.ToLower(name), term) {
			records = append(records, graph.Record{"code": code})
		}
	}
	return records, nil
}

func (s *fakeStore) edges(relType string) []graph.EdgeMerge {
	var out []graph.EdgeMerge
	for _, op := range s.ops {
		if e, ok := op.(graph.EdgeMerge); ok && e.Type == relType {
			out = append(out, e)
		}
	}
	return out
}

func TestSeedMergesGuidelineNodes(t *testing.T) {
	store := &fakeStore{}
	if err := NewSeeder(store, zerolog.Nop()).Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	var merged []string
	for _, op := range store.ops {
		if n, ok := op.(graph.NodeMerge); ok && n.Ref.Label == graph.LabelGuideline {
			merged = append(merged, fmt.Sprint(n.Ref.Value))
		}
	}
	if len(merged) != len(Guidelines) {
		t.Errorf("merged guidelines = %v", merged)
	}
}

func TestSeedLinksConditionsAndMedicationsByKeyword(t *testing.T) {
	store := &fakeStore{
		conditions:  map[string]string{"E11": "Type 2 diabetes mellitus", "I10": "Essential hypertension"},
		medications: map[string]string{"860975": "Metformin 500mg", "314076": "Lisinopril 10mg"},
	}
	if err := NewSeeder(store, zerolog.Nop()).Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	if len(store.edges(graph.RelMentionsCondition)) == 0 {
		t.Error("no MENTIONS_CONDITION edges created")
	}
	if len(store.edges(graph.RelMentionsMedication)) == 0 {
		t.Error("no MENTIONS_MEDICATION edges created")
	}

	recs := store.edges(graph.RelRecommends)
	if len(recs) == 0 {
		t.Fatal("no RECOMMENDS edge for metformin in the diabetes guideline")
	}
	if recs[0].Props["reason"] != "first-line therapy" {
		t.Errorf("reason = %v", recs[0].Props["reason"])
	}
}

func TestSeedSkipsLinksWhenGraphHasNoMatches(t *testing.T) {
	store := &fakeStore{} // no conditions or medications loaded
	if err := NewSeeder(store, zerolog.Nop()).Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	for _, rel := range []string{graph.RelMentionsCondition, graph.RelMentionsMedication, graph.RelRecommends} {
		if n := len(store.edges(rel)); n != 0 {
			t.Errorf("%s edges = %d, want 0", rel, n)
		}
	}
}
