// Package guideline seeds curated clinical guideline snippets into the
// graph and links them to existing Condition and Medication nodes by
// keyword matching. This is a separate seeding path, not part of the sync
// pipeline; all merges are idempotent.
package guideline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medigraph/medigraph/internal/platform/graph"
)

// Store is the graph surface the seeder needs.
type Store interface {
	Apply(ctx context.Context, ops []graph.Op) error
	Query(ctx context.Context, cypher string, params map[string]any) ([]graph.Record, error)
}

// Guideline is one curated snippet.
type Guideline struct {
	ID     string
	Title  string
	Source string
	Text   string
}

// Guidelines is the built-in seed set.
var Guidelines = []Guideline{
	{
		ID:     "GL_DM_001",
		Title:  "Type 2 Diabetes – First-line Therapy",
		Source: "SynthCare 2025 guideline",
		Text: "For adults with type 2 diabetes, start metformin as first-line therapy " +
			"unless contraindicated. For patients with hypertension, consider an ACE " +
			"inhibitor such as lisinopril. Avoid NSAIDs in patients with advanced " +
			"chronic kidney disease.",
	},
	{
		ID:     "GL_HTN_001",
		Title:  "Hypertension – Blood Pressure Targets",
		Source: "SynthCare 2025 guideline",
		Text: "In adults with hypertension, target blood pressure below 130/80 mmHg. " +
			"For patients with diabetes and hypertension, ACE inhibitors such as " +
			"lisinopril or ARBs are recommended. Beta blockers are not first-line " +
			"for uncomplicated hypertension.",
	},
}

// Keyword dictionaries: a lightweight entity-linking stand-in.
var conditionKeywords = map[string][]string{
	"diabetes":               {"diabetes", "type 2 diabetes"},
	"hypertension":           {"hypertension", "high blood pressure"},
	"chronic kidney disease": {"chronic kidney disease", "ckd"},
}

var medicationKeywords = map[string][]string{
	"metformin":    {"metformin"},
	"lisinopril":   {"lisinopril"},
	"beta-blocker": {"beta blocker", "beta-blocker"},
	"nsaid":        {"nsaid", "nsaids"},
}

// Seeder writes guideline nodes and their keyword links.
type Seeder struct {
	store Store
	log   zerolog.Logger
}

func NewSeeder(store Store, log zerolog.Logger) *Seeder {
	return &Seeder{store: store, log: log}
}

// Seed merges the guideline nodes, then links them to matching conditions
// and medications already present in the graph.
func (s *Seeder) Seed(ctx context.Context) error {
	for _, g := range Guidelines {
		op := graph.MergeNode(graph.LabelGuideline, "id", g.ID, map[string]any{
			"title":  g.Title,
			"source": g.Source,
			"text":   g.Text,
		})
		if err := s.store.Apply(ctx, []graph.Op{op}); err != nil {
			return err
		}
	}
	s.log.Info().Int("guidelines", len(Guidelines)).Msg("guideline nodes merged")

	for _, g := range Guidelines {
		if err := s.link(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) link(ctx context.Context, g Guideline) error {
	text := strings.ToLower(g.Text)
	ref := graph.NodeRef{Label: graph.LabelGuideline, Key: "id", Value: g.ID}

	for label, terms := range conditionKeywords {
		if !mentionsAny(text, terms) {
			continue
		}
		codes, err := s.conditionCodes(ctx, label)
		if err != nil {
			return err
		}
		for _, code := range codes {
			cond := graph.NodeRef{Label: graph.LabelCondition, Key: "code", Value: code}
			if err := s.store.Apply(ctx, []graph.Op{graph.MergeEdge(graph.RelMentionsCondition, ref, cond)}); err != nil {
				return err
			}
		}
	}

	for label, terms := range medicationKeywords {
		if !mentionsAny(text, terms) {
			continue
		}
		codes, err := s.medicationCodes(ctx, label)
		if err != nil {
			return err
		}
		for _, code := range codes {
			med := graph.NodeRef{Label: graph.LabelMedication, Key: "code", Value: code}
			if err := s.store.Apply(ctx, []graph.Op{graph.MergeEdge(graph.RelMentionsMedication, ref, med)}); err != nil {
				return err
			}
		}
	}

	// Explicit recommendation and contraindication links.
	if strings.Contains(text, "metformin") && strings.Contains(text, "type 2 diabetes") {
		if err := s.recommend(ctx, ref, "diabetes", "metformin"); err != nil {
			return err
		}
	}
	if strings.Contains(text, "avoid nsaids") && strings.Contains(text, "chronic kidney disease") {
		codes, err := s.conditionCodes(ctx, "chronic kidney disease")
		if err != nil {
			return err
		}
		for _, code := range codes {
			cond := graph.NodeRef{Label: graph.LabelCondition, Key: "code", Value: code}
			if err := s.store.Apply(ctx, []graph.Op{graph.MergeEdge(graph.RelContraindicated, ref, cond)}); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *Seeder) recommend(ctx context.Context, ref graph.NodeRef, condTerm, medTerm string) error {
	condCodes, err := s.conditionCodes(ctx, condTerm)
	if err != nil {
		return err
	}
	medCodes, err := s.medicationCodes(ctx, medTerm)
	if err != nil {
		return err
	}

	var ops []graph.Op
	for _, code := range medCodes {
		med := graph.NodeRef{Label: graph.LabelMedication, Key: "code", Value: code}
		ops = append(ops, graph.MergeEdgeWith(graph.RelRecommends, ref, med,
			map[string]any{"reason": "first-line therapy"}))
	}
	for _, code := range condCodes {
		cond := graph.NodeRef{Label: graph.LabelCondition, Key: "code", Value: code}
		ops = append(ops, graph.MergeEdge(graph.RelTargetsCondition, ref, cond))
	}
	if len(ops) == 0 {
		return nil
	}
	return s.store.Apply(ctx, ops)
}

func (s *Seeder) conditionCodes(ctx context.Context, term string) ([]string, error) {
	return s.codes(ctx, "MATCH (c:Condition) WHERE toLower(c.name) CONTAINS toLower($term) RETURN c.code AS code", term)
}

func (s *Seeder) medicationCodes(ctx context.Context, term string) ([]string, error) {
	return s.codes(ctx, "MATCH (m:Medication) WHERE toLower(m.name) CONTAINS toLower($term) RETURN m.code AS code", term)
}

func (s *Seeder) codes(ctx context.Context, cypher, term string) ([]string, error) {
	records, err := s.store.Query(ctx, cypher, map[string]any{"term": term})
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(records))
	for _, rec := range records {
		if code, ok := rec["code"].(string); ok {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

func mentionsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
