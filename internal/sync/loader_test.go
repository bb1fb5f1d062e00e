package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medigraph/medigraph/internal/platform/errs"
	"github.com/medigraph/medigraph/internal/platform/graph"
	"github.com/medigraph/medigraph/internal/qa"
)

// -- In-memory store with merge semantics --

type memStore struct {
	nodes map[string]map[string]map[string]any // label -> key value -> props
	edges map[string]bool
	links []graph.EdgeMerge

	applies   int
	failAfter int // fail the Nth Apply call onward; -1 disables
}

func newMemStore() *memStore {
	return &memStore{
		nodes:     make(map[string]map[string]map[string]any),
		edges:     make(map[string]bool),
		failAfter: -1,
	}
}

func (s *memStore) Apply(_ context.Context, ops []graph.Op) error {
	if s.failAfter >= 0 && s.applies >= s.failAfter {
		return errors.New("store unavailable")
	}
	s.applies++

	for _, op := range ops {
		switch o := op.(type) {
		case graph.NodeMerge:
			byKey, ok := s.nodes[o.Ref.Label]
			if !ok {
				byKey = make(map[string]map[string]any)
				s.nodes[o.Ref.Label] = byKey
			}
			key := fmt.Sprint(o.Ref.Value)
			props, exists := byKey[key]
			if !exists {
				props = map[string]any{o.Ref.Key: o.Ref.Value}
				byKey[key] = props
			}
			for k, v := range o.Props {
				props[k] = v
			}
		case graph.EdgeMerge:
			if !s.hasNode(o.From) || !s.hasNode(o.To) {
				return fmt.Errorf("dangling edge %s: endpoint missing", o.Type)
			}
			if key := edgeKey(o); !s.edges[key] {
				s.edges[key] = true
				s.links = append(s.links, o)
			}
		}
	}
	return nil
}

func (s *memStore) hasNode(ref graph.NodeRef) bool {
	_, ok := s.nodes[ref.Label][fmt.Sprint(ref.Value)]
	return ok
}

func edgeKey(o graph.EdgeMerge) string {
	return fmt.Sprintf("%s/%v-[%s]->%s/%v", o.From.Label, o.From.Value, o.Type, o.To.Label, o.To.Value)
}

func (s *memStore) CountNodes(_ context.Context, label string) (int64, error) {
	return int64(len(s.nodes[label])), nil
}

// Query serves the patient-medication read shape against the stored graph,
// so loaded rows can be read back through the question router.
func (s *memStore) Query(_ context.Context, cypher string, params map[string]any) ([]graph.Record, error) {
	if !strings.Contains(cypher, graph.RelTakesMedication) {
		return nil, fmt.Errorf("unsupported query: %s", cypher)
	}

	var out []graph.Record
	for _, l := range s.links {
		if l.Type != graph.RelTakesMedication {
			continue
		}
		patient := s.nodes[graph.LabelPatient][fmt.Sprint(l.From.Value)]
		med := s.nodes[graph.LabelMedication][fmt.Sprint(l.To.Value)]
		if patient == nil || med == nil || !patientMatches(patient, params) {
			continue
		}
		out = append(out, graph.Record{
			"patient_id": patient["id"],
			"full_name":  patient["full_name"],
			"rxnorm":     med["code"],
			"medication": med["name"],
		})
	}
	return out, nil
}

func patientMatches(patient map[string]any, params map[string]any) bool {
	if pid, ok := params["pid"].(string); ok && patient["id"] == pid {
		return true
	}
	term, ok := params["term"].(string)
	if !ok || term == "" {
		return false
	}
	name, _ := patient["full_name"].(string)
	return strings.Contains(strings.ToLower(name), strings.ToLower(term))
}

func (s *memStore) node(t *testing.T, label, key string) map[string]any {
	t.Helper()
	props, ok := s.nodes[label][key]
	if !ok {
		t.Fatalf("node %s/%s not found", label, key)
	}
	return props
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// -- Tests --

func TestUpsertPatientComputesFullName(t *testing.T) {
	store := newMemStore()
	loader := NewLoader(store, testLogger())

	age := int64(45)
	applied, err := loader.Upsert(context.Background(), EntityPatient, []Row{
		PatientRow{ID: "P001", FirstName: "Alice", LastName: "Nguyen", Sex: "F", Zip: "02115", Age: &age},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}

	props := store.node(t, graph.LabelPatient, "P001")
	if props["full_name"] != "Alice Nguyen" {
		t.Errorf("full_name = %v, want Alice Nguyen", props["full_name"])
	}
	if props["age"] != int64(45) {
		t.Errorf("age = %v, want 45", props["age"])
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	age := int64(45)
	batches := map[EntityType][]Row{
		EntityPatient: {
			PatientRow{ID: "P001", FirstName: "Alice", LastName: "Nguyen", Sex: "F", Zip: "02115", Age: &age},
		},
		EntityProvider: {
			ProviderRow{ID: "NPI-1", Name: "Dr. Okafor", Specialty: "Cardiology", State: "MA", Zip: "02115"},
		},
		EntityEncounter: {
			EncounterRow{ID: "E1", PatientID: "P001", ProviderNPI: "NPI-1", StartTime: "2024-01-01 09:00:00"},
		},
		EntityCondition: {
			ConditionRow{EncounterID: "E1", PatientID: "P001", Code: "E11", Name: "Type 2 diabetes"},
		},
		EntityMedication: {
			MedicationRow{EncounterID: "E1", PatientID: "P001", Code: "860975", Name: "Metformin"},
		},
		EntityObservation: {
			ObservationRow{ID: "O1", PatientID: "P001", EncounterID: "E1", Description: "HbA1c"},
		},
	}

	for entity, rows := range batches {
		t.Run(string(entity), func(t *testing.T) {
			store := newMemStore()
			loader := NewLoader(store, testLogger())
			ctx := context.Background()

			if _, err := loader.Upsert(ctx, entity, rows); err != nil {
				t.Fatalf("first Upsert: %v", err)
			}
			once, _ := store.CountNodes(ctx, string(entity))

			if _, err := loader.Upsert(ctx, entity, rows); err != nil {
				t.Fatalf("second Upsert: %v", err)
			}
			twice, _ := store.CountNodes(ctx, string(entity))

			if once != twice {
				t.Errorf("node count changed on reapply: %d -> %d", once, twice)
			}
		})
	}
}

func TestEncounterStubsForwardProviderReference(t *testing.T) {
	store := newMemStore()
	loader := NewLoader(store, testLogger())
	ctx := context.Background()

	// No providers loaded yet; the encounter names one by NPI only.
	_, err := loader.Upsert(ctx, EntityEncounter, []Row{
		EncounterRow{ID: "E1", PatientID: "P001", ProviderNPI: "9999", StartTime: "2024-01-01 09:00:00"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	stub := store.node(t, graph.LabelProvider, "9999")
	if stub["id"] != "9999" {
		t.Errorf("stub id = %v", stub["id"])
	}
	if !store.edges[`Encounter/E1-[HAS_PROVIDER]->Provider/9999`] {
		t.Error("encounter->provider edge missing")
	}
	if !store.edges[`Patient/P001-[HAS_PROVIDER]->Provider/9999`] {
		t.Error("patient->provider edge missing")
	}
}

func TestFullLoadEnrichesStubWithoutDuplicating(t *testing.T) {
	store := newMemStore()
	loader := NewLoader(store, testLogger())
	ctx := context.Background()

	_, err := loader.Upsert(ctx, EntityEncounter, []Row{
		EncounterRow{ID: "E1", PatientID: "P001", ProviderNPI: "9999"},
	})
	if err != nil {
		t.Fatalf("encounter Upsert: %v", err)
	}

	_, err = loader.Upsert(ctx, EntityProvider, []Row{
		ProviderRow{ID: "9999", Name: "Dr. Okafor", Specialty: "Cardiology", State: "MA", Zip: "02115"},
	})
	if err != nil {
		t.Fatalf("provider Upsert: %v", err)
	}

	count, _ := store.CountNodes(ctx, graph.LabelProvider)
	if count != 1 {
		t.Fatalf("provider count = %d, want 1", count)
	}
	props := store.node(t, graph.LabelProvider, "9999")
	if props["name"] != "Dr. Okafor" {
		t.Errorf("stub was not enriched: name = %v", props["name"])
	}
}

func TestRowFailureAbortsRemainingRows(t *testing.T) {
	store := newMemStore()
	store.failAfter = 2
	loader := NewLoader(store, testLogger())

	rows := make([]Row, 5)
	for i := range rows {
		rows[i] = PatientRow{ID: fmt.Sprintf("P%03d", i), FirstName: "A", LastName: "B"}
	}

	applied, err := loader.Upsert(context.Background(), EntityPatient, rows)
	if err == nil {
		t.Fatal("expected error")
	}
	var rowErr *errs.RowUpsertError
	if !errors.As(err, &rowErr) {
		t.Fatalf("error type = %T, want *errs.RowUpsertError", err)
	}
	if rowErr.Row != 3 {
		t.Errorf("failing row = %d, want 3", rowErr.Row)
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2 (committed rows persist)", applied)
	}
	if count, _ := store.CountNodes(context.Background(), graph.LabelPatient); count != 2 {
		t.Errorf("store holds %d patients, want 2", count)
	}
}

func TestEmptyBatchAppliesNothing(t *testing.T) {
	store := newMemStore()
	loader := NewLoader(store, testLogger())

	applied, err := loader.Upsert(context.Background(), EntityPatient, nil)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if applied != 0 {
		t.Errorf("applied = %d, want 0", applied)
	}
	if store.applies != 0 {
		t.Errorf("store received %d Apply calls, want 0", store.applies)
	}
}

func TestObservationWithoutIDsIsSkipped(t *testing.T) {
	store := newMemStore()
	loader := NewLoader(store, testLogger())

	applied, err := loader.Upsert(context.Background(), EntityObservation, []Row{
		ObservationRow{ID: "", PatientID: "P001"},
		ObservationRow{ID: "O1", PatientID: ""},
		ObservationRow{ID: "O2", PatientID: "P001", Description: "BP systolic"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}
}

func TestLoadedRowsAnswerQuestions(t *testing.T) {
	store := newMemStore()
	loader := NewLoader(store, testLogger())
	ctx := context.Background()

	if _, err := loader.Upsert(ctx, EntityPatient, []Row{
		PatientRow{ID: "P001", FirstName: "Alice", LastName: "Nguyen", Sex: "F", Zip: "02115"},
	}); err != nil {
		t.Fatalf("patient Upsert: %v", err)
	}
	if _, err := loader.Upsert(ctx, EntityMedication, []Row{
		MedicationRow{EncounterID: "E1", PatientID: "P001", Code: "860975", Name: "Metformin"},
	}); err != nil {
		t.Fatalf("medication Upsert: %v", err)
	}

	router := qa.NewRouter(store, nil, testLogger())
	resp := router.Answer(ctx, "show medications for patient P001")

	if resp.Table == nil {
		t.Fatalf("expected a table, got message %q", resp.Message)
	}
	if len(resp.Table.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(resp.Table.Rows))
	}
	row := resp.Table.Rows[0]
	if row[0] != "P001" || row[1] != "Alice Nguyen" || row[2] != "860975" || row[3] != "Metformin" {
		t.Errorf("row = %v, want the loaded patient-medication pair", row)
	}

	// The display-name leg resolves the same data.
	byName := router.Answer(ctx, "show medications for patient Alice")
	if byName.Table == nil || len(byName.Table.Rows) != 1 {
		t.Errorf("name lookup returned %+v, want the same row", byName.Table)
	}
}

func TestObservationEncounterLinkIsOptional(t *testing.T) {
	store := newMemStore()
	loader := NewLoader(store, testLogger())
	ctx := context.Background()

	_, err := loader.Upsert(ctx, EntityObservation, []Row{
		ObservationRow{ID: "O1", PatientID: "P001", Description: "HbA1c"},
		ObservationRow{ID: "O2", PatientID: "P001", EncounterID: "E1", Description: "BP"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if store.edges[`Encounter/-[HAS_OBSERVATION]->Observation/O1`] {
		t.Error("observation without encounter must not link to one")
	}
	if !store.edges[`Encounter/E1-[HAS_OBSERVATION]->Observation/O2`] {
		t.Error("encounter->observation edge missing")
	}
}
