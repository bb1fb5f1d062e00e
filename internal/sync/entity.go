// Package sync builds the property graph from batched tabular extracts:
// bounded extraction per entity type, a skip gate against reimports, and
// dependency-ordered idempotent upserts with stub nodes for forward
// references.
package sync

import (
	"github.com/medigraph/medigraph/internal/platform/graph"
)

// EntityType names one kind of clinical record. The value doubles as the
// graph label.
type EntityType string

const (
	EntityProvider    EntityType = graph.LabelProvider
	EntityPatient     EntityType = graph.LabelPatient
	EntityEncounter   EntityType = graph.LabelEncounter
	EntityCondition   EntityType = graph.LabelCondition
	EntityMedication  EntityType = graph.LabelMedication
	EntityObservation EntityType = graph.LabelObservation
)

// LoadOrder is the fixed processing order. Providers and patients carry no
// foreign references; encounters reference both; the trailing three
// reference patients and encounters. Stub merges make the order within each
// tier immaterial.
var LoadOrder = []EntityType{
	EntityProvider,
	EntityPatient,
	EntityEncounter,
	EntityCondition,
	EntityMedication,
	EntityObservation,
}

// Row is one extracted record that knows its own merge plan. A nil plan
// means the row is skipped (not an error).
type Row interface {
	Ops() []graph.Op
}

// PatientRow mirrors one V_PATIENTS row.
type PatientRow struct {
	ID        string
	FirstName string
	LastName  string
	Sex       string
	Zip       string
	Age       *int64
}

func (r PatientRow) Ops() []graph.Op {
	props := map[string]any{
		"first_name": r.FirstName,
		"last_name":  r.LastName,
		"full_name":  r.FirstName + " " + r.LastName,
		"sex":        r.Sex,
		"zip":        r.Zip,
	}
	if r.Age != nil {
		props["age"] = *r.Age
	}
	return []graph.Op{
		graph.MergeNode(graph.LabelPatient, "id", r.ID, props),
	}
}

// ProviderRow mirrors one V_PROVIDERS row.
type ProviderRow struct {
	ID        string
	Name      string
	Specialty string
	State     string
	Zip       string
}

func (r ProviderRow) Ops() []graph.Op {
	return []graph.Op{
		graph.MergeNode(graph.LabelProvider, "id", r.ID, map[string]any{
			"name":      r.Name,
			"specialty": r.Specialty,
			"state":     r.State,
			"zip":       r.Zip,
		}),
	}
}

// EncounterRow mirrors one V_ENCOUNTERS row. The provider is referenced by
// NPI only, so it may not exist yet; a stub merge resolves the forward
// reference.
type EncounterRow struct {
	ID          string
	PatientID   string
	ProviderNPI string
	StartTime   string
	EndTime     string
}

func (r EncounterRow) Ops() []graph.Op {
	patient := graph.NodeRef{Label: graph.LabelPatient, Key: "id", Value: r.PatientID}
	encounter := graph.NodeRef{Label: graph.LabelEncounter, Key: "id", Value: r.ID}

	ops := []graph.Op{
		graph.MergeStub(graph.LabelPatient, "id", r.PatientID),
		graph.MergeNode(graph.LabelEncounter, "id", r.ID, map[string]any{
			"start_time":   r.StartTime,
			"end_time":     r.EndTime,
			"provider_npi": r.ProviderNPI,
		}),
		graph.MergeEdge(graph.RelHasEncounter, patient, encounter),
	}

	if r.ProviderNPI != "" {
		provider := graph.NodeRef{Label: graph.LabelProvider, Key: "id", Value: r.ProviderNPI}
		ops = append(ops,
			graph.MergeStub(graph.LabelProvider, "id", r.ProviderNPI),
			graph.MergeEdge(graph.RelHasProvider, encounter, provider),
			graph.MergeEdge(graph.RelHasProvider, patient, provider),
		)
	}
	return ops
}

// ConditionRow mirrors one V_CONDITIONS row, keyed by ICD code.
type ConditionRow struct {
	EncounterID string
	PatientID   string
	Code        string
	Name        string
}

func (r ConditionRow) Ops() []graph.Op {
	patient := graph.NodeRef{Label: graph.LabelPatient, Key: "id", Value: r.PatientID}
	encounter := graph.NodeRef{Label: graph.LabelEncounter, Key: "id", Value: r.EncounterID}
	condition := graph.NodeRef{Label: graph.LabelCondition, Key: "code", Value: r.Code}

	return []graph.Op{
		graph.MergeStub(graph.LabelPatient, "id", r.PatientID),
		graph.MergeStub(graph.LabelEncounter, "id", r.EncounterID),
		graph.MergeNode(graph.LabelCondition, "code", r.Code, map[string]any{"name": r.Name}),
		graph.MergeEdge(graph.RelHasCondition, patient, condition),
		graph.MergeEdge(graph.RelHasCondition, encounter, condition),
	}
}

// MedicationRow mirrors one V_MEDICATIONS row, keyed by RxNorm code.
type MedicationRow struct {
	EncounterID string
	PatientID   string
	Code        string
	Name        string
}

func (r MedicationRow) Ops() []graph.Op {
	patient := graph.NodeRef{Label: graph.LabelPatient, Key: "id", Value: r.PatientID}
	encounter := graph.NodeRef{Label: graph.LabelEncounter, Key: "id", Value: r.EncounterID}
	medication := graph.NodeRef{Label: graph.LabelMedication, Key: "code", Value: r.Code}

	return []graph.Op{
		graph.MergeStub(graph.LabelPatient, "id", r.PatientID),
		graph.MergeStub(graph.LabelEncounter, "id", r.EncounterID),
		graph.MergeNode(graph.LabelMedication, "code", r.Code, map[string]any{"name": r.Name}),
		graph.MergeEdge(graph.RelTakesMedication, patient, medication),
		graph.MergeEdge(graph.RelHasMedication, encounter, medication),
	}
}

// ObservationRow mirrors one OBSERVATIONS row. Rows without an observation
// or patient id are skipped; the encounter link is optional.
type ObservationRow struct {
	ID          string
	PatientID   string
	EncounterID string
	Description string
	Value       *float64
	Unit        string
	Category    string
	Code        string
	ObservedAt  string
}

func (r ObservationRow) Ops() []graph.Op {
	if r.ID == "" || r.PatientID == "" {
		return nil
	}

	patient := graph.NodeRef{Label: graph.LabelPatient, Key: "id", Value: r.PatientID}
	observation := graph.NodeRef{Label: graph.LabelObservation, Key: "id", Value: r.ID}

	props := map[string]any{
		"description":  r.Description,
		"unit":         r.Unit,
		"category":     r.Category,
		"code":         r.Code,
		"obs_datetime": r.ObservedAt,
	}
	if r.Value != nil {
		props["value"] = *r.Value
	}

	ops := []graph.Op{
		graph.MergeStub(graph.LabelPatient, "id", r.PatientID),
		graph.MergeNode(graph.LabelObservation, "id", r.ID, props),
		graph.MergeEdge(graph.RelHasObservation, patient, observation),
	}

	if r.EncounterID != "" {
		encounter := graph.NodeRef{Label: graph.LabelEncounter, Key: "id", Value: r.EncounterID}
		ops = append(ops,
			graph.MergeStub(graph.LabelEncounter, "id", r.EncounterID),
			graph.MergeEdge(graph.RelHasObservation, encounter, observation),
		)
	}
	return ops
}
