// Package graph provides the Neo4j-backed property-graph store. Mutation
// goes through merge operations batched per Apply call; one Apply call is
// one write transaction, which is the loader's unit of atomicity.
package graph

// Node labels. These come from this fixed vocabulary only, never from user
// input, so they can be interpolated into Cypher directly.
const (
	LabelPatient     = "Patient"
	LabelProvider    = "Provider"
	LabelEncounter   = "Encounter"
	LabelCondition   = "Condition"
	LabelMedication  = "Medication"
	LabelObservation = "Observation"
	LabelGuideline   = "Guideline"
)

// Relationship types.
const (
	RelHasEncounter       = "HAS_ENCOUNTER"
	RelHasProvider        = "HAS_PROVIDER"
	RelHasCondition       = "HAS_CONDITION"
	RelTakesMedication    = "TAKES_MEDICATION"
	RelHasMedication      = "HAS_MEDICATION"
	RelHasObservation     = "HAS_OBSERVATION"
	RelMentionsCondition  = "MENTIONS_CONDITION"
	RelMentionsMedication = "MENTIONS_MEDICATION"
	RelRecommends         = "RECOMMENDS"
	RelTargetsCondition   = "TARGETS_CONDITION"
	RelContraindicated    = "CONTRAINDICATED_FOR"
)

// Record is one row of a read query, keyed by the query's return aliases.
type Record map[string]any

// NodeRef identifies a node by label and natural key.
type NodeRef struct {
	Label string
	Key   string
	Value any
}

// Op is a single merge operation applied within a write transaction.
type Op interface {
	isOp()
}

// NodeMerge merges a node by natural key and overwrites its scalar
// attributes. With no Props it is a stub merge: create-if-absent without
// touching existing attributes, so a stub never clobbers a richer record.
type NodeMerge struct {
	Ref   NodeRef
	Props map[string]any
}

func (NodeMerge) isOp() {}

// EdgeMerge merges a directed relationship between two existing nodes.
// Endpoints are matched, not merged; the loader emits stub NodeMerges for
// both endpoints first, so an edge can never dangle.
type EdgeMerge struct {
	Type  string
	From  NodeRef
	To    NodeRef
	Props map[string]any
}

func (EdgeMerge) isOp() {}

// MergeNode builds a full upsert of a node's attributes.
func MergeNode(label, key string, value any, props map[string]any) NodeMerge {
	return NodeMerge{Ref: NodeRef{Label: label, Key: key, Value: value}, Props: props}
}

// MergeStub builds a minimal create-if-absent merge for a referenced node.
func MergeStub(label, key string, value any) NodeMerge {
	return NodeMerge{Ref: NodeRef{Label: label, Key: key, Value: value}}
}

// MergeEdge builds a relationship merge between two node references.
func MergeEdge(relType string, from, to NodeRef) EdgeMerge {
	return EdgeMerge{Type: relType, From: from, To: to}
}

// MergeEdgeWith builds a relationship merge carrying relationship
// properties.
func MergeEdgeWith(relType string, from, to NodeRef, props map[string]any) EdgeMerge {
	return EdgeMerge{Type: relType, From: from, To: to, Props: props}
}
