// Package qa routes constrained natural-language questions onto a fixed set
// of parameterized graph queries and projects the results into tables.
package qa

import (
	"fmt"
	"strings"
)

// defaultConditionTerm substitutes for an empty condition parameter.
const defaultConditionTerm = "diabetes"

// intent is one entry of the ordered matcher table. The first intent whose
// trigger phrase occurs in the normalized question wins, so more specific
// multi-word triggers sit earlier in the table.
type intent struct {
	name     string
	triggers []string
	// prefixes additionally match the start of the question.
	prefixes []string
	columns  []string
	extract  func(raw, normalized string, triggers []string) string
	query    func(param string) (string, map[string]any)
	success  func(param string) string
	notFound func(param string) string
}

func (in intent) matches(normalized string) bool {
	for _, t := range in.triggers {
		if strings.Contains(normalized, t) {
			return true
		}
	}
	for _, p := range in.prefixes {
		if strings.HasPrefix(normalized, p) {
			return true
		}
	}
	return false
}

// fillerWords are removed from extracted parameters along with the trigger
// phrase itself.
var fillerWords = []string{"show", "list", "who have", "patients"}

// afterTrigger slices the raw question after the first matching trigger,
// keeping the caller's original casing (opaque patient ids are
// case-sensitive). The trigger is located in the raw string directly:
// lowercasing is not length-preserving for every Unicode character, so a
// byte index computed on the normalized form cannot be applied to raw.
func afterTrigger(raw, _ string, triggers []string) string {
	for _, t := range triggers {
		if i := indexFold(raw, t); i >= 0 {
			return trimParam(raw[i+len(t):])
		}
	}
	return ""
}

// indexFold is a case-insensitive strings.Index for an ASCII needle.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

// condTerm extracts a condition phrase by stripping triggers and filler
// words from the normalized question. Condition matching is
// case-insensitive downstream, so the lowercased form is fine.
func condTerm(_, normalized string, triggers []string) string {
	param := normalized
	for _, t := range triggers {
		param = strings.ReplaceAll(param, t, "")
	}
	for _, f := range fillerWords {
		param = strings.ReplaceAll(param, f, "")
	}
	if param = trimParam(param); param == "" {
		return defaultConditionTerm
	}
	return param
}

func trimParam(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'?.`)
}

// patientFilter builds the WHERE fragment for a patient-scoped parameter.
// A hyphen marks an opaque patient identifier matched exactly; anything
// else matches the uppercased id exactly or the display name
// case-insensitively, so short demo ids like P001 still resolve.
func patientFilter(param string) (string, map[string]any) {
	if strings.Contains(param, "-") {
		return "p.id = $pid", map[string]any{"pid": param}
	}
	return "(p.id = $pid OR toLower(p.full_name) CONTAINS toLower($term))",
		map[string]any{"pid": strings.ToUpper(param), "term": param}
}

// intents is the router's priority-ordered decision table.
var intents = []intent{
	{
		name:     "medications-by-patient",
		triggers: []string{"medications for patient", "medication for patient"},
		columns:  []string{"patient_id", "full_name", "rxnorm", "medication"},
		extract:  afterTrigger,
		query: func(param string) (string, map[string]any) {
			where, params := patientFilter(param)
			cypher := `MATCH (p:Patient)-[:TAKES_MEDICATION]->(m:Medication)
WHERE ` + where + `
RETURN p.id AS patient_id,
       p.full_name AS full_name,
       m.code AS rxnorm,
       m.name AS medication
LIMIT 50`
			return cypher, params
		},
		success: func(p string) string {
			return fmt.Sprintf("Medications for patient '%s':", p)
		},
		notFound: func(p string) string {
			return fmt.Sprintf("I couldn't find medications for patient '%s'.", p)
		},
	},
	{
		name:     "provider-by-patient",
		triggers: []string{"providers for patient", "provider for patient"},
		columns:  []string{"patient_id", "full_name", "provider_id", "provider", "specialty", "state"},
		extract:  afterTrigger,
		query: func(param string) (string, map[string]any) {
			where, params := patientFilter(param)
			cypher := `MATCH (p:Patient)-[:HAS_PROVIDER]->(pr:Provider)
WHERE ` + where + `
RETURN DISTINCT p.id AS patient_id,
       p.full_name AS full_name,
       pr.id AS provider_id,
       pr.name AS provider,
       pr.specialty AS specialty,
       pr.state AS state
LIMIT 50`
			return cypher, params
		},
		success: func(p string) string {
			return fmt.Sprintf("Providers for patient '%s':", p)
		},
		notFound: func(p string) string {
			return fmt.Sprintf("I couldn't find providers for patient '%s'.", p)
		},
	},
	{
		name:     "observations-by-patient",
		triggers: []string{"observations for patient", "observation for patient"},
		columns:  []string{"patient_id", "description", "value", "unit", "category", "observed_at"},
		extract:  afterTrigger,
		query: func(param string) (string, map[string]any) {
			where, params := patientFilter(param)
			cypher := `MATCH (p:Patient)-[:HAS_OBSERVATION]->(o:Observation)
WHERE ` + where + `
RETURN p.id AS patient_id,
       o.description AS description,
       o.value AS value,
       o.unit AS unit,
       o.category AS category,
       o.obs_datetime AS observed_at
ORDER BY o.obs_datetime
LIMIT 100`
			return cypher, params
		},
		success: func(p string) string {
			return fmt.Sprintf("Observations for patient '%s':", p)
		},
		notFound: func(p string) string {
			return fmt.Sprintf("I couldn't find observations for patient '%s'.", p)
		},
	},
	{
		name:     "encounters-by-patient",
		triggers: []string{"encounters for patient", "encounter for patient"},
		columns:  []string{"patient_id", "encounter_id", "start_time", "end_time", "provider_npi"},
		extract:  afterTrigger,
		query: func(param string) (string, map[string]any) {
			where, params := patientFilter(param)
			cypher := `MATCH (p:Patient)-[:HAS_ENCOUNTER]->(e:Encounter)
WHERE ` + where + `
RETURN p.id AS patient_id,
       e.id AS encounter_id,
       e.start_time AS start_time,
       e.end_time AS end_time,
       e.provider_npi AS provider_npi
ORDER BY e.start_time
LIMIT 100`
			return cypher, params
		},
		success: func(p string) string {
			return fmt.Sprintf("Encounters for patient '%s':", p)
		},
		notFound: func(p string) string {
			return fmt.Sprintf("I couldn't find encounters for patient '%s'.", p)
		},
	},
	{
		name:     "medications-by-condition",
		triggers: []string{"medications for", "medication for"},
		columns:  []string{"rxnorm", "medication", "patients_on_med"},
		extract:  condTerm,
		query: func(param string) (string, map[string]any) {
			cypher := `MATCH (p:Patient)-[:HAS_CONDITION]->(c:Condition),
      (p)-[:TAKES_MEDICATION]->(m:Medication)
WHERE toLower(c.name) CONTAINS toLower($term)
RETURN DISTINCT m.code AS rxnorm,
       m.name AS medication,
       COUNT(DISTINCT p) AS patients_on_med
ORDER BY patients_on_med DESC
LIMIT 50`
			return cypher, map[string]any{"term": param}
		},
		success: func(p string) string {
			return fmt.Sprintf("Medications used by patients with conditions matching '%s':", p)
		},
		notFound: func(p string) string {
			return fmt.Sprintf("I couldn't find medications for conditions matching '%s'.", p)
		},
	},
	{
		name:     "patients-by-condition",
		triggers: []string{"patients with"},
		prefixes: []string{"show patients", "list patients"},
		columns:  []string{"patient_id", "full_name", "sex", "age", "condition"},
		extract:  condTerm,
		query: func(param string) (string, map[string]any) {
			cypher := `MATCH (p:Patient)-[:HAS_CONDITION]->(c:Condition)
WHERE toLower(c.name) CONTAINS toLower($term)
RETURN p.id AS patient_id,
       p.full_name AS full_name,
       p.sex AS sex,
       p.age AS age,
       c.name AS condition
LIMIT 50`
			return cypher, map[string]any{"term": param}
		},
		success: func(p string) string {
			return fmt.Sprintf("Patients with conditions matching '%s':", p)
		},
		notFound: func(p string) string {
			return fmt.Sprintf("I couldn't find patients with conditions matching '%s'.", p)
		},
	},
}

// helpText enumerates every supported question form; returned when no
// trigger matches, without running a query.
const helpText = "Right now I support questions like:\n" +
	"- `show patients with diabetes`\n" +
	"- `show patients with hypertension`\n" +
	"- `show medications for diabetes`\n" +
	"- `show medications for patient P001`\n" +
	"- `show providers for patient P001`\n" +
	"- `show observations for patient P001`\n" +
	"- `show encounters for patient P001`"
