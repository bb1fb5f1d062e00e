package qa

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Translator is the opaque external text-to-query translator. It is
// optional; the deterministic intent table never depends on it.
type Translator interface {
	Translate(ctx context.Context, question string) (string, error)
}

// schemaHint grounds the model in the graph vocabulary so generated Cypher
// stays on known labels and properties.
const schemaHint = `You are generating Cypher for Neo4j with this schema:

Node labels and key properties:
- Patient(id, full_name, sex, age, zip)
- Encounter(id, start_time, end_time, provider_npi)
- Condition(code, name)
- Medication(code, name)
- Provider(id, name, specialty, state, zip)
- Observation(id, description, value, unit, category, code, obs_datetime)

Relationships:
- (p:Patient)-[:HAS_ENCOUNTER]->(e:Encounter)
- (p:Patient)-[:HAS_CONDITION]->(c:Condition)
- (p:Patient)-[:TAKES_MEDICATION]->(m:Medication)
- (p:Patient)-[:HAS_PROVIDER]->(pr:Provider)
- (p:Patient)-[:HAS_OBSERVATION]->(o:Observation)
- (e:Encounter)-[:HAS_CONDITION]->(c:Condition)
- (e:Encounter)-[:HAS_MEDICATION]->(m:Medication)
- (e:Encounter)-[:HAS_PROVIDER]->(pr:Provider)
- (e:Encounter)-[:HAS_OBSERVATION]->(o:Observation)

Rules:
- Always use the properties shown above (id, full_name, code, name, etc.).
- Prefer toLower() in WHERE filters.
- Return tabular results (no graph-returning queries).
- DO NOT use APOC.
- DO NOT include comments, explanations, or markdown; ONLY return pure Cypher.`

// LLMTranslator translates questions to Cypher with an OpenAI model.
type LLMTranslator struct {
	model llms.Model
}

func NewLLMTranslator(apiKey, model string) (*LLMTranslator, error) {
	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, err
	}
	return &LLMTranslator{model: llm}, nil
}

func (t *LLMTranslator) Translate(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question is empty")
	}

	prompt := schemaHint + "\n\nUser question:\n\"\"\"" + question + "\"\"\"\n\n" +
		"You must respond with a SINGLE valid Cypher query only.\n" +
		"Do NOT wrap it in ``` or any other markdown.\n"

	out, err := llms.GenerateFromSinglePrompt(ctx, t.model, prompt, llms.WithTemperature(0.2))
	if err != nil {
		return "", err
	}
	return stripFences(out), nil
}

// stripFences removes markdown code fences the model may add despite the
// prompt, including a leading "cypher" language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.Trim(s, "`")
		s = strings.TrimSpace(s)
		if len(s) >= 6 && strings.EqualFold(s[:6], "cypher") {
			s = strings.TrimSpace(s[6:])
		}
	}
	return s
}
