package qa

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medigraph/medigraph/internal/platform/graph"
)

// Querier is the read surface the router needs from the graph store.
type Querier interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]graph.Record, error)
}

// Response is the (message, optional table) pair returned for every
// question. Table is nil when there is nothing tabular to show.
type Response struct {
	Message string `json:"message"`
	Table   *Table `json:"table,omitempty"`
	Intent  string `json:"intent,omitempty"`
}

// Router maps free-text questions onto parameterized graph queries. Each
// question is handled statelessly; a query failure is absorbed into a soft
// response because a read must never take down an interactive session.
type Router struct {
	store      Querier
	translator Translator
	log        zerolog.Logger
}

// NewRouter builds a router. translator may be nil; it is only used by
// AnswerTranslated.
func NewRouter(store Querier, translator Translator, log zerolog.Logger) *Router {
	return &Router{store: store, translator: translator, log: log}
}

// Answer resolves a question through the fixed intent table. An unmatched
// question returns the help enumeration without touching the store.
func (r *Router) Answer(ctx context.Context, question string) Response {
	raw := strings.TrimSpace(question)
	normalized := strings.ToLower(raw)

	for _, in := range intents {
		if !in.matches(normalized) {
			continue
		}

		param := in.extract(raw, normalized, in.triggers)
		cypher, params := in.query(param)

		records, err := r.store.Query(ctx, cypher, params)
		if err != nil {
			// Degrade gracefully: reads mutate nothing, so a failed
			// query becomes a soft answer, not a crash.
			r.log.Warn().Err(err).Str("intent", in.name).Msg("graph query failed")
			return Response{
				Message: "I don't have data for that question right now.",
				Intent:  in.name,
			}
		}

		if len(records) == 0 {
			return Response{Message: in.notFound(param), Intent: in.name}
		}
		return Response{
			Message: in.success(param),
			Table:   Project(records, in.columns),
			Intent:  in.name,
		}
	}

	return Response{Message: helpText}
}

// AnswerTranslated routes a question through the external NL→Cypher
// translator instead of the intent table. Failures on this path degrade the
// same way as routed query failures.
func (r *Router) AnswerTranslated(ctx context.Context, question string) Response {
	if r.translator == nil {
		return r.Answer(ctx, question)
	}

	cypher, err := r.translator.Translate(ctx, question)
	if err != nil {
		r.log.Warn().Err(err).Msg("translator failed")
		return Response{Message: "I don't have data for that question right now."}
	}

	records, err := r.store.Query(ctx, cypher, nil)
	if err != nil {
		r.log.Warn().Err(err).Str("cypher", cypher).Msg("translated query failed")
		return Response{Message: "I don't have data for that question right now."}
	}
	if len(records) == 0 {
		return Response{Message: "I couldn't find anything for that question."}
	}

	// The translated query's column set is unknown ahead of time; derive a
	// stable order from the first record.
	columns := make([]string, 0, len(records[0]))
	for k := range records[0] {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	return Response{Message: "Here's what I found:", Table: Project(records, columns)}
}
