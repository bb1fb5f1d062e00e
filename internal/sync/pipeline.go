package sync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/medigraph/medigraph/internal/platform/graph"
)

// Store is the graph surface the pipeline needs.
type Store interface {
	Applier
	NodeCounter
}

// Pipeline runs the full ordered load: for each entity type, gate →
// extract → load. Strictly sequential; any fatal error stops the run, and
// entity types loaded before the failure stay committed.
type Pipeline struct {
	extractor *Extractor
	gate      *Gate
	loader    *Loader
	maxRows   int
	log       zerolog.Logger
}

func NewPipeline(extractor *Extractor, store Store, maxRows int, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		gate:      NewGate(store, log),
		loader:    NewLoader(store, log),
		maxRows:   maxRows,
		log:       log,
	}
}

// Run processes every entity type in LoadOrder and returns the rows applied
// per type.
func (p *Pipeline) Run(ctx context.Context) (map[EntityType]int, error) {
	counts := make(map[EntityType]int, len(LoadOrder))

	for _, entity := range LoadOrder {
		skip, err := p.gate.ShouldSkip(ctx, entity)
		if err != nil {
			return counts, err
		}
		if skip {
			counts[entity] = 0
			continue
		}

		rows, err := p.extractor.Fetch(ctx, entity, p.maxRows)
		if err != nil {
			return counts, err
		}
		p.log.Info().
			Str("entity", string(entity)).
			Int("rows", len(rows)).
			Int("cap", p.maxRows).
			Msg("source batch fetched")

		applied, err := p.loader.Upsert(ctx, entity, rows)
		counts[entity] = applied
		if err != nil {
			return counts, err
		}

		p.log.Info().
			Str("entity", string(entity)).
			Int("applied", applied).
			Msg("entity load finished")
	}

	return counts, nil
}

// interface conformance
var _ Store = (*graph.Neo4j)(nil)
